package wsbridge

import (
	"context"
	"fmt"
	"log"

	"github.com/grandcat/zeroconf"
)

// Discover browses the local network for a host agent advertising the bridge
// service over mDNS and returns its WebSocket URL. It returns the first
// usable instance found, or an error when the context ends without one.
func Discover(ctx context.Context) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("wsbridge: creating mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 4)
	if err := resolver.Browse(ctx, MDNSServiceType, MDNSDomain, entries); err != nil {
		return "", fmt.Errorf("wsbridge: browsing for host agents: %w", err)
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", fmt.Errorf("wsbridge: no host agent found")
			}
			if entry == nil || len(entry.AddrIPv4) == 0 {
				continue
			}
			url := fmt.Sprintf("ws://%s:%d%s", entry.AddrIPv4[0], entry.Port, DefaultPath)
			log.Printf("[wsbridge] discovered host agent %q at %s", entry.Instance, url)
			return url, nil
		case <-ctx.Done():
			return "", fmt.Errorf("wsbridge: discovery ended: %w", ctx.Err())
		}
	}
}
