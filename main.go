// Command unfc is a small demo agent for the unified NFC layer. It binds a
// backend — a scripted stub by default, or a WebSocket host bridge when one
// is reachable — and logs normalized tag and status events as they arrive.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whtvrboo/unfc/nfc"
	"github.com/whtvrboo/unfc/nfc/wsbridge"
)

var (
	userAgentFlag = flag.String("ua", "", "user-agent string for platform detection (empty selects the stub backend)")
	bridgeURLFlag = flag.String("bridge", "", "WebSocket URL of a host bridge agent (empty tries mDNS discovery)")
	discoverFlag  = flag.Bool("discover", false, "discover a host bridge agent via mDNS")
	onceFlag      = flag.Bool("once", false, "end the scan session after the first tag")
)

func main() {
	flag.Parse()
	log.SetPrefix("[unfc] ")
	log.SetFlags(log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, cleanup := buildClient(ctx)
	defer cleanup()

	client.AddListener(nfc.EventTagDetected, func(ev nfc.Event) {
		tag, ok := ev.(nfc.TagEvent)
		if !ok {
			return
		}
		log.Printf("tag detected: id=%s tech=%v messages=%d", tag.ID, tag.TechTypes, len(tag.Messages))
		if text, ok := tag.FirstText(); ok {
			log.Printf("  text: %q", text)
		}
		if uri, ok := tag.FirstURI(); ok {
			log.Printf("  uri: %s", uri)
		}
	})
	client.AddListener(nfc.EventStatusChanged, func(ev nfc.Event) {
		if status, ok := ev.(nfc.StatusEvent); ok {
			log.Printf("radio status changed: enabled=%v", status.Enabled)
		}
	})

	status := client.IsEnabled(ctx)
	log.Printf("backend=%s enabled=%v", client.BackendName(), status.Enabled)

	if err := client.StartScanSession(ctx, nfc.ScanOptions{Once: *onceFlag}); err != nil {
		log.Fatalf("starting scan session: %v", err)
	}
	log.Printf("scan session armed (once=%v), waiting for tags...", *onceFlag)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	client.StopScanSession(ctx)
	log.Printf("scan session stopped")
}

// buildClient wires the environment for the client. With a bridge URL or
// discovery it binds a wrapped-shell environment whose Android bridge is the
// WebSocket host agent; otherwise it drives a stub that emits a demo tag.
func buildClient(ctx context.Context) (*nfc.Client, func()) {
	url := *bridgeURLFlag
	if url == "" && *discoverFlag {
		discCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		found, err := wsbridge.Discover(discCtx)
		if err != nil {
			log.Fatalf("discovering host agent: %v", err)
		}
		url = found
	}

	if url != "" {
		bridge, err := wsbridge.Dial(ctx, wsbridge.Config{URL: url, Reconnect: true})
		if err != nil {
			log.Fatalf("dialing host bridge: %v", err)
		}
		ua := *userAgentFlag
		if ua == "" {
			ua = "Mozilla/5.0 (Linux; Android 14.0; wv) AppleWebKit/537.36 Chrome/120.0.0.0"
		}
		client := nfc.New(nfc.Env{
			UserAgent:     ua,
			AndroidBridge: bridge,
			Notify:        func(msg string) { log.Printf("notice: %s", msg) },
		})
		return client, func() { bridge.Close() }
	}

	stub := nfc.NewStubBackend()
	client := nfc.NewWithBackend(stub)

	// Emit a demo tag shortly after the session arms.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		stub.EmitTag(nfc.TagEvent{
			ID:        "04:A1:B2:C3",
			TechTypes: []string{nfc.TechNDEF},
			Messages:  []nfc.Message{nfc.NewTextMessage("hello from the stub backend", "en")},
		})
	}()
	return client, func() {}
}
