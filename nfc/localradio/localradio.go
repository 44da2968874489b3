// Package localradio provides a concrete nfc.Radio over libnfc for desktop
// hosts with a physical reader attached. Each reader instance polls for
// ISO14443-A targets, reads NDEF content off Type 2 tags, and reports
// detections through the installed callback.
//
// The import alias separates this package's unified model (unfc) from the
// libnfc binding (libnfc).
package localradio

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	libnfc "github.com/clausecker/nfc/v2"

	unfc "github.com/whtvrboo/unfc/nfc"
)

// DefaultPollInterval paces the passive target poll loop.
const DefaultPollInterval = 500 * time.Millisecond

// Provider constructs libnfc-backed readers. The connection string selects
// the device; empty means the first available reader.
type Provider struct {
	connString   string
	pollInterval time.Duration
}

// New creates a provider for the given libnfc connection string.
func New(connString string) *Provider {
	return &Provider{connString: connString, pollInterval: DefaultPollInterval}
}

// NewReader opens the device and initializes it as an initiator. One live
// reader exists per scan session; the backend constructs a fresh one each
// time.
func (p *Provider) NewReader() (unfc.RadioReader, error) {
	dev, err := libnfc.Open(p.connString)
	if err != nil {
		return nil, fmt.Errorf("localradio: opening device %q: %w", p.connString, err)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("localradio: initializing device: %w", err)
	}
	return &reader{
		dev:          dev,
		pollInterval: p.pollInterval,
		stop:         make(chan struct{}),
	}, nil
}

// reader is one live polling session over a libnfc device.
type reader struct {
	dev          libnfc.Device
	pollInterval time.Duration

	mu        sync.Mutex
	onReading func(serial string, records []unfc.NativeRecord)
	onError   func(err error)
	scanning  bool
	closed    bool

	stop chan struct{}
}

func (r *reader) OnReading(fn func(serial string, records []unfc.NativeRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReading = fn
}

func (r *reader) OnError(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// Scan starts the poll loop and returns once it is armed.
func (r *reader) Scan(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("localradio: reader is closed")
	}
	if r.scanning {
		return nil
	}
	r.scanning = true
	go r.pollLoop()
	return nil
}

// pollLoop lists passive ISO14443-A targets until the reader closes. A tag
// is reported once on arrival and again only after it leaves the field.
func (r *reader) pollLoop() {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	present := make(map[string]bool)

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		modulation := libnfc.Modulation{Type: libnfc.ISO14443a, BaudRate: libnfc.Nbr106}
		targets, err := r.dev.InitiatorListPassiveTargets(modulation)
		if err != nil {
			r.reportError(fmt.Errorf("localradio: listing targets: %w", err))
			continue
		}

		seen := make(map[string]bool, len(targets))
		for _, target := range targets {
			isoA, ok := target.(*libnfc.ISO14443aTarget)
			if !ok {
				continue
			}
			if isoA.UIDLen == 0 || int(isoA.UIDLen) > len(isoA.UID) {
				continue
			}
			serial := formatSerial(isoA.UID[:isoA.UIDLen])
			seen[serial] = true
			if present[serial] {
				continue
			}
			present[serial] = true
			records, err := readNDEFMessage(r)
			if err != nil {
				// Not every tag in the field carries NDEF content; the
				// detection itself is still worth reporting.
				log.Printf("[localradio] reading NDEF from %s: %v", serial, err)
				records = nil
			}
			r.reportReading(serial, records)
		}

		for serial := range present {
			if !seen[serial] {
				delete(present, serial)
			}
		}
	}
}

func (r *reader) reportReading(serial string, records []unfc.NativeRecord) {
	r.mu.Lock()
	fn := r.onReading
	r.mu.Unlock()
	if fn != nil {
		fn(serial, records)
	}
}

func (r *reader) reportError(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil {
		fn(err)
		return
	}
	log.Printf("[localradio] %v", err)
}

// Transceive exchanges one raw command with the selected target.
func (r *reader) Transceive(tx []byte) ([]byte, error) {
	var rxData [262]byte
	count, err := r.dev.InitiatorTransceiveBytes(tx, rxData[:], 0)
	if err != nil {
		return nil, err
	}
	return rxData[:count], nil
}

// Write replaces the tag content with the given records. The tag must be in
// the field when the call is made.
func (r *reader) Write(ctx context.Context, records []unfc.NativeRecord) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("localradio: reader is closed")
	}
	r.mu.Unlock()

	modulation := libnfc.Modulation{Type: libnfc.ISO14443a, BaudRate: libnfc.Nbr106}
	targets, err := r.dev.InitiatorListPassiveTargets(modulation)
	if err != nil {
		return fmt.Errorf("localradio: listing targets: %w", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("localradio: no tag in field")
	}
	if err := writeNDEFMessage(r, records); err != nil {
		return fmt.Errorf("localradio: %w", err)
	}
	return nil
}

// Close stops the poll loop and releases the device.
func (r *reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.scanning = false
	r.mu.Unlock()

	close(r.stop)
	return r.dev.Close()
}

// formatSerial renders a UID as colon-separated uppercase hex pairs.
func formatSerial(uid []byte) string {
	hexStr := strings.ToUpper(hex.EncodeToString(uid))
	var sb strings.Builder
	for i := 0; i < len(hexStr); i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(hexStr[i : i+2])
	}
	return sb.String()
}
