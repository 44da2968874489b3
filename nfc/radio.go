package nfc

import (
	"context"
	"log"
	"sync"
)

// Radio is the direct reader constructor collaborator. A fresh reader is
// constructed per scan session and per write.
type Radio interface {
	NewReader() (RadioReader, error)
}

// RadioReader is one live reader instance. Event callbacks must be installed
// before Scan is called; Close detaches them and releases the reader.
type RadioReader interface {
	// Scan arms tag detection and returns once listening is active.
	Scan(ctx context.Context) error

	// Write replaces the tag content with the given record list.
	Write(ctx context.Context, records []NativeRecord) error

	// OnReading installs the detection callback. serial may be empty.
	OnReading(fn func(serial string, records []NativeRecord))

	// OnError installs the reader fault callback.
	OnError(fn func(err error))

	// Close detaches callbacks and releases the reader.
	Close() error
}

const radioSettingsGuidance = "NFC is managed by your browser. Enable NFC in the system settings if scanning does not start."

// RadioBackend adapts the direct radio reader to the backend contract.
// Support is computed once at construction: absence of the reader
// constructor means unsupported, for the lifetime of the backend.
type RadioBackend struct {
	radio     Radio
	notify    func(string)
	supported bool
	listeners *listenerRegistry

	mu       sync.Mutex
	reader   RadioReader
	active   bool
	scanOnce bool
}

// NewRadioBackend builds the radio backend from the injected environment.
func NewRadioBackend(env Env) *RadioBackend {
	return &RadioBackend{
		radio:     env.Radio,
		notify:    env.Notify,
		supported: env.Radio != nil,
		listeners: newListenerRegistry(),
	}
}

func (b *RadioBackend) Name() string { return "radio" }

// IsEnabled reports support; the radio path has no separate enabled state
// beyond the constructor being present.
func (b *RadioBackend) IsEnabled(ctx context.Context) Status {
	return Status{Enabled: b.supported}
}

// OpenSettings presents textual guidance; the radio path has no settings
// surface of its own.
func (b *RadioBackend) OpenSettings(ctx context.Context) error {
	if b.notify != nil {
		b.notify(radioSettingsGuidance)
		return nil
	}
	return newError(KindNotSupported, "OpenSettings", "no settings surface available")
}

// StartScanSession constructs a fresh reader and arms it. Any previous live
// session is torn down first so the prior reader's events stop arriving.
func (b *RadioBackend) StartScanSession(ctx context.Context, opts ScanOptions) error {
	const op = "StartScanSession"
	if !b.supported {
		return newError(KindNotSupported, op, "NFC reading is not supported on this device")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()

	reader, err := b.radio.NewReader()
	if err != nil {
		return classifyErr(op, err)
	}
	reader.OnReading(func(serial string, records []NativeRecord) {
		b.handleReading(reader, serial, records)
	})
	reader.OnError(b.handleError)

	if err := reader.Scan(ctx); err != nil {
		reader.Close()
		return classifyErr(op, err)
	}

	b.reader = reader
	b.active = true
	b.scanOnce = opts.Once
	return nil
}

// StopScanSession is idempotent and never fails. It deactivates the session
// flag and detaches the low-level event subscription.
func (b *RadioBackend) StopScanSession(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *RadioBackend) stopLocked() {
	if b.reader != nil {
		if err := b.reader.Close(); err != nil {
			log.Printf("[radio] error closing reader: %v", err)
		}
		b.reader = nil
	}
	b.active = false
	b.scanOnce = false
}

// handleReading normalizes one detection. Events from a reader that is no
// longer the current one are dropped. With a once session the session is
// ended before fan-out, but the listeners still see this final event.
func (b *RadioBackend) handleReading(reader RadioReader, serial string, records []NativeRecord) {
	b.mu.Lock()
	if b.reader != reader {
		b.mu.Unlock()
		return
	}
	if b.scanOnce {
		b.stopLocked()
	}
	b.mu.Unlock()

	ev := TagEvent{
		ID:        serial,
		TechTypes: []string{RadioTechNDEF},
		Messages:  []Message{UnifyMessage(records)},
	}
	b.listeners.dispatch(ev)
}

func (b *RadioBackend) handleError(err error) {
	log.Printf("[radio] reader error: %v", err)
}

// Write constructs a fresh writer and issues a single write call. A failed
// write surfaces the classified error and leaves no partial state behind.
func (b *RadioBackend) Write(ctx context.Context, opts WriteOptions) error {
	return b.writeRecords(ctx, "Write", NativeMessageFrom(opts.Message))
}

// MakeReadOnly is not available over the radio path.
func (b *RadioBackend) MakeReadOnly(ctx context.Context) error {
	return newError(KindNotSupported, "MakeReadOnly", "making tags read-only is not supported over the radio")
}

// Format writes an empty message.
func (b *RadioBackend) Format(ctx context.Context) error {
	return b.writeRecords(ctx, "Format", nil)
}

// Erase is equivalent to Format on the radio path.
func (b *RadioBackend) Erase(ctx context.Context) error {
	return b.writeRecords(ctx, "Erase", nil)
}

// Share is meaningful only for a bridge platform family.
func (b *RadioBackend) Share(ctx context.Context, opts ShareOptions) error {
	return newError(KindNotSupported, "Share", "sharing is not supported over the radio")
}

// StopSharing is meaningful only for a bridge platform family.
func (b *RadioBackend) StopSharing(ctx context.Context) error {
	return newError(KindNotSupported, "StopSharing", "sharing is not supported over the radio")
}

func (b *RadioBackend) writeRecords(ctx context.Context, op string, records []NativeRecord) error {
	if !b.supported {
		return newError(KindNotSupported, op, "NFC writing is not supported on this device")
	}
	writer, err := b.radio.NewReader()
	if err != nil {
		return classifyErr(op, err)
	}
	defer writer.Close()
	if err := writer.Write(ctx, records); err != nil {
		return classifyErr(op, err)
	}
	return nil
}

// AddListener registers fn in this backend's registry.
func (b *RadioBackend) AddListener(event EventName, fn ListenerFunc) *Handle {
	return b.listeners.add(event, fn)
}

// RemoveAllListeners clears the backend's registry.
func (b *RadioBackend) RemoveAllListeners() {
	b.listeners.removeAll()
}

// IsScanning reports whether a scan session is logically active.
func (b *RadioBackend) IsScanning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}
