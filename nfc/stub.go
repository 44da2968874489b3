package nfc

import (
	"context"
	"sync"
)

// StubBackend is a scriptable in-memory backend implementing the full
// contract without any platform access. It backs demos and tests: emit
// synthetic tags with EmitTag, flip availability with SetEnabled, and
// inspect what was written through Written.
//
// Example:
//
//	stub := NewStubBackend()
//	client := NewWithBackend(stub)
//	client.StartScanSession(ctx, ScanOptions{Once: true})
//	stub.EmitTag(TagEvent{ID: "04:AB", TechTypes: []string{"ndef"}})
type StubBackend struct {
	listeners *listenerRegistry

	mu       sync.Mutex
	enabled  bool
	active   bool
	scanOnce bool
	readOnly bool
	written  []Message
	shared   *Message
	callLog  []string
}

// NewStubBackend creates an enabled stub with no content.
func NewStubBackend() *StubBackend {
	return &StubBackend{
		listeners: newListenerRegistry(),
		enabled:   true,
	}
}

func (s *StubBackend) Name() string { return "stub" }

func (s *StubBackend) log(op string) {
	s.callLog = append(s.callLog, op)
}

// SetEnabled flips simulated radio availability and broadcasts the change.
func (s *StubBackend) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	s.listeners.dispatch(StatusEvent{Enabled: enabled})
}

// EmitTag simulates a physical tap. The event is delivered only while a scan
// session is active; a once session ends before fan-out but the listeners
// still see this final event.
func (s *StubBackend) EmitTag(ev TagEvent) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if s.scanOnce {
		s.active = false
		s.scanOnce = false
	}
	s.mu.Unlock()
	s.listeners.dispatch(ev)
}

func (s *StubBackend) IsEnabled(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("IsEnabled")
	return Status{Enabled: s.enabled}
}

func (s *StubBackend) OpenSettings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("OpenSettings")
	return nil
}

func (s *StubBackend) StartScanSession(ctx context.Context, opts ScanOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("StartScanSession")
	if !s.enabled {
		return newError(KindNotEnabled, "StartScanSession", "NFC is not enabled")
	}
	s.active = true
	s.scanOnce = opts.Once
	return nil
}

func (s *StubBackend) StopScanSession(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("StopScanSession")
	s.active = false
	s.scanOnce = false
}

func (s *StubBackend) Write(ctx context.Context, opts WriteOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("Write")
	if s.readOnly {
		return newError(KindTagError, "Write", "tag is read-only")
	}
	s.written = append(s.written, opts.Message)
	return nil
}

func (s *StubBackend) MakeReadOnly(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("MakeReadOnly")
	s.readOnly = true
	return nil
}

func (s *StubBackend) Format(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("Format")
	if s.readOnly {
		return newError(KindTagError, "Format", "tag is read-only")
	}
	s.written = append(s.written, Message{})
	return nil
}

func (s *StubBackend) Erase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("Erase")
	if s.readOnly {
		return newError(KindTagError, "Erase", "tag is read-only")
	}
	s.written = append(s.written, Message{})
	return nil
}

func (s *StubBackend) Share(ctx context.Context, opts ShareOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("Share")
	msg := opts.Message
	s.shared = &msg
	return nil
}

func (s *StubBackend) StopSharing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log("StopSharing")
	s.shared = nil
	return nil
}

func (s *StubBackend) AddListener(event EventName, fn ListenerFunc) *Handle {
	return s.listeners.add(event, fn)
}

func (s *StubBackend) RemoveAllListeners() {
	s.listeners.removeAll()
}

// IsScanning reports whether a scan session is logically active.
func (s *StubBackend) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Written returns the messages written so far, in order.
func (s *StubBackend) Written() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.written))
	copy(out, s.written)
	return out
}

// CallLog returns the operations invoked so far, in order.
func (s *StubBackend) CallLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.callLog))
	copy(out, s.callLog)
	return out
}
