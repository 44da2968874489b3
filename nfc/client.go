package nfc

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Client is the facade over the selected backend. Exactly one backend is
// bound at construction and the binding is final for the client's lifetime;
// environment signals are not re-evaluated afterward.
//
// Selection priority:
//
//  1. The iOS family is detected and its host bridge object is present —
//     bind the iOS bridge backend.
//  2. The Android family is detected and its capability facts prefer the
//     native bridge path (wrapped shell, or no browser radio support) —
//     bind the Android bridge backend.
//  3. Otherwise — bind the radio backend.
type Client struct {
	backend Backend
	android PlatformFacts
	ios     PlatformFacts

	mu      sync.Mutex
	nextID  uint64
	handles map[EventName]map[uint64]*Handle

	statusMu   sync.Mutex
	lastStatus *StatusEvent
}

// New detects the platform from the injected environment, binds a backend,
// and asynchronously subscribes to its status channel. The status
// subscription is best-effort: a failure is logged and never fails
// construction or any subsequent call.
func New(env Env) *Client {
	android := DetectAndroid(env.UserAgent)
	ios := DetectIOS(env.UserAgent)

	var backend Backend
	switch {
	case ios.IsPlatform && env.IOSBridge != nil:
		backend = NewIOSBackend(env)
	case android.IsPlatform && (IsWrappedShell(env.UserAgent) || !android.SupportsBrowserRadio):
		backend = NewAndroidBackend(env)
	default:
		backend = NewRadioBackend(env)
	}
	log.Printf("[client] bound %s backend", backend.Name())

	c := newClient(backend)
	c.android = android
	c.ios = ios
	go c.watchStatus()
	return c
}

// NewWithBackend binds a pre-built backend, bypassing platform detection.
// Intended for tests and for demos driving a stub backend.
func NewWithBackend(backend Backend) *Client {
	c := newClient(backend)
	go c.watchStatus()
	return c
}

func newClient(backend Backend) *Client {
	return &Client{
		backend: backend,
		handles: make(map[EventName]map[uint64]*Handle),
	}
}

// watchStatus tracks radio availability changes off the backend's status
// channel so LastStatus stays current.
func (c *Client) watchStatus() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[client] status subscription failed: %v", r)
		}
	}()
	c.backend.AddListener(EventStatusChanged, func(ev Event) {
		status, ok := ev.(StatusEvent)
		if !ok {
			return
		}
		c.statusMu.Lock()
		c.lastStatus = &status
		c.statusMu.Unlock()
	})
}

// LastStatus returns the most recent status change observed since binding,
// or nil when none arrived yet.
func (c *Client) LastStatus() *StatusEvent {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.lastStatus
}

// BackendName identifies the bound backend.
func (c *Client) BackendName() string { return c.backend.Name() }

// Facts returns the capability facts computed at construction for both
// platform families.
func (c *Client) Facts() (android, ios PlatformFacts) {
	return c.android, c.ios
}

// IsEnabled reports radio availability. It never fails.
func (c *Client) IsEnabled(ctx context.Context) Status {
	return c.backend.IsEnabled(ctx)
}

// OpenSettings opens the platform NFC settings surface, or presents textual
// guidance where none exists.
func (c *Client) OpenSettings(ctx context.Context) error {
	return c.classify("OpenSettings", c.backend.OpenSettings(ctx))
}

// StartScanSession arms tag detection on the bound backend. Any error is
// re-surfaced with its message preserved and a classification code attached.
func (c *Client) StartScanSession(ctx context.Context, opts ScanOptions) error {
	return c.classify("StartScanSession", c.backend.StartScanSession(ctx, opts))
}

// StopScanSession ends the current scan session. It never fails.
func (c *Client) StopScanSession(ctx context.Context) {
	c.backend.StopScanSession(ctx)
}

// Write replaces the tag content with the given message.
func (c *Client) Write(ctx context.Context, opts WriteOptions) error {
	return c.classify("Write", c.backend.Write(ctx, opts))
}

// MakeReadOnly permanently locks the tag against writes.
func (c *Client) MakeReadOnly(ctx context.Context) error {
	return c.classify("MakeReadOnly", c.backend.MakeReadOnly(ctx))
}

// Format prepares the tag with an empty message.
func (c *Client) Format(ctx context.Context) error {
	return c.classify("Format", c.backend.Format(ctx))
}

// Erase clears the tag content.
func (c *Client) Erase(ctx context.Context) error {
	return c.classify("Erase", c.backend.Erase(ctx))
}

// Share offers a message over peer-to-peer sharing.
func (c *Client) Share(ctx context.Context, opts ShareOptions) error {
	return c.classify("Share", c.backend.Share(ctx, opts))
}

// StopSharing withdraws a shared message.
func (c *Client) StopSharing(ctx context.Context) error {
	return c.classify("StopSharing", c.backend.StopSharing(ctx))
}

// AddListener registers fn on the bound backend and records the registration
// in the client's own view. The returned handle removes the callback from
// both stores; calling Remove more than once is a no-op.
func (c *Client) AddListener(event EventName, fn ListenerFunc) *Handle {
	backendHandle := c.backend.AddListener(event, fn)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	set, ok := c.handles[event]
	if !ok {
		set = make(map[uint64]*Handle)
		c.handles[event] = set
	}
	set[id] = backendHandle
	c.mu.Unlock()

	return newHandle(func() {
		c.mu.Lock()
		if set, ok := c.handles[event]; ok {
			delete(set, id)
		}
		c.mu.Unlock()
		backendHandle.Remove()
	})
}

// RemoveAllListeners clears the client's registration view and the backend's
// registry. It never fails.
func (c *Client) RemoveAllListeners() {
	c.mu.Lock()
	c.handles = make(map[EventName]map[uint64]*Handle)
	c.mu.Unlock()
	c.backend.RemoveAllListeners()
}

// ListenerCount returns the number of live registrations the client holds
// for an event name.
func (c *Client) ListenerCount(event EventName) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles[event])
}

// classify attaches a classification code to a backend fault, preserving the
// original message. Already-classified errors pass through unchanged.
func (c *Client) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var nfcErr *Error
	if errors.As(err, &nfcErr) {
		return nfcErr
	}
	return &Error{
		Kind:    Classify(err),
		Op:      op,
		Message: err.Error(),
		Cause:   err,
	}
}
