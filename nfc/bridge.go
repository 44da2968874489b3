package nfc

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Bridge is a host-injected capability surface: web content running inside a
// native wrapper proxies calls through it and receives native-originated
// events back over a generic message channel. Implementations serialize call
// payloads to a transport-neutral string form (JSON).
type Bridge interface {
	// Has reports whether the host exposes the given function slot.
	Has(capability string) bool

	// Invoke calls a host function with a JSON payload and returns its JSON
	// result.
	Invoke(ctx context.Context, capability string, payload string) (string, error)

	// Messages delivers native-originated events. The channel is closed when
	// the bridge shuts down.
	Messages() <-chan BridgeMessage
}

// Well-known bridge function slots.
const (
	capIsEnabled    = "isEnabled"
	capOpenSettings = "openSettings"
	capStartScan    = "startScan"
	capStopScan     = "stopScan"
	capWrite        = "write"
	capMakeReadOnly = "makeReadOnly"
	capFormat       = "format"
	capErase        = "erase"
	capShare        = "share"
	capStopSharing  = "stopSharing"
)

// Inbound message type tags.
const (
	MessageTagDetected   = "nfcTagDetected"
	MessageStatusChanged = "nfcStatusChanged"
)

// BridgeMessage is the generic cross-context message envelope. Messages with
// an unrecognized Type are ignored, not errors.
type BridgeMessage struct {
	Type    string     `json:"type"`
	Tag     *BridgeTag `json:"tag,omitempty"`
	Enabled bool       `json:"enabled,omitempty"`
}

// BridgeTag is the wire shape of a detected tag as the host reports it.
type BridgeTag struct {
	ID        string           `json:"id"`
	TechTypes []string         `json:"techTypes"`
	Messages  [][]NativeRecord `json:"messages"`
}

// bridgeWriteRequest is the serialized payload for write and share calls.
type bridgeWriteRequest struct {
	Records []NativeRecord `json:"records"`
}

// bridgeEnabledResponse is the result shape of the enabled check.
type bridgeEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// bridgeBackend implements the backend contract over a host bridge. Both
// platform variants share this core; they differ only in name and in which
// function slots their host exposes.
//
// Availability is computed once at construction — the bridge object must be
// present and expose at minimum the enabled check and the scan start — and is
// frozen for the lifetime of the backend.
type bridgeBackend struct {
	name      string
	bridge    Bridge
	notify    func(string)
	available bool
	listeners *listenerRegistry

	mu       sync.Mutex
	active   bool
	scanOnce bool
}

func newBridgeBackend(name string, bridge Bridge, notify func(string)) *bridgeBackend {
	b := &bridgeBackend{
		name:      name,
		bridge:    bridge,
		notify:    notify,
		available: bridge != nil && bridge.Has(capIsEnabled) && bridge.Has(capStartScan),
		listeners: newListenerRegistry(),
	}
	if b.available {
		go b.pump()
	}
	return b
}

func (b *bridgeBackend) Name() string { return b.name }

// pump demultiplexes inbound host messages until the channel closes.
func (b *bridgeBackend) pump() {
	for msg := range b.bridge.Messages() {
		b.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound message on its type tag.
func (b *bridgeBackend) handleMessage(msg BridgeMessage) {
	switch msg.Type {
	case MessageTagDetected:
		if msg.Tag == nil {
			return
		}

		// Tag detections outside a live session are dropped; a bridge
		// without a native stop capability may keep emitting after stop.
		b.mu.Lock()
		if !b.active {
			b.mu.Unlock()
			return
		}
		endSession := b.scanOnce
		b.mu.Unlock()
		if endSession {
			b.StopScanSession(context.Background())
		}

		b.listeners.dispatch(unifyBridgeTag(*msg.Tag))
	case MessageStatusChanged:
		b.listeners.dispatch(StatusEvent{Enabled: msg.Enabled})
	default:
		// Unrecognized message shapes are ignored.
	}
}

// unifyBridgeTag normalizes the wire tag into the unified event model,
// preserving message and record order.
func unifyBridgeTag(tag BridgeTag) TagEvent {
	ev := TagEvent{ID: tag.ID}
	for _, code := range tag.TechTypes {
		ev.TechTypes = append(ev.TechTypes, ClassifyTech(code))
	}
	for _, records := range tag.Messages {
		ev.Messages = append(ev.Messages, UnifyMessage(records))
	}
	return ev
}

// call serializes the payload and invokes a host function slot, classifying
// any rejection so raw platform error objects never escape.
func (b *bridgeBackend) call(ctx context.Context, op, capability string, payload any) (string, error) {
	if !b.available {
		return "", newError(KindNotSupported, op, "%s bridge not available", b.name)
	}
	if !b.bridge.Has(capability) {
		return "", &NotImplementedError{Backend: b.name, Capability: capability, Op: op}
	}

	body := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", wrapError(KindUnexpected, op, "encoding bridge payload", err)
		}
		body = string(data)
	}

	result, err := b.bridge.Invoke(ctx, capability, body)
	if err != nil {
		return "", classifyErr(op, err)
	}
	return result, nil
}

// IsEnabled never fails: a missing bridge, a rejected call, or an unreadable
// result all degrade to disabled.
func (b *bridgeBackend) IsEnabled(ctx context.Context) Status {
	result, err := b.call(ctx, "IsEnabled", capIsEnabled, nil)
	if err != nil {
		return Status{Enabled: false}
	}
	var resp bridgeEnabledResponse
	if err := json.Unmarshal([]byte(result), &resp); err != nil {
		log.Printf("[%s] unreadable enabled response: %v", b.name, err)
		return Status{Enabled: false}
	}
	return Status{Enabled: resp.Enabled}
}

// OpenSettings forwards to the host when it has a settings surface. A host
// without one gets textual guidance through the notification channel instead;
// only when no channel exists at all does this fail.
func (b *bridgeBackend) OpenSettings(ctx context.Context) error {
	const op = "OpenSettings"
	if !b.available {
		return newError(KindNotSupported, op, "%s bridge not available", b.name)
	}
	if b.bridge.Has(capOpenSettings) {
		_, err := b.call(ctx, op, capOpenSettings, nil)
		return err
	}
	if b.notify != nil {
		b.notify("Enable NFC in the system settings to scan tags.")
		return nil
	}
	return &NotImplementedError{Backend: b.name, Capability: capOpenSettings, Op: op}
}

// StartScanSession serializes the options and arms the host scan. A previous
// live session is torn down first.
func (b *bridgeBackend) StartScanSession(ctx context.Context, opts ScanOptions) error {
	const op = "StartScanSession"

	b.mu.Lock()
	wasActive := b.active
	b.mu.Unlock()
	if wasActive {
		b.StopScanSession(ctx)
	}

	if _, err := b.call(ctx, op, capStartScan, opts); err != nil {
		return err
	}

	b.mu.Lock()
	b.active = true
	b.scanOnce = opts.Once
	b.mu.Unlock()
	return nil
}

// StopScanSession is idempotent and never fails. A bridge lacking the stop
// capability gets a silent no-op on the native side, but the local session
// flag is always cleared.
func (b *bridgeBackend) StopScanSession(ctx context.Context) {
	b.mu.Lock()
	b.active = false
	b.scanOnce = false
	b.mu.Unlock()

	if b.available && b.bridge.Has(capStopScan) {
		if _, err := b.bridge.Invoke(ctx, capStopScan, ""); err != nil {
			log.Printf("[%s] stop scan: %v", b.name, err)
		}
	}
}

// Write replaces the tag content with the given message.
func (b *bridgeBackend) Write(ctx context.Context, opts WriteOptions) error {
	req := bridgeWriteRequest{Records: NativeMessageFrom(opts.Message)}
	_, err := b.call(ctx, "Write", capWrite, req)
	return err
}

func (b *bridgeBackend) MakeReadOnly(ctx context.Context) error {
	_, err := b.call(ctx, "MakeReadOnly", capMakeReadOnly, nil)
	return err
}

func (b *bridgeBackend) Format(ctx context.Context) error {
	_, err := b.call(ctx, "Format", capFormat, nil)
	return err
}

func (b *bridgeBackend) Erase(ctx context.Context) error {
	_, err := b.call(ctx, "Erase", capErase, nil)
	return err
}

func (b *bridgeBackend) Share(ctx context.Context, opts ShareOptions) error {
	req := bridgeWriteRequest{Records: NativeMessageFrom(opts.Message)}
	_, err := b.call(ctx, "Share", capShare, req)
	return err
}

func (b *bridgeBackend) StopSharing(ctx context.Context) error {
	_, err := b.call(ctx, "StopSharing", capStopSharing, nil)
	return err
}

// AddListener registers fn in this backend's registry.
func (b *bridgeBackend) AddListener(event EventName, fn ListenerFunc) *Handle {
	return b.listeners.add(event, fn)
}

// RemoveAllListeners clears the backend's registry.
func (b *bridgeBackend) RemoveAllListeners() {
	b.listeners.removeAll()
}

// Available reports whether the host bridge was discovered at construction.
func (b *bridgeBackend) Available() bool { return b.available }

// IsScanning reports whether a scan session is logically active.
func (b *bridgeBackend) IsScanning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}
