package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whtvrboo/unfc/nfc"
)

// Config controls how the bridge connects to a host agent.
type Config struct {
	// URL is the WebSocket endpoint (e.g. "ws://192.168.1.20:18080/bridge").
	URL string

	// ClientName identifies this client in the hello exchange.
	ClientName string

	// HandshakeTimeout bounds the dial and hello exchange. Defaults to 10s.
	HandshakeTimeout time.Duration

	// MessageBuffer is the inbound event channel capacity. Defaults to 16.
	MessageBuffer int

	// Reconnect enables backoff-paced redialing of the channel after a read
	// failure. This is transport-level only; in-flight and new calls still
	// fail while the channel is down, and NFC operations are never retried.
	Reconnect bool
}

// Bridge is a WebSocket-backed nfc.Bridge. The capability surface is frozen
// at dial time from the host's hello acknowledgement.
type Bridge struct {
	config Config

	capsMu sync.RWMutex
	caps   map[string]bool

	writeMu sync.Mutex
	conn    *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan frame

	messages chan nfc.BridgeMessage

	closeMu sync.Mutex
	closed  bool
	done    chan struct{}
}

// Dial connects to a host agent, performs the hello exchange, and starts the
// read loop.
func Dial(ctx context.Context, config Config) (*Bridge, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("wsbridge: URL is required")
	}
	if config.ClientName == "" {
		config.ClientName = "unfc"
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.MessageBuffer == 0 {
		config.MessageBuffer = 16
	}

	b := &Bridge{
		config:   config,
		pending:  make(map[string]chan frame),
		messages: make(chan nfc.BridgeMessage, config.MessageBuffer),
		done:     make(chan struct{}),
	}

	conn, caps, err := b.dialAndHello(ctx)
	if err != nil {
		return nil, err
	}
	b.conn = conn
	b.setCaps(caps)

	go b.readLoop(conn)
	return b, nil
}

// dialAndHello establishes the connection and resolves the host capability
// surface.
func (b *Bridge) dialAndHello(ctx context.Context) (*websocket.Conn, map[string]bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, b.config.HandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, b.config.URL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("wsbridge: dialing %s: %w", b.config.URL, err)
	}

	hello := helloRequest{ClientName: b.config.ClientName, Protocol: "1"}
	payload, err := json.Marshal(hello)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("wsbridge: encoding hello: %w", err)
	}
	if err := conn.WriteJSON(frame{ID: uuid.New().String(), Type: frameTypeHello, Payload: payload}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("wsbridge: sending hello: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(b.config.HandshakeTimeout))
	var ack frame
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("wsbridge: reading hello ack: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if ack.Type != frameTypeHelloAck {
		conn.Close()
		return nil, nil, fmt.Errorf("wsbridge: expected %q, got %q", frameTypeHelloAck, ack.Type)
	}
	var hostInfo helloAck
	if err := json.Unmarshal(ack.Payload, &hostInfo); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("wsbridge: decoding hello ack: %w", err)
	}

	caps := make(map[string]bool, len(hostInfo.Capabilities))
	for _, c := range hostInfo.Capabilities {
		caps[c] = true
	}
	log.Printf("[wsbridge] connected to %s (%d capabilities)", b.config.URL, len(caps))
	return conn, caps, nil
}

// Has reports whether the host announced the given function slot. The
// capability surface is replaced wholesale after a reconnect, so reads are
// guarded against that swap.
func (b *Bridge) Has(capability string) bool {
	b.capsMu.RLock()
	defer b.capsMu.RUnlock()
	return b.caps[capability]
}

func (b *Bridge) setCaps(caps map[string]bool) {
	b.capsMu.Lock()
	b.caps = caps
	b.capsMu.Unlock()
}

// Invoke sends one correlated request and waits for the host's response.
func (b *Bridge) Invoke(ctx context.Context, capability string, payload string) (string, error) {
	id := uuid.New().String()

	ch := make(chan frame, 1)
	b.pendingMu.Lock()
	b.pending[id] = ch
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
	}()

	req := frame{ID: id, Type: capability}
	if payload != "" {
		req.Payload = json.RawMessage(payload)
	}
	if err := b.writeFrame(req); err != nil {
		return "", err
	}

	select {
	case resp := <-ch:
		if !resp.Success {
			msg := resp.Error
			if msg == "" {
				msg = "bridge call failed"
			}
			return "", fmt.Errorf("wsbridge: %s: %s", capability, msg)
		}
		return string(resp.Payload), nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.done:
		return "", fmt.Errorf("wsbridge: channel closed")
	}
}

// Messages delivers host-originated events.
func (b *Bridge) Messages() <-chan nfc.BridgeMessage {
	return b.messages
}

func (b *Bridge) writeFrame(f frame) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("wsbridge: channel disconnected")
	}
	return b.conn.WriteJSON(f)
}

// readLoop demultiplexes inbound frames: correlated responses complete
// pending calls, event frames feed the message channel, anything else is
// ignored.
func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			b.handleDisconnect(conn, err)
			return
		}

		if f.ID != "" {
			b.pendingMu.Lock()
			ch, ok := b.pending[f.ID]
			b.pendingMu.Unlock()
			if ok {
				ch <- f
				continue
			}
		}

		if isEventFrame(f) {
			select {
			case b.messages <- eventMessage(f):
			default:
				log.Printf("[wsbridge] message channel full, dropping %s", f.Type)
			}
		}
	}
}

// handleDisconnect fails pending calls and, when configured, redials the
// channel with exponential backoff.
func (b *Bridge) handleDisconnect(conn *websocket.Conn, cause error) {
	conn.Close()

	b.closeMu.Lock()
	closed := b.closed
	b.closeMu.Unlock()
	if closed {
		return
	}
	log.Printf("[wsbridge] channel read failed: %v", cause)

	b.writeMu.Lock()
	b.conn = nil
	b.writeMu.Unlock()
	b.failPending()

	if !b.config.Reconnect {
		b.shutdown()
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 5 * time.Minute

	for {
		d := bo.NextBackOff()
		if d == backoff.Stop {
			log.Printf("[wsbridge] giving up reconnecting to %s", b.config.URL)
			b.shutdown()
			return
		}
		time.Sleep(d)

		b.closeMu.Lock()
		closed := b.closed
		b.closeMu.Unlock()
		if closed {
			return
		}

		next, caps, err := b.dialAndHello(context.Background())
		if err != nil {
			log.Printf("[wsbridge] reconnect failed: %v", err)
			continue
		}

		b.writeMu.Lock()
		b.conn = next
		b.writeMu.Unlock()
		b.setCaps(caps)
		go b.readLoop(next)
		return
	}
}

// failPending drains outstanding calls with a failure frame.
func (b *Bridge) failPending() {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	for id, ch := range b.pending {
		ch <- frame{ID: id, Success: false, Error: "bridge channel disconnected"}
		delete(b.pending, id)
	}
}

// shutdown closes the message channel once.
func (b *Bridge) shutdown() {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	close(b.messages)
}

// Close tears the channel down. Safe to call more than once.
func (b *Bridge) Close() error {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	close(b.messages)
	b.closeMu.Unlock()

	b.failPending()

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.conn != nil {
		err := b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}
