package wsbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whtvrboo/unfc/nfc"
)

// testAgent is a minimal in-process host agent: it answers the hello
// exchange, serves scripted responses, and can push event frames.
type testAgent struct {
	t       *testing.T
	caps    []string
	respond func(f frame) *frame

	mu    sync.Mutex
	conn  *websocket.Conn
	ready chan struct{}
	srv   *httptest.Server
}

func newTestAgent(t *testing.T, caps []string, respond func(f frame) *frame) *testAgent {
	a := &testAgent{t: t, caps: caps, respond: respond, ready: make(chan struct{})}
	a.srv = httptest.NewServer(http.HandlerFunc(a.handle))
	t.Cleanup(a.srv.Close)
	return a
}

func (a *testAgent) url() string {
	return "ws" + strings.TrimPrefix(a.srv.URL, "http") + DefaultPath
}

func (a *testAgent) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.t.Errorf("upgrade: %v", err)
		return
	}

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		a.t.Errorf("reading hello: %v", err)
		return
	}
	if hello.Type != frameTypeHello {
		a.t.Errorf("first frame type = %q, want %q", hello.Type, frameTypeHello)
		return
	}
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	ackPayload, _ := json.Marshal(helloAck{AgentName: "test-agent", Capabilities: a.caps})
	a.write(frame{ID: hello.ID, Type: frameTypeHelloAck, Success: true, Payload: ackPayload})
	close(a.ready)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if a.respond == nil {
			continue
		}
		if resp := a.respond(f); resp != nil {
			a.write(*resp)
		}
	}
}

func (a *testAgent) write(f frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return
	}
	if err := a.conn.WriteJSON(f); err != nil {
		a.t.Logf("agent write: %v", err)
	}
}

// push sends an event frame once the handshake completed.
func (a *testAgent) push(f frame) {
	<-a.ready
	a.write(f)
}

func TestDialRequiresURL(t *testing.T) {
	if _, err := Dial(context.Background(), Config{}); err == nil {
		t.Errorf("Dial with empty URL succeeded, want error")
	}
}

func TestDialResolvesCapabilities(t *testing.T) {
	agent := newTestAgent(t, []string{"isEnabled", "startScan"}, nil)

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	if !b.Has("isEnabled") || !b.Has("startScan") {
		t.Errorf("announced capabilities missing")
	}
	if b.Has("write") {
		t.Errorf("Has(%q) = true, want false", "write")
	}
}

func TestInvoke(t *testing.T) {
	agent := newTestAgent(t, []string{"isEnabled"}, func(f frame) *frame {
		if f.Type != "isEnabled" {
			return nil
		}
		return &frame{ID: f.ID, Type: f.Type, Success: true, Payload: json.RawMessage(`{"enabled":true}`)}
	})

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	result, err := b.Invoke(context.Background(), "isEnabled", "")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result != `{"enabled":true}` {
		t.Errorf("result = %q, want %q", result, `{"enabled":true}`)
	}
}

func TestInvokeCarriesPayload(t *testing.T) {
	got := make(chan string, 1)
	agent := newTestAgent(t, []string{"write"}, func(f frame) *frame {
		got <- string(f.Payload)
		return &frame{ID: f.ID, Type: f.Type, Success: true}
	})

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	payload := `{"records":[{"type":"T","payload":"aGk=","lang":"en"}]}`
	if _, err := b.Invoke(context.Background(), "write", payload); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	select {
	case p := <-got:
		if p != payload {
			t.Errorf("agent saw payload %q, want %q", p, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("agent never saw the call")
	}
}

func TestInvokeFailure(t *testing.T) {
	agent := newTestAgent(t, []string{"startScan"}, func(f frame) *frame {
		return &frame{ID: f.ID, Type: f.Type, Success: false, Error: "NFC is not enabled"}
	})

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	_, err = b.Invoke(context.Background(), "startScan", "")
	if err == nil {
		t.Fatalf("Invoke succeeded, want error")
	}
	if !strings.Contains(err.Error(), "NFC is not enabled") {
		t.Errorf("error = %v, want the host message preserved", err)
	}
}

func TestInvokeContextCancelled(t *testing.T) {
	// The agent never answers.
	agent := newTestAgent(t, []string{"startScan"}, nil)

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := b.Invoke(ctx, "startScan", ""); err == nil {
		t.Errorf("Invoke succeeded, want context error")
	}
}

func TestEventDelivery(t *testing.T) {
	agent := newTestAgent(t, []string{"isEnabled", "startScan"}, nil)

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	agent.push(frame{
		Type: nfc.MessageTagDetected,
		Tag:  &nfc.BridgeTag{ID: "04:AB", TechTypes: []string{"ndef"}},
	})
	agent.push(frame{Type: nfc.MessageStatusChanged, Enabled: true})
	agent.push(frame{Type: "bogus"})

	var msgs []nfc.BridgeMessage
	timeout := time.After(2 * time.Second)
	for len(msgs) < 2 {
		select {
		case m := <-b.Messages():
			msgs = append(msgs, m)
		case <-timeout:
			t.Fatalf("got %d messages, want 2", len(msgs))
		}
	}

	if msgs[0].Type != nfc.MessageTagDetected || msgs[0].Tag == nil || msgs[0].Tag.ID != "04:AB" {
		t.Errorf("first message = %+v, want the tag event", msgs[0])
	}
	if msgs[1].Type != nfc.MessageStatusChanged || !msgs[1].Enabled {
		t.Errorf("second message = %+v, want the status event", msgs[1])
	}

	// The unrecognized frame is dropped, not delivered.
	select {
	case m, ok := <-b.Messages():
		if ok {
			t.Errorf("unexpected extra message: %+v", m)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseFailsCalls(t *testing.T) {
	agent := newTestAgent(t, []string{"isEnabled"}, nil)

	b, err := Dial(context.Background(), Config{URL: agent.url()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := b.Invoke(context.Background(), "isEnabled", ""); err == nil {
		t.Errorf("Invoke after Close succeeded, want error")
	}

	// The message channel drains and closes.
	select {
	case _, ok := <-b.Messages():
		if ok {
			t.Errorf("message channel delivered after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message channel not closed")
	}
}

func TestReconnectRefreshesCapabilities(t *testing.T) {
	if testing.Short() {
		t.Skip("reconnect backoff makes this test slow")
	}

	// The agent drops its first connection right after the handshake and
	// announces a wider capability surface on the redial. Has is polled
	// throughout, overlapping the reconnect's capability swap.
	var mu sync.Mutex
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var hello frame
		if err := conn.ReadJSON(&hello); err != nil {
			return
		}
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		caps := []string{"isEnabled"}
		if n > 1 {
			caps = append(caps, "startScan")
		}
		payload, _ := json.Marshal(helloAck{AgentName: "flaky-agent", Capabilities: caps})
		conn.WriteJSON(frame{ID: hello.ID, Type: frameTypeHelloAck, Success: true, Payload: payload})

		if n == 1 {
			conn.Close()
			return
		}
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + DefaultPath
	b, err := Dial(context.Background(), Config{URL: url, Reconnect: true})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()

	if b.Has("startScan") {
		t.Fatalf("Has(%q) = true before reconnect", "startScan")
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if b.Has("startScan") {
			if !b.Has("isEnabled") {
				t.Errorf("Has(%q) = false after reconnect", "isEnabled")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("capability surface never refreshed after reconnect")
}

func TestIsEventFrame(t *testing.T) {
	tests := []struct {
		frameType string
		want      bool
	}{
		{nfc.MessageTagDetected, true},
		{nfc.MessageStatusChanged, true},
		{"hello", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isEventFrame(frame{Type: tt.frameType}); got != tt.want {
			t.Errorf("isEventFrame(%q) = %v, want %v", tt.frameType, got, tt.want)
		}
	}
}
