// Package wsbridge provides a concrete nfc.Bridge over a WebSocket channel
// to a native host agent. Outbound calls are JSON request/response pairs
// correlated by ID; native-originated events arrive on the same channel and
// are demultiplexed by their type tag.
package wsbridge

import (
	"encoding/json"

	"github.com/whtvrboo/unfc/nfc"
)

// mDNS discovery constants for host agents on the local network.
const (
	MDNSServiceType = "_unfc-bridge._tcp"
	MDNSDomain      = "local."
)

// DefaultPath is the WebSocket endpoint path host agents serve.
const DefaultPath = "/bridge"

// Frame type constants beyond the inbound event tags.
const (
	frameTypeHello    = "hello"
	frameTypeHelloAck = "helloAck"
)

// frame is the generic wire envelope, covering requests, responses, and
// host-originated events. A frame with an ID correlates to a pending call;
// a frame whose type is an event tag carries an event; anything else is
// ignored.
type frame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Enabled bool            `json:"enabled,omitempty"`
	Tag     *nfc.BridgeTag  `json:"tag,omitempty"`
}

// helloRequest announces this client to the host.
type helloRequest struct {
	ClientName string `json:"clientName"`
	Protocol   string `json:"protocol"` // protocol revision, currently "1"
}

// helloAck is the host's answer, listing the function slots it serves.
type helloAck struct {
	AgentName    string   `json:"agentName,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// isEventFrame reports whether a frame carries a host-originated event.
func isEventFrame(f frame) bool {
	return f.Type == nfc.MessageTagDetected || f.Type == nfc.MessageStatusChanged
}

// eventMessage converts an event frame into the bridge message shape.
func eventMessage(f frame) nfc.BridgeMessage {
	return nfc.BridgeMessage{
		Type:    f.Type,
		Tag:     f.Tag,
		Enabled: f.Enabled,
	}
}
