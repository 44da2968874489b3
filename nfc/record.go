// Package nfc provides a cross-platform abstraction over NFC tag reading and
// writing. It unifies three divergent access paths — a direct radio reader and
// two message-passing bridges to host-controlled native runtimes — behind a
// single backend contract, selected once at construction by the Client.
package nfc

// TNF is the Type Name Format of an NDEF record, a small code classifying how
// the record's type field is interpreted.
type TNF uint8

const (
	TNFEmpty TNF = iota
	TNFWellKnown
	TNFMIMEMedia
	TNFAbsoluteURI
	TNFExternalType
	TNFUnknown
	TNFUnchanged
	TNFReserved
)

// String returns a human-readable name for the TNF.
func (t TNF) String() string {
	switch t {
	case TNFEmpty:
		return "EMPTY"
	case TNFWellKnown:
		return "WELL_KNOWN"
	case TNFMIMEMedia:
		return "MIME_MEDIA"
	case TNFAbsoluteURI:
		return "ABSOLUTE_URI"
	case TNFExternalType:
		return "EXTERNAL_TYPE"
	case TNFUnknown:
		return "UNKNOWN"
	case TNFUnchanged:
		return "UNCHANGED"
	default:
		return "RESERVED"
	}
}

// Well-known RTD (Record Type Definition) short codes.
const (
	RTDText = "T"
	RTDURI  = "U"
)

// Record is the unified representation of a single NDEF record.
//
// Payload always holds the primary representation of the record content.
// Text is populated only for well-known text records, URI only for well-known
// URI records; both mirror Payload when set.
type Record struct {
	ID       string `json:"id,omitempty"`
	TNF      TNF    `json:"tnf"`
	Type     string `json:"type"`
	Payload  string `json:"payload,omitempty"`
	Language string `json:"language,omitempty"` // Text records only
	URI      string `json:"uri,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Message is an ordered sequence of records. Order is meaningful: the first
// record conventionally carries the primary content, and every backend
// preserves it end to end.
type Message []Record

// NewTextMessage builds a single-record text message. Language defaults to
// "en" when empty.
func NewTextMessage(text, language string) Message {
	if language == "" {
		language = "en"
	}
	return Message{{
		TNF:      TNFWellKnown,
		Type:     RTDText,
		Payload:  text,
		Text:     text,
		Language: language,
	}}
}

// NewURIMessage builds a single-record URI message.
func NewURIMessage(uri string) Message {
	return Message{{
		TNF:     TNFWellKnown,
		Type:    RTDURI,
		Payload: uri,
		URI:     uri,
	}}
}

// Status is the result of an enabled check.
type Status struct {
	Enabled bool `json:"enabled"`
}

// EventName identifies a listener channel.
type EventName string

const (
	EventTagDetected   EventName = "tagDetected"
	EventStatusChanged EventName = "nfcStatusChanged"
)

// Event is a normalized event delivered to listeners. The set of event types
// is closed: TagEvent and StatusEvent.
type Event interface {
	eventName() EventName
}

// TagEvent is produced once per physical tap. It is immutable after
// construction and not persisted.
type TagEvent struct {
	ID        string    `json:"id"` // Tag serial number, may be empty
	TechTypes []string  `json:"techTypes"`
	Messages  []Message `json:"messages"`
}

func (TagEvent) eventName() EventName { return EventTagDetected }

// FirstText returns the text of the first text record across all messages.
func (e TagEvent) FirstText() (string, bool) {
	for _, msg := range e.Messages {
		for _, rec := range msg {
			if rec.Text != "" {
				return rec.Text, true
			}
		}
	}
	return "", false
}

// FirstURI returns the URI of the first URI record across all messages.
func (e TagEvent) FirstURI() (string, bool) {
	for _, msg := range e.Messages {
		for _, rec := range msg {
			if rec.URI != "" {
				return rec.URI, true
			}
		}
	}
	return "", false
}

// StatusEvent signals a change in radio availability, not tag presence.
type StatusEvent struct {
	Enabled bool `json:"enabled"`
}

func (StatusEvent) eventName() EventName { return EventStatusChanged }

// ScanOptions controls a scan session.
type ScanOptions struct {
	// Once ends the session automatically after the first detected tag.
	Once bool `json:"once,omitempty"`

	// ScanSoundEnabled plays the platform scan sound where the host bridge
	// supports it. Ignored elsewhere.
	ScanSoundEnabled bool `json:"scanSoundEnabled,omitempty"`

	// AlertMessageEnabled shows the platform scan sheet message where the
	// host bridge supports it. Ignored elsewhere.
	AlertMessageEnabled bool `json:"alertMessageEnabled,omitempty"`
}

// WriteOptions carries the message that replaces the tag content.
type WriteOptions struct {
	Message Message `json:"message"`
}

// ShareOptions carries the message offered over peer-to-peer sharing.
type ShareOptions struct {
	Message Message `json:"message"`
}
