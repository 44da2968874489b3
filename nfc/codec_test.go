package nfc

import (
	"reflect"
	"testing"
)

func TestClassifyType(t *testing.T) {
	tests := []struct {
		recordType string
		want       TNF
	}{
		{"", TNFEmpty},
		{"T", TNFWellKnown},
		{"U", TNFWellKnown},
		{"application/json", TNFMIMEMedia},
		{"text/plain", TNFMIMEMedia},
		{"urn:nfc:ext:example", TNFAbsoluteURI},
		{"example.com:custom", TNFExternalType},
		{"X", TNFExternalType},
	}
	for _, tt := range tests {
		t.Run(tt.recordType, func(t *testing.T) {
			if got := ClassifyType(tt.recordType); got != tt.want {
				t.Errorf("ClassifyType(%q) = %v, want %v", tt.recordType, got, tt.want)
			}
		})
	}
}

func TestTNFString(t *testing.T) {
	tests := []struct {
		tnf  TNF
		want string
	}{
		{TNFEmpty, "EMPTY"},
		{TNFWellKnown, "WELL_KNOWN"},
		{TNFMIMEMedia, "MIME_MEDIA"},
		{TNFAbsoluteURI, "ABSOLUTE_URI"},
		{TNFExternalType, "EXTERNAL_TYPE"},
		{TNFUnknown, "UNKNOWN"},
		{TNFUnchanged, "UNCHANGED"},
		{TNFReserved, "RESERVED"},
	}
	for _, tt := range tests {
		if got := tt.tnf.String(); got != tt.want {
			t.Errorf("TNF(%d).String() = %q, want %q", tt.tnf, got, tt.want)
		}
	}
}

func TestUnifyRecordText(t *testing.T) {
	rec := UnifyRecord(NativeRecord{Type: "T", Payload: []byte("hello"), Lang: "de"})
	if rec.TNF != TNFWellKnown {
		t.Errorf("TNF = %v, want %v", rec.TNF, TNFWellKnown)
	}
	if rec.Text != "hello" || rec.Payload != "hello" {
		t.Errorf("Text = %q, Payload = %q, want both %q", rec.Text, rec.Payload, "hello")
	}
	if rec.Language != "de" {
		t.Errorf("Language = %q, want %q", rec.Language, "de")
	}
}

func TestUnifyRecordTextDefaultLanguage(t *testing.T) {
	rec := UnifyRecord(NativeRecord{Type: "T", Payload: []byte("hi")})
	if rec.Language != "en" {
		t.Errorf("Language = %q, want %q", rec.Language, "en")
	}
}

func TestUnifyRecordURI(t *testing.T) {
	rec := UnifyRecord(NativeRecord{Type: "U", Payload: []byte("https://example.com")})
	if rec.URI != "https://example.com" {
		t.Errorf("URI = %q, want %q", rec.URI, "https://example.com")
	}
	if rec.Payload != "https://example.com" {
		t.Errorf("Payload = %q, want %q", rec.Payload, "https://example.com")
	}
	if rec.Text != "" {
		t.Errorf("Text = %q, want empty", rec.Text)
	}
}

func TestUnifyRecordBinaryFallsBackToHex(t *testing.T) {
	rec := UnifyRecord(NativeRecord{Type: "application/octet-stream", Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	if rec.Payload != "deadbeef" {
		t.Errorf("Payload = %q, want %q", rec.Payload, "deadbeef")
	}
}

func TestUnifyRecordTextualMIMEStaysText(t *testing.T) {
	rec := UnifyRecord(NativeRecord{Type: "application/json", Payload: []byte(`{"a":1}`)})
	if rec.Payload != `{"a":1}` {
		t.Errorf("Payload = %q, want %q", rec.Payload, `{"a":1}`)
	}
	if rec.TNF != TNFMIMEMedia {
		t.Errorf("TNF = %v, want %v", rec.TNF, TNFMIMEMedia)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  NativeRecord
	}{
		{"text", NativeRecord{Type: "T", Payload: []byte("greetings"), Lang: "en"}},
		{"uri", NativeRecord{Type: "U", Payload: []byte("tel:+15551234567")}},
		{"mime", NativeRecord{Type: "text/plain", Payload: []byte("raw body")}},
		{"with id", NativeRecord{ID: "r0", Type: "T", Payload: []byte("x"), Lang: "fr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NativeRecordFrom(UnifyRecord(tt.rec))
			if !reflect.DeepEqual(got, tt.rec) {
				t.Errorf("round trip = %+v, want %+v", got, tt.rec)
			}
		})
	}
}

func TestNativeRecordFromFallbackFields(t *testing.T) {
	// Text and URI fields serve as the payload when Payload is unset.
	text := NativeRecordFrom(Record{Type: "T", Text: "fallback"})
	if string(text.Payload) != "fallback" {
		t.Errorf("text Payload = %q, want %q", text.Payload, "fallback")
	}
	if text.Lang != "en" {
		t.Errorf("text Lang = %q, want %q", text.Lang, "en")
	}
	uri := NativeRecordFrom(Record{Type: "U", URI: "https://example.com"})
	if string(uri.Payload) != "https://example.com" {
		t.Errorf("uri Payload = %q, want %q", uri.Payload, "https://example.com")
	}
}

func TestUnifyMessagePreservesOrder(t *testing.T) {
	msg := UnifyMessage([]NativeRecord{
		{Type: "T", Payload: []byte("first")},
		{Type: "U", Payload: []byte("https://second")},
		{Type: "text/plain", Payload: []byte("third")},
	})
	if len(msg) != 3 {
		t.Fatalf("len(msg) = %d, want 3", len(msg))
	}
	if msg[0].Text != "first" || msg[1].URI != "https://second" || msg[2].Payload != "third" {
		t.Errorf("record order not preserved: %+v", msg)
	}
}

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage("hello", "")
	if len(msg) != 1 {
		t.Fatalf("len(msg) = %d, want 1", len(msg))
	}
	rec := msg[0]
	if rec.Type != RTDText || rec.TNF != TNFWellKnown {
		t.Errorf("Type = %q TNF = %v, want %q %v", rec.Type, rec.TNF, RTDText, TNFWellKnown)
	}
	if rec.Text != "hello" || rec.Payload != "hello" {
		t.Errorf("Text = %q Payload = %q, want both %q", rec.Text, rec.Payload, "hello")
	}
	if rec.Language != "en" {
		t.Errorf("Language = %q, want %q", rec.Language, "en")
	}
}

func TestNewURIMessage(t *testing.T) {
	msg := NewURIMessage("mailto:a@example.com")
	if len(msg) != 1 {
		t.Fatalf("len(msg) = %d, want 1", len(msg))
	}
	if msg[0].URI != "mailto:a@example.com" || msg[0].Type != RTDURI {
		t.Errorf("record = %+v, want URI record", msg[0])
	}
}

func TestTagEventFirstText(t *testing.T) {
	ev := TagEvent{Messages: []Message{
		NewURIMessage("https://example.com"),
		NewTextMessage("found me", "en"),
	}}
	text, ok := ev.FirstText()
	if !ok || text != "found me" {
		t.Errorf("FirstText() = %q, %v, want %q, true", text, ok, "found me")
	}
	uri, ok := ev.FirstURI()
	if !ok || uri != "https://example.com" {
		t.Errorf("FirstURI() = %q, %v, want %q, true", uri, ok, "https://example.com")
	}
}

func TestTagEventFirstTextAbsent(t *testing.T) {
	ev := TagEvent{Messages: []Message{NewURIMessage("https://example.com")}}
	if text, ok := ev.FirstText(); ok {
		t.Errorf("FirstText() = %q, true, want false", text)
	}
}

func TestClassifyTech(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"android.nfc.tech.NfcA", TechNfcA},
		{"android.nfc.tech.IsoDep", TechIsoDep},
		{"android.nfc.tech.Ndef", TechNDEF},
		{"android.nfc.tech.NdefFormatable", TechNDEFFormatable},
		{"android.nfc.tech.MifareClassic", TechMifareClassic},
		{"android.nfc.tech.MifareUltralight", TechMifareUltralight},
		{"ndef", TechNDEF},
		{"NFCB", TechNfcB},
		{"nfcf", TechNfcF},
		{"nfcv", TechNfcV},
		{"com.example.SomethingElse", TechUnknown},
		{"", TechUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ClassifyTech(tt.code); got != tt.want {
				t.Errorf("ClassifyTech(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
