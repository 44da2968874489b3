package nfc

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// NativeRecord is the raw record shape shared by the radio reader and the
// host bridges: a short type code (or MIME type / absolute URI / external
// domain), the undecoded payload bytes, and an optional language tag.
type NativeRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
	Lang    string `json:"lang,omitempty"`
}

// ClassifyType maps a native record type string onto a TNF.
//
// An empty type is an empty record; the text and URI RTD codes are well
// known; a type containing "/" is a MIME media type; a "urn:" prefix is an
// absolute URI; everything else is treated as an external type.
func ClassifyType(recordType string) TNF {
	switch {
	case recordType == "":
		return TNFEmpty
	case recordType == RTDText || recordType == RTDURI:
		return TNFWellKnown
	case strings.Contains(recordType, "/"):
		return TNFMIMEMedia
	case strings.HasPrefix(recordType, "urn:"):
		return TNFAbsoluteURI
	default:
		return TNFExternalType
	}
}

// UnifyRecord converts a native record into the unified model.
//
// Text records decode into both Payload and Text, with the language tag
// defaulting to "en". URI records decode into both Payload and URI. Any other
// payload is decoded as text when valid, otherwise represented as lowercase
// hex, two digits per byte, no separator.
func UnifyRecord(n NativeRecord) Record {
	rec := Record{
		ID:   n.ID,
		TNF:  ClassifyType(n.Type),
		Type: n.Type,
	}
	switch n.Type {
	case RTDText:
		text := string(n.Payload)
		rec.Payload = text
		rec.Text = text
		rec.Language = n.Lang
		if rec.Language == "" {
			rec.Language = "en"
		}
	case RTDURI:
		uri := string(n.Payload)
		rec.Payload = uri
		rec.URI = uri
	default:
		rec.Payload = decodePayload(n.Payload)
	}
	return rec
}

// NativeRecordFrom is the inverse of UnifyRecord, keyed off the unified
// type's short code. Unknown codes pass through verbatim as an opaque
// type/data pair.
func NativeRecordFrom(rec Record) NativeRecord {
	switch rec.Type {
	case RTDText:
		data := rec.Payload
		if data == "" {
			data = rec.Text
		}
		lang := rec.Language
		if lang == "" {
			lang = "en"
		}
		return NativeRecord{ID: rec.ID, Type: RTDText, Payload: []byte(data), Lang: lang}
	case RTDURI:
		data := rec.Payload
		if data == "" {
			data = rec.URI
		}
		return NativeRecord{ID: rec.ID, Type: RTDURI, Payload: []byte(data)}
	default:
		return NativeRecord{ID: rec.ID, Type: rec.Type, Payload: []byte(rec.Payload)}
	}
}

// UnifyMessage converts a native record sequence, preserving order.
func UnifyMessage(records []NativeRecord) Message {
	msg := make(Message, 0, len(records))
	for _, n := range records {
		msg = append(msg, UnifyRecord(n))
	}
	return msg
}

// NativeMessageFrom converts a unified message back into native records,
// preserving order.
func NativeMessageFrom(msg Message) []NativeRecord {
	records := make([]NativeRecord, 0, len(msg))
	for _, rec := range msg {
		records = append(records, NativeRecordFrom(rec))
	}
	return records
}

// decodePayload renders payload bytes as text, falling back to lowercase hex
// when the bytes are not valid text.
func decodePayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	if utf8.Valid(payload) {
		return string(payload)
	}
	return hex.EncodeToString(payload)
}

// RadioTechNDEF is the sole technology type reported for radio-sourced
// detections; the radio path exposes no lower-level technology info.
const RadioTechNDEF = "ndef"

// Well-known technology categories for bridge-reported tech lists.
const (
	TechNfcA             = "nfca"
	TechNfcB             = "nfcb"
	TechNfcF             = "nfcf"
	TechNfcV             = "nfcv"
	TechIsoDep           = "isodep"
	TechNDEF             = "ndef"
	TechNDEFFormatable   = "ndefformatable"
	TechMifareClassic    = "mifareclassic"
	TechMifareUltralight = "mifareultralight"
	TechUnknown          = "unknown"
)

// ClassifyTech maps a raw tag technology code (e.g. "android.nfc.tech.NfcA")
// onto one of the well-known categories. Codes already in short form pass
// through; anything unrecognized maps to TechUnknown.
func ClassifyTech(code string) string {
	short := code
	if i := strings.LastIndex(code, "."); i >= 0 {
		short = code[i+1:]
	}
	switch strings.ToLower(short) {
	case TechNfcA:
		return TechNfcA
	case TechNfcB:
		return TechNfcB
	case TechNfcF:
		return TechNfcF
	case TechNfcV:
		return TechNfcV
	case TechIsoDep:
		return TechIsoDep
	case TechNDEF:
		return TechNDEF
	case TechNDEFFormatable:
		return TechNDEFFormatable
	case TechMifareClassic:
		return TechMifareClassic
	case TechMifareUltralight:
		return TechMifareUltralight
	default:
		return TechUnknown
	}
}
