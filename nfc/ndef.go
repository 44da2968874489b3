package nfc

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Raw NDEF wire codec. The bridges deliver records already split into the
// native shape, but the local radio provider reads whole NDEF messages off
// physical tags and needs the byte-level format.

// record header flag bits
const (
	ndefFlagMB = 1 << 7 // Message Begin
	ndefFlagME = 1 << 6 // Message End
	ndefFlagCF = 1 << 5 // Chunk Flag
	ndefFlagSR = 1 << 4 // Short Record
	ndefFlagIL = 1 << 3 // ID Length present
)

// uriPrefixes is the NDEF URI identifier-code abbreviation table. Index is
// the identifier code from the first payload byte.
var uriPrefixes = []string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
	"ftp://anonymous:anonymous@",
	"ftp://ftp.",
	"ftps://",
}

// ParseNDEF parses raw NDEF message bytes into native records, preserving
// record order. Well-known text and URI records are unpacked into their
// decoded payload form (status byte and prefix abbreviation resolved).
func ParseNDEF(data []byte) ([]NativeRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty NDEF message")
	}

	var records []NativeRecord
	offset := 0

	for offset < len(data) {
		header := data[offset]
		sr := (header & ndefFlagSR) != 0
		il := (header & ndefFlagIL) != 0
		tnf := TNF(header & 0x07)
		pos := offset + 1

		if pos >= len(data) {
			return nil, fmt.Errorf("truncated record header at offset %d", offset)
		}
		typeLen := int(data[pos])
		pos++

		var payloadLen int
		if sr {
			if pos >= len(data) {
				return nil, fmt.Errorf("truncated payload length at offset %d", pos)
			}
			payloadLen = int(data[pos])
			pos++
		} else {
			if pos+4 > len(data) {
				return nil, fmt.Errorf("truncated payload length at offset %d", pos)
			}
			payloadLen = int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
		}

		idLen := 0
		if il {
			if pos >= len(data) {
				return nil, fmt.Errorf("truncated ID length at offset %d", pos)
			}
			idLen = int(data[pos])
			pos++
		}

		if pos+typeLen+idLen+payloadLen > len(data) {
			return nil, fmt.Errorf("record at offset %d overruns message (need %d bytes, have %d)",
				offset, typeLen+idLen+payloadLen, len(data)-pos)
		}

		recType := string(data[pos : pos+typeLen])
		pos += typeLen
		id := string(data[pos : pos+idLen])
		pos += idLen
		payload := data[pos : pos+payloadLen]
		pos += payloadLen

		records = append(records, unpackRawRecord(tnf, recType, id, payload))

		if (header & ndefFlagME) != 0 {
			break
		}
		offset = pos
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records in NDEF message")
	}
	return records, nil
}

// unpackRawRecord converts one parsed wire record into the native shape.
func unpackRawRecord(tnf TNF, recType, id string, payload []byte) NativeRecord {
	rec := NativeRecord{ID: id, Type: recType}

	if tnf == TNFWellKnown && recType == RTDText {
		text, lang, err := unpackTextPayload(payload)
		if err == nil {
			rec.Payload = []byte(text)
			rec.Lang = lang
			return rec
		}
	}
	if tnf == TNFWellKnown && recType == RTDURI {
		if uri, err := unpackURIPayload(payload); err == nil {
			rec.Payload = []byte(uri)
			return rec
		}
	}
	if tnf == TNFEmpty {
		rec.Type = ""
		return rec
	}

	rec.Payload = payload
	return rec
}

// unpackTextPayload extracts text and language from a text record payload.
// The status byte's low six bits carry the language tag length.
func unpackTextPayload(payload []byte) (text, lang string, err error) {
	if len(payload) < 1 {
		return "", "", fmt.Errorf("text record payload too short")
	}
	langLen := int(payload[0] & 0x3F)
	if 1+langLen > len(payload) {
		return "", "", fmt.Errorf("text record language tag overruns payload")
	}
	lang = string(payload[1 : 1+langLen])
	if lang == "" {
		lang = "en"
	}
	return string(payload[1+langLen:]), lang, nil
}

// unpackURIPayload expands the identifier-code abbreviation of a URI record.
func unpackURIPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", fmt.Errorf("URI record payload too short")
	}
	prefix := ""
	if code := int(payload[0]); code < len(uriPrefixes) {
		prefix = uriPrefixes[code]
	}
	return prefix + string(payload[1:]), nil
}

// packTextPayload builds a text record payload (UTF-8 status byte + language
// tag + text).
func packTextPayload(text, lang string) []byte {
	if lang == "" {
		lang = "en"
	}
	if len(lang) > 0x3F {
		lang = lang[:0x3F]
	}
	payload := make([]byte, 1+len(lang)+len(text))
	payload[0] = byte(len(lang))
	copy(payload[1:], lang)
	copy(payload[1+len(lang):], text)
	return payload
}

// packURIPayload builds a URI record payload, abbreviating a known prefix.
func packURIPayload(uri string) []byte {
	code := byte(0)
	rest := uri
	// Longest match wins; skip the empty prefix at index 0.
	for i := 1; i < len(uriPrefixes); i++ {
		p := uriPrefixes[i]
		if strings.HasPrefix(uri, p) && len(p) > len(uriPrefixes[code]) {
			code = byte(i)
			rest = uri[len(p):]
		}
	}
	payload := make([]byte, 1+len(rest))
	payload[0] = code
	copy(payload[1:], rest)
	return payload
}

// EncodeNDEF encodes native records into raw NDEF message bytes, preserving
// order. An empty record list encodes to a single empty record, the
// byte-level representation of an erased tag.
func EncodeNDEF(records []NativeRecord) ([]byte, error) {
	if len(records) == 0 {
		records = []NativeRecord{{}}
	}

	var out []byte
	for i, rec := range records {
		tnf := ClassifyType(rec.Type)
		recType := rec.Type
		payload := rec.Payload

		switch {
		case tnf == TNFWellKnown && rec.Type == RTDText:
			payload = packTextPayload(string(rec.Payload), rec.Lang)
		case tnf == TNFWellKnown && rec.Type == RTDURI:
			payload = packURIPayload(string(rec.Payload))
		case tnf == TNFEmpty:
			recType = ""
			payload = nil
		}

		if len(recType) > 0xFF {
			return nil, fmt.Errorf("record %d: type exceeds 255 bytes (%d)", i, len(recType))
		}
		if len(rec.ID) > 0xFF {
			return nil, fmt.Errorf("record %d: ID exceeds 255 bytes (%d)", i, len(rec.ID))
		}

		header := byte(tnf)
		if i == 0 {
			header |= ndefFlagMB
		}
		if i == len(records)-1 {
			header |= ndefFlagME
		}
		sr := len(payload) <= 0xFF
		if sr {
			header |= ndefFlagSR
		}
		if rec.ID != "" {
			header |= ndefFlagIL
		}

		out = append(out, header, byte(len(recType)))
		if sr {
			out = append(out, byte(len(payload)))
		} else {
			var plen [4]byte
			binary.BigEndian.PutUint32(plen[:], uint32(len(payload)))
			out = append(out, plen[:]...)
		}
		if rec.ID != "" {
			out = append(out, byte(len(rec.ID)))
		}
		out = append(out, recType...)
		if rec.ID != "" {
			out = append(out, rec.ID...)
		}
		out = append(out, payload...)
	}

	return out, nil
}
