package localradio

import (
	"fmt"

	unfc "github.com/whtvrboo/unfc/nfc"
)

// Type 2 tag memory access over raw command exchange. NTAG21x-family tags
// expose a 4-byte-page memory with READ (returns 16 bytes) and WRITE (one
// page) commands; the NDEF message lives in a TLV block starting at the
// first user page.

// transceiver exchanges one raw command with the selected tag.
type transceiver interface {
	Transceive(tx []byte) ([]byte, error)
}

const (
	type2CmdRead  = 0x30
	type2CmdWrite = 0xA2

	type2UserStartPage = 4
	type2PageSize      = 4

	ccMagic = 0xE1
)

// TLV types within the data area.
const (
	tlvNull       = 0x00
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
)

// readCapacity reads the capability container on page 3 and returns the data
// area size in bytes.
func readCapacity(t transceiver) (int, error) {
	resp, err := t.Transceive([]byte{type2CmdRead, 0x00})
	if err != nil {
		return 0, fmt.Errorf("reading capability container: %w", err)
	}
	if len(resp) < 16 {
		return 0, fmt.Errorf("short capability container read (%d bytes)", len(resp))
	}
	cc := resp[12:16]
	if cc[0] != ccMagic {
		return 0, fmt.Errorf("tag carries no NDEF capability container")
	}
	return int(cc[2]) * 8, nil
}

// readNDEFMessage reads the tag's data area, locates the NDEF message TLV,
// and parses it into native records. A present but empty message yields nil
// records without an error.
func readNDEFMessage(t transceiver) ([]unfc.NativeRecord, error) {
	capacity, err := readCapacity(t)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, capacity)
	for page := type2UserStartPage; len(data) < capacity; page += 4 {
		resp, err := t.Transceive([]byte{type2CmdRead, byte(page)})
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", page, err)
		}
		if len(resp) < 16 {
			return nil, fmt.Errorf("short read at page %d (%d bytes)", page, len(resp))
		}
		data = append(data, resp[:16]...)
	}
	if len(data) > capacity {
		data = data[:capacity]
	}

	msg, ok := findNDEFTLV(data)
	if !ok {
		return nil, fmt.Errorf("no NDEF message TLV on tag")
	}
	if len(msg) == 0 {
		return nil, nil
	}
	return unfc.ParseNDEF(msg)
}

// writeNDEFMessage encodes the records and writes the TLV-wrapped message
// into the tag's data area page by page.
func writeNDEFMessage(t transceiver, records []unfc.NativeRecord) error {
	capacity, err := readCapacity(t)
	if err != nil {
		return err
	}
	msg, err := unfc.EncodeNDEF(records)
	if err != nil {
		return err
	}
	payload := encodeNDEFTLV(msg)
	if len(payload) > capacity {
		return fmt.Errorf("NDEF message too large (%d bytes, tag holds %d)", len(payload), capacity)
	}

	offset := 0
	for page := type2UserStartPage; offset < len(payload); page++ {
		var chunk [type2PageSize]byte
		offset += copy(chunk[:], payload[offset:])
		cmd := append([]byte{type2CmdWrite, byte(page)}, chunk[:]...)
		if _, err := t.Transceive(cmd); err != nil {
			return fmt.Errorf("writing page %d: %w", page, err)
		}
	}
	return nil
}

// findNDEFTLV walks the TLV block and returns the NDEF message value. Null
// TLVs are skipped; the walk stops at the terminator.
func findNDEFTLV(data []byte) ([]byte, bool) {
	offset := 0
	for offset < len(data) {
		switch data[offset] {
		case tlvNull:
			offset++
		case tlvTerminator:
			return nil, false
		default:
			value, next, ok := readTLV(data, offset)
			if !ok {
				return nil, false
			}
			if data[offset] == tlvNDEF {
				return value, true
			}
			offset = next
		}
	}
	return nil, false
}

// readTLV decodes the length form at offset and returns the value and the
// offset of the next TLV. Lengths of 0xFF switch to the three-byte form.
func readTLV(data []byte, offset int) (value []byte, next int, ok bool) {
	if offset+1 >= len(data) {
		return nil, 0, false
	}
	length := int(data[offset+1])
	valueStart := offset + 2
	if length == 0xFF {
		if offset+3 >= len(data) {
			return nil, 0, false
		}
		length = int(data[offset+2])<<8 | int(data[offset+3])
		valueStart = offset + 4
	}
	if valueStart+length > len(data) {
		return nil, 0, false
	}
	return data[valueStart : valueStart+length], valueStart + length, true
}

// encodeNDEFTLV wraps an encoded NDEF message in its TLV container, followed
// by the terminator.
func encodeNDEFTLV(msg []byte) []byte {
	out := []byte{tlvNDEF}
	if len(msg) < 0xFF {
		out = append(out, byte(len(msg)))
	} else {
		out = append(out, 0xFF, byte(len(msg)>>8), byte(len(msg)))
	}
	out = append(out, msg...)
	return append(out, tlvTerminator)
}
