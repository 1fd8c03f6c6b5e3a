// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import "time"

// telemetryDecoder holds the inner EX telemetry state. It is driven by the
// enclosing block's byte position, not by its own counter, so it never drifts
// from the framing state machine.
type telemetryDecoder struct {
	subType   SubPacketType
	subLength int

	entryIdx    int
	entryID     int
	entryType   byte
	entryLength int
	descLength  int
	unitLength  int

	payload []byte
	text    []byte

	entryStart time.Time
	fieldStart time.Time
	fieldLow   byte
}

func (t *telemetryDecoder) reset() {
	payload := t.payload[:0]
	text := t.text[:0]
	*t = telemetryDecoder{payload: payload, text: text}
}

// decodeTelemetryByte parses the EX telemetry sub-packet nested inside a
// telemetry data block: start marker, type/length, manufacturer and device
// ids, a reserved byte, then a sequence of variable-length sensor entries.
// The final block byte is the sub-packet's own CRC8, consumed unverified.
func (d *Decoder) decodeTelemetryByte(b byte, start, end time.Time) []Event {
	t := &d.tlm
	if d.blockByteIdx >= d.blockLength {
		ev := Event{
			Kind:  KindTelemetryEnd,
			Start: start,
			End:   end,
			Fields: map[string]any{
				"crc8": int(b),
				// The header's length claim versus what the block actually
				// held (marker and CRC8 excluded); validation compares them.
				"declared": t.subLength,
				"consumed": d.blockLength - 2,
			},
		}
		return d.finishBlock(ev, start, end)
	}

	switch d.blockByteIdx {
	case posStartMarker:
		if b&0x0F != TelemetryStartMarker {
			// Marker mismatches are tolerated; the bytes still count toward
			// the block so the frame stays aligned.
			return nil
		}
		return []Event{{Kind: KindTelemetryStart, Start: start, End: end}}
	case posTypeLength:
		t.subType = subPacketTypeFromBits(b >> 6)
		t.subLength = int(b & 0x3F)
		return []Event{{
			Kind:   KindTelemetryHeader,
			Start:  start,
			End:    end,
			Fields: map[string]any{"type": t.subType, "length": t.subLength},
		}}
	case posManufacturerID:
		t.fieldStart = start
		t.fieldLow = b
		return nil
	case posManufacturerID + 1:
		return []Event{{
			Kind:   KindManufacturerID,
			Start:  t.fieldStart,
			End:    end,
			Fields: map[string]any{"id": int(b)<<8 | int(t.fieldLow)},
		}}
	case posDeviceID:
		t.fieldStart = start
		t.fieldLow = b
		return nil
	case posDeviceID + 1:
		return []Event{{
			Kind:   KindDeviceID,
			Start:  t.fieldStart,
			End:    end,
			Fields: map[string]any{"id": int(b)<<8 | int(t.fieldLow)},
		}}
	case posReserved:
		t.entryIdx = 0
		return []Event{{
			Kind:   KindReserved,
			Start:  start,
			End:    end,
			Fields: map[string]any{"value": int(b)},
		}}
	}

	// Entry region: posFirstEntry .. blockLength-1.
	switch t.subType {
	case SubData:
		return d.decodeDataEntryByte(b, start, end)
	case SubText:
		return d.decodeTextEntryByte(b, start, end)
	default:
		// Message sub-packets are consumed without decoding. Extension
		// point, not a defect: no capture with message payloads has been
		// available to validate a decoder against.
		return nil
	}
}

func (d *Decoder) decodeDataEntryByte(b byte, start, end time.Time) []Event {
	t := &d.tlm
	t.entryIdx++
	switch {
	case t.entryIdx == 1:
		t.entryStart = start
		t.entryID = int(b >> 4)
		t.entryType = b & 0x0F
		n, ok := dataTypeLengths[t.entryType]
		if !ok {
			return d.protocolError(b, start, end, "unknown telemetry data type nibble")
		}
		// Entry length includes the id/type byte itself.
		t.entryLength = n + 1
		if t.entryID == 0 {
			// Id 0 escapes to a full id byte, lengthening the entry by one.
			t.entryLength++
		}
		t.payload = t.payload[:0]
		return nil
	case t.entryIdx == 2 && t.entryID == 0:
		t.entryID = int(b)
		return nil
	case t.entryIdx >= t.entryLength:
		t.payload = append(t.payload, b)
		ev := Event{
			Kind:  KindDataEntry,
			Start: t.entryStart,
			End:   end,
			Fields: map[string]any{
				"id":      t.entryID,
				"type":    int(t.entryType),
				"payload": append([]byte(nil), t.payload...),
			},
		}
		t.entryIdx = 0
		return []Event{ev}
	default:
		// Middle byte of a multi-byte entry, no event.
		t.payload = append(t.payload, b)
		return nil
	}
}

func (d *Decoder) decodeTextEntryByte(b byte, start, end time.Time) []Event {
	t := &d.tlm
	t.entryIdx++
	switch {
	case t.entryIdx == 1:
		t.entryStart = start
		t.entryID = int(b)
		return nil
	case t.entryIdx == 2:
		t.descLength = int(b >> 3)
		t.unitLength = int(b & 0x07)
		t.text = t.text[:0]
		if t.descLength+t.unitLength == 0 {
			t.entryIdx = 0
			return []Event{t.textEntryEvent(end)}
		}
		return nil
	default:
		if b >= 0x20 && b < 0x7F {
			t.text = append(t.text, b)
		} else {
			// Best-effort character decoding: unprintable bytes become '?'.
			t.text = append(t.text, '?')
		}
		if t.entryIdx >= 2+t.descLength+t.unitLength {
			ev := t.textEntryEvent(end)
			t.entryIdx = 0
			return []Event{ev}
		}
		return nil
	}
}

func (t *telemetryDecoder) textEntryEvent(end time.Time) Event {
	split := min(t.descLength, len(t.text))
	return Event{
		Kind:  KindTextEntry,
		Start: t.entryStart,
		End:   end,
		Fields: map[string]any{
			"id":          t.entryID,
			"description": string(t.text[:split]),
			"unit":        string(t.text[split:]),
		},
	}
}
