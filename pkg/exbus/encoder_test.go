// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"bytes"
	"testing"
)

// ============================================================
// Frame Builder Tests
// ============================================================

func TestBuildTelemetryRequest_WireBytes(t *testing.T) {
	want := []byte{0x3D, 0x01, 0x08, 0x06, 0x3A, 0x00, 0x98, 0x81}
	if got := BuildTelemetryRequest(0x06); !bytes.Equal(got, want) {
		t.Errorf("telemetry request:\n  got  % X\n  want % X", got, want)
	}
}

func TestBuildChannelFrame_WireBytes(t *testing.T) {
	got := BuildChannelFrame(0x06, false, []float64{1500, 1000})
	want := []byte{0x3E, 0x03, 0x0C, 0x06, 0x31, 0x04, 0xE0, 0x2E, 0x40, 0x1F}
	if !bytes.Equal(got[:len(want)], want) {
		t.Errorf("channel frame body:\n  got  % X\n  want % X", got[:len(want)], want)
	}
	if len(got) != 12 {
		t.Errorf("frame length: got %d, want 12", len(got))
	}
	crc := CRC16(got[:10])
	if got[10] != byte(crc) || got[11] != byte(crc>>8) {
		t.Errorf("trailer: got % X, want LSB-first 0x%04X", got[10:], crc)
	}
}

func TestBuildChannelFrame_ResponseFlag(t *testing.T) {
	if got := BuildChannelFrame(0x01, true, nil)[1]; got != FlagRequestResponse {
		t.Errorf("flag: got 0x%02X, want 0x01", got)
	}
	if got := BuildChannelFrame(0x01, false, nil)[1]; got != FlagNoResponse {
		t.Errorf("flag: got 0x%02X, want 0x03", got)
	}
}

func TestBuildDataSubPacket_TypeLengthByte(t *testing.T) {
	sub := BuildDataSubPacket(0xA400, 0x0001, []SensorValue{
		{ID: 3, Type: DataType14b, Payload: []byte{0x64, 0x00}},
	})
	if sub[0] != TelemetryStartMarker {
		t.Errorf("start marker: got 0x%02X", sub[0])
	}
	// Top two bits 01 (data), bottom six count every byte after the marker
	// except the CRC8.
	wantTypeLen := byte(SubData)<<6 | byte(len(sub)-2)
	if sub[1] != wantTypeLen {
		t.Errorf("type/length byte: got 0x%02X, want 0x%02X", sub[1], wantTypeLen)
	}
	if got := sub[len(sub)-1]; got != CRC8(sub[1:len(sub)-1]) {
		t.Errorf("sub-packet CRC8: got 0x%02X, want 0x%02X", got, CRC8(sub[1:len(sub)-1]))
	}
}

func TestBuildTextSubPacket_Truncation(t *testing.T) {
	long := "this description exceeds the thirty-one character field"
	sub := BuildTextSubPacket(0xA400, 0x0001, 1, long, "unit too long")

	d := NewDecoder()
	events := feed(d, BuildTelemetryResponse(0x01, sub))
	entry := findEvent(t, events, KindTextEntry)
	desc, _ := entry.Str("description")
	unit, _ := entry.Str("unit")
	if len(desc) != 31 || desc != long[:31] {
		t.Errorf("description should truncate to 31 chars: got %q", desc)
	}
	if len(unit) != 7 {
		t.Errorf("unit should truncate to 7 chars: got %q", unit)
	}
}

// ============================================================
// Round-Trip Tests
// ============================================================

func TestBuildTelemetryResponse_RoundTrip(t *testing.T) {
	sub := BuildDataSubPacket(0xA409, 0x0203, []SensorValue{
		{ID: 1, Type: DataType22b, Payload: []byte{0x10, 0x27, 0x00}},
	})
	d := NewDecoder()
	events := feed(d, BuildTelemetryResponse(0x11, sub))

	if id, _ := findEvent(t, events, KindPacketID).Int("id"); id != 0x11 {
		t.Errorf("packet id: got 0x%02X, want 0x11", id)
	}
	if id, _ := findEvent(t, events, KindManufacturerID).Int("id"); id != 0xA409 {
		t.Errorf("manufacturer id: got 0x%04X, want 0xA409", id)
	}
	if id, _ := findEvent(t, events, KindDeviceID).Int("id"); id != 0x0203 {
		t.Errorf("device id: got 0x%04X, want 0x0203", id)
	}
	if countKind(events, KindFrameComplete) != 1 {
		t.Errorf("built frame should decode completely: %v", kindsOf(events))
	}
}
