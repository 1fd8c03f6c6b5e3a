// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"strings"
	"testing"
)

// ============================================================
// Compact Tag Tests
// ============================================================

func TestFormatEventCompact_Tags(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			"channel data start",
			Event{Kind: KindFrameStart, Fields: map[string]any{"role": RoleMasterChannelData}},
			"Mstr:ChData",
		},
		{
			"telemetry request start",
			Event{Kind: KindFrameStart, Fields: map[string]any{"role": RoleMasterTelemetryRequest}},
			"Mstr:Tlm?",
		},
		{
			"slave response start",
			Event{Kind: KindFrameStart, Fields: map[string]any{"role": RoleSlaveTelemetryResponse}},
			"Slv:Rsp",
		},
		{
			"response required",
			Event{Kind: KindResponseFlag, Fields: map[string]any{"response_required": true}},
			"Mstr:ReqResp",
		},
		{
			"no response",
			Event{Kind: KindResponseFlag, Fields: map[string]any{"response_required": false}},
			"Mstr:NoResp",
		},
		{
			"slave echo",
			Event{Kind: KindResponseFlag, Fields: map[string]any{"echo": true}},
			"Slv:Resp",
		},
		{
			"channel identifier",
			Event{Kind: KindDataIdentifier, Fields: map[string]any{"block": BlockChannelValues}},
			"Chan",
		},
		{
			"jetibox identifier",
			Event{Kind: KindDataIdentifier, Fields: map[string]any{"block": BlockJetiBox}},
			"JetiBx",
		},
		{
			"unknown identifier",
			Event{Kind: KindDataIdentifier, Fields: map[string]any{"block": BlockUnknown}},
			"???",
		},
		{
			"text sub-packet",
			Event{Kind: KindTelemetryHeader, Fields: map[string]any{"type": SubText}},
			"TxtPkt",
		},
		{
			"data sub-packet",
			Event{Kind: KindTelemetryHeader, Fields: map[string]any{"type": SubData}},
			"DataPkt",
		},
		{
			"data entry",
			Event{Kind: KindDataEntry, Fields: map[string]any{"id": 3, "type": 1}},
			"Data ID:3 type:1",
		},
		{
			"frame complete",
			Event{Kind: KindFrameComplete, Fields: map[string]any{"length": 12}},
			"PktCrc",
		},
		{
			"length error",
			Event{Kind: KindLengthError, Fields: map[string]any{"declared": 13, "index": 12}},
			"PktLenErr!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatEventCompact(tt.event); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================
// Description Tests
// ============================================================

func TestDescribeEvent_DecodedStream(t *testing.T) {
	// Every event from a real decode should describe without falling back to
	// the raw kind name.
	d := NewDecoder()
	sub := BuildDataSubPacket(0xA409, 0x0001, []SensorValue{
		{ID: 1, Type: DataType14b, Payload: []byte{0x64, 0x00}},
	})
	stream := append(BuildChannelFrame(0x01, false, []float64{1500}), BuildTelemetryResponse(0x02, sub)...)

	for _, e := range feed(d, stream) {
		desc := DescribeEvent(e)
		if desc == "" || desc == e.Kind.String() {
			t.Errorf("%v: no description (%q)", e.Kind, desc)
		}
		line := FormatEvent(e)
		if !strings.Contains(line, desc) {
			t.Errorf("%v: log line %q should embed description %q", e.Kind, line, desc)
		}
	}
}

func TestFormatChannels(t *testing.T) {
	if got := FormatChannels(nil); got != "(none)" {
		t.Errorf("empty: got %q", got)
	}
	if got := FormatChannels([]float64{1500, 1000.125}); got != "Ch1:1500us, Ch2:1000us" {
		t.Errorf("got %q", got)
	}
}
