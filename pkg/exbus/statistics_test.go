// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"strings"
	"testing"
)

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	d := NewDecoder()

	sub := BuildDataSubPacket(0xA409, 0x0001, []SensorValue{
		{ID: 1, Type: DataType14b, Payload: []byte{0x64, 0x00}},
		{ID: 2, Type: DataType6b, Payload: []byte{0x05}},
	})
	stream := append(BuildChannelFrame(0x01, false, []float64{1500, 1000}), BuildTelemetryResponse(0x02, sub)...)

	for _, e := range feed(d, stream) {
		s.Update([]Event{e}, ValidateEvent(e))
	}

	if s.FramesStarted != 2 || s.FramesCompleted != 2 {
		t.Errorf("frames: got %d started / %d completed, want 2/2", s.FramesStarted, s.FramesCompleted)
	}
	if s.ChannelBlocks != 1 || s.TelemetryBlocks != 1 {
		t.Errorf("blocks: got %d channel / %d telemetry, want 1/1", s.ChannelBlocks, s.TelemetryBlocks)
	}
	if s.DataEntries != 2 {
		t.Errorf("data entries: got %d, want 2", s.DataEntries)
	}
	if s.LengthErrors != 0 || s.ProtocolErrors != 0 {
		t.Errorf("errors: got %d/%d, want none", s.LengthErrors, s.ProtocolErrors)
	}
}

func TestStatistics_CountsErrorsAndAnomalies(t *testing.T) {
	s := NewStatistics()
	d := NewDecoder()

	// Frame claims one byte more than it holds, then an implausible channel
	// pulse in an otherwise valid frame.
	bad := BuildChannelFrame(0x01, false, []float64{1500})
	bad[2]++
	stream := append(bad, BuildChannelFrame(0x02, false, []float64{7000})...)

	for _, e := range feed(d, stream) {
		s.Update([]Event{e}, ValidateEvent(e))
	}

	if s.LengthErrors != 1 {
		t.Errorf("length errors: got %d, want 1", s.LengthErrors)
	}
	if s.Anomalies[AnomalyChannelRange] != 1 {
		t.Errorf("range anomalies: got %d, want 1", s.Anomalies[AnomalyChannelRange])
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update([]Event{{Kind: KindFrameStart}, {Kind: KindLengthError}}, nil)
	s.Reset()
	if s.FramesStarted != 0 || s.LengthErrors != 0 || len(s.Anomalies) != 0 {
		t.Errorf("counters should zero on reset: %+v", s)
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.Update([]Event{{Kind: KindFrameStart}, {Kind: KindFrameComplete}}, nil)
	out := s.String()
	for _, want := range []string{"1 started", "1 completed", "0 length"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary %q should contain %q", out, want)
		}
	}
}
