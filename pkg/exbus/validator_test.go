// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import "testing"

// ============================================================
// Channel Plausibility Tests
// ============================================================

func TestValidateEvent_ChannelRange(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		anomalies int
	}{
		{"nominal servo band", []float64{1000, 1500, 2000}, 0},
		{"extended but plausible", []float64{900, 2100}, 0},
		{"unused zero slots", []float64{1500, 0, 0}, 0},
		{"below plausible band", []float64{500}, 1},
		{"above plausible band", []float64{3000}, 1},
		{"mixed", []float64{1500, 100, 7000}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{Kind: KindChannelValues, Fields: map[string]any{"values": tt.values}}
			errs := ValidateEvent(e)
			if len(errs) != tt.anomalies {
				t.Errorf("got %d anomalies (%v), want %d", len(errs), errs, tt.anomalies)
			}
			for _, err := range errs {
				if err.Type != AnomalyChannelRange {
					t.Errorf("anomaly type: got %v, want channel-range", err.Type)
				}
			}
		})
	}
}

func TestValidateEvent_ChannelCount(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 1500
	}
	e := Event{Kind: KindChannelValues, Fields: map[string]any{"values": values}}
	errs := ValidateEvent(e)
	if len(errs) != 1 || errs[0].Type != AnomalyChannelCount {
		t.Errorf("got %v, want one channel-count anomaly", errs)
	}
}

// ============================================================
// Text Entry Plausibility Tests
// ============================================================

func TestValidateEvent_EmptyText(t *testing.T) {
	e := Event{Kind: KindTextEntry, Fields: map[string]any{"id": 9, "description": "", "unit": ""}}
	errs := ValidateEvent(e)
	if len(errs) != 1 || errs[0].Type != AnomalyEmptyText {
		t.Errorf("got %v, want one empty-text anomaly", errs)
	}

	e.Fields["description"] = "Volt"
	if errs := ValidateEvent(e); len(errs) != 0 {
		t.Errorf("labeled entry should pass: %v", errs)
	}
}

// ============================================================
// Sub-Packet Length Claim Tests
// ============================================================

func TestValidateEvent_SubPacketLength(t *testing.T) {
	e := Event{Kind: KindTelemetryEnd, Fields: map[string]any{"crc8": 0x55, "declared": 12, "consumed": 12}}
	if errs := ValidateEvent(e); len(errs) != 0 {
		t.Errorf("matching length claim should pass: %v", errs)
	}

	e.Fields["declared"] = 9
	errs := ValidateEvent(e)
	if len(errs) != 1 || errs[0].Type != AnomalySubLength {
		t.Errorf("got %v, want one sub-packet-length anomaly", errs)
	}
}

func TestValidateEvent_BuiltSubPacketLengthMatches(t *testing.T) {
	// The builder derives the length field from the body, so decoding its
	// output must never flag a length anomaly.
	sub := BuildDataSubPacket(0xA409, 0x0001, []SensorValue{
		{ID: 1, Type: DataType6b, Payload: []byte{0x2A}},
	})
	d := NewDecoder()
	for _, e := range feed(d, BuildTelemetryResponse(0x01, sub)) {
		if errs := ValidateEvent(e); len(errs) != 0 {
			t.Errorf("%v: unexpected anomalies %v", e.Kind, errs)
		}
	}
}

func TestValidateEvent_OtherKindsPass(t *testing.T) {
	for _, kind := range []Kind{KindFrameStart, KindPacketID, KindDataEntry, KindFrameComplete, KindLengthError} {
		e := Event{Kind: kind, Fields: map[string]any{}}
		if errs := ValidateEvent(e); len(errs) != 0 {
			t.Errorf("%v: got %v, want none", kind, errs)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Type: AnomalyChannelRange, Message: "pulse out of range", Details: "7000us"}
	want := "channel-range: pulse out of range (7000us)"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
