// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"testing"

	"pgregory.net/rapid"
)

// ============================================================
// Decoder Properties
// ============================================================

// A frame decodes the same whether the decoder is fresh or has just finished
// another frame.
func TestProp_DecodeIsFrameStateless(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 24).Draw(t, "channels")
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(rapid.IntRange(6400, 17600).Draw(t, "raw")) / 8
		}
		frame := BuildChannelFrame(byte(rapid.IntRange(0, 255).Draw(t, "pktid")), true, values)

		fresh := NewDecoder()
		freshEvents := feed(fresh, frame)

		warm := NewDecoder()
		feed(warm, telemetryRequestFrame)
		warmEvents := feed(warm, frame)

		freshKinds, warmKinds := kindsOf(freshEvents), kindsOf(warmEvents)
		if len(freshKinds) != len(warmKinds) {
			t.Fatalf("event counts diverge: fresh %v, warm %v", freshKinds, warmKinds)
		}
		for i := range freshKinds {
			if freshKinds[i] != warmKinds[i] {
				t.Fatalf("event %d diverges: fresh %v, warm %v", i, freshKinds, warmKinds)
			}
		}
	})
}

// Non-start bytes between frames never affect the following frame's decode.
func TestProp_InterFrameNoiseIgnored(t *testing.T) {
	isStartByte := func(b byte) bool {
		return b == StartMasterChannelData || b == StartMasterTelemetryReq ||
			b == StartSlaveTelemetryResp || b == StartSlaveUnknownResp
	}

	rapid.Check(t, func(t *rapid.T) {
		noise := rapid.SliceOf(rapid.Byte().Filter(func(b byte) bool { return !isStartByte(b) })).Draw(t, "noise")

		d := NewDecoder()
		if events := feed(d, noise); len(events) != 0 {
			t.Fatalf("noise emitted events: %v", kindsOf(events))
		}
		if !d.Idle() {
			t.Fatal("noise moved the decoder out of idle")
		}
		events := feed(d, telemetryRequestFrame)
		if countKind(events, KindFrameComplete) != 1 {
			t.Fatalf("frame after noise did not complete: %v", kindsOf(events))
		}
	})
}

// Any input whatsoever leaves the decoder able to decode after a reset.
func TestProp_ResetAlwaysRecovers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		garbage := rapid.SliceOf(rapid.Byte()).Draw(t, "garbage")

		d := NewDecoder()
		feed(d, garbage)
		d.Reset()
		events := feed(d, BuildChannelFrame(0x01, false, []float64{1500}))
		if countKind(events, KindFrameComplete) != 1 {
			t.Fatalf("decoder did not recover: %v", kindsOf(events))
		}
	})
}
