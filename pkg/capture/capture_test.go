// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package capture

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Capture File Round-Trip Tests
// ============================================================

func TestCapture_RoundTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	want := []Sample{
		NewSample(0x3D, base, base.Add(80*time.Microsecond)),
		NewSample(0x01, base.Add(80*time.Microsecond), base.Add(160*time.Microsecond)),
		NewSample(0xFF, base.Add(time.Second), base.Add(time.Second+80*time.Microsecond)),
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, s := range want {
		if err := w.Append(s); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if h := r.Header(); h.Magic != Magic || h.Version != Version {
		t.Errorf("header: %+v", h)
	}
	for i, wantSample := range want {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if got != wantSample {
			t.Errorf("sample %d: got %+v, want %+v", i, got, wantSample)
		}
		if !got.Start().Equal(wantSample.Start()) || !got.End().Equal(wantSample.End()) {
			t.Errorf("sample %d times: got [%v, %v]", i, got.Start(), got.End())
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("after last sample: got %v, want io.EOF", err)
	}
}

func TestNewReader_RejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not cbor", []byte("hello world, definitely not a capture")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewReader(bytes.NewReader(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewReader_RejectsWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWriter(&buf); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	raw := buf.Bytes()
	// Corrupt the magic string in place.
	idx := bytes.Index(raw, []byte(Magic))
	if idx < 0 {
		t.Fatal("magic not found in encoded header")
	}
	raw[idx] = 'X'

	if _, err := NewReader(bytes.NewReader(raw)); err == nil {
		t.Error("expected a magic mismatch error")
	}
}

// ============================================================
// CSV Import Tests
// ============================================================

func TestReadCSV_AnalyzerExport(t *testing.T) {
	const byteDuration = 80 * time.Microsecond
	input := strings.Join([]string{
		"Time [s],Value",
		"1.000000,0x3D",
		"1.000080,0x01",
		"1.000160,8",
		"",
	}, "\n")

	samples, err := ReadCSV(strings.NewReader(input), byteDuration)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}

	wantBytes := []byte{0x3D, 0x01, 0x08}
	for i, s := range samples {
		if s.Byte != wantBytes[i] {
			t.Errorf("sample %d byte: got 0x%02X, want 0x%02X", i, s.Byte, wantBytes[i])
		}
		if s.EndNs-s.StartNs != int64(byteDuration) {
			t.Errorf("sample %d duration: got %dns", i, s.EndNs-s.StartNs)
		}
	}
	if samples[0].StartNs != int64(time.Second) {
		t.Errorf("sample 0 start: got %dns, want 1s", samples[0].StartNs)
	}
}

func TestReadCSV_NoHeaderRow(t *testing.T) {
	samples, err := ReadCSV(strings.NewReader("0.5,0x3E\n"), time.Millisecond)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(samples) != 1 || samples[0].Byte != 0x3E {
		t.Errorf("got %+v", samples)
	}
}

func TestReadCSV_BadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad value", "0.5,banana\n"},
		{"bad timestamp past header", "Time,Value\n1.0,0x01\nnope,0x02\n"},
		{"too few columns", "0.5\n"},
		{"value out of byte range", "0.5,0x1FF\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input), time.Millisecond); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
