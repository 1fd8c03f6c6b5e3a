// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

// Package capture reads and writes timestamped byte streams so that a bus
// recording can be decoded offline, long after the wire is gone. The file
// format is a CBOR header followed by a flat sequence of CBOR samples;
// integer keys keep recordings compact at bus rates.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// File format identity
const (
	Magic   = "EXCAP"
	Version = 1
)

// Header opens every capture file.
type Header struct {
	Magic     string `cbor:"1,keyasint"`
	Version   int    `cbor:"2,keyasint"`
	CreatedNs int64  `cbor:"3,keyasint"`
}

// Sample is one byte observed on the wire with its time span in Unix
// nanoseconds.
type Sample struct {
	Byte    byte  `cbor:"1,keyasint"`
	StartNs int64 `cbor:"2,keyasint"`
	EndNs   int64 `cbor:"3,keyasint"`
}

// NewSample builds a sample from wall-clock bounds.
func NewSample(b byte, start, end time.Time) Sample {
	return Sample{Byte: b, StartNs: start.UnixNano(), EndNs: end.UnixNano()}
}

// Start returns the sample's leading edge.
func (s Sample) Start() time.Time { return time.Unix(0, s.StartNs) }

// End returns the sample's trailing edge.
func (s Sample) End() time.Time { return time.Unix(0, s.EndNs) }

// Writer appends samples to a capture stream.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter writes the file header and returns a sample writer.
func NewWriter(w io.Writer) (*Writer, error) {
	enc := cbor.NewEncoder(w)
	header := Header{Magic: Magic, Version: Version, CreatedNs: time.Now().UnixNano()}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("writing capture header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Append records one sample.
func (w *Writer) Append(s Sample) error {
	if err := w.enc.Encode(s); err != nil {
		return fmt.Errorf("writing capture sample: %w", err)
	}
	return nil
}

// Reader replays samples from a capture stream.
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader validates the file header and returns a sample reader.
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)
	var header Header
	if err := dec.Decode(&header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("capture file is empty")
		}
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("not a capture file (magic %q)", header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("unsupported capture version %d", header.Version)
	}
	return &Reader{dec: dec, header: header}, nil
}

// Header returns the capture file header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next sample, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Sample, error) {
	var s Sample
	if err := r.dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Sample{}, io.EOF
		}
		return Sample{}, fmt.Errorf("reading capture sample: %w", err)
	}
	return s, nil
}
