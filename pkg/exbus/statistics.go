// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"fmt"
	"strings"
	"time"
)

// Statistics accumulates decode counters over a stream. Not safe for
// concurrent use; callers on multiple goroutines must serialize access.
type Statistics struct {
	FramesStarted   uint64
	FramesCompleted uint64
	LengthErrors    uint64
	ProtocolErrors  uint64

	ChannelBlocks   uint64
	TelemetryBlocks uint64
	DataEntries     uint64
	TextEntries     uint64

	Anomalies map[AnomalyType]uint64

	FrameRate float64 // completed frames per second
	ErrorRate float64 // length + protocol errors per second

	startTime time.Time
}

// NewStatistics creates a zeroed Statistics with the rate clock started.
func NewStatistics() *Statistics {
	return &Statistics{
		Anomalies: make(map[AnomalyType]uint64),
		startTime: time.Now(),
	}
}

// Update folds a batch of decoded events and their validation results into
// the counters.
func (s *Statistics) Update(events []Event, validationErrors []ValidationError) {
	for _, e := range events {
		switch e.Kind {
		case KindFrameStart:
			s.FramesStarted++
		case KindFrameComplete:
			s.FramesCompleted++
		case KindLengthError:
			s.LengthErrors++
		case KindProtocolError:
			s.ProtocolErrors++
		case KindChannelValues:
			s.ChannelBlocks++
		case KindTelemetryEnd:
			s.TelemetryBlocks++
		case KindDataEntry:
			s.DataEntries++
		case KindTextEntry:
			s.TextEntries++
		}
	}
	for _, v := range validationErrors {
		s.Anomalies[v.Type]++
	}
}

// CalculateRates refreshes FrameRate and ErrorRate from the elapsed wall
// clock since construction or the last Reset.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.startTime).Seconds()
	if elapsed <= 0 {
		return
	}
	s.FrameRate = float64(s.FramesCompleted) / elapsed
	s.ErrorRate = float64(s.LengthErrors+s.ProtocolErrors) / elapsed
}

// Reset zeroes all counters and restarts the rate clock.
func (s *Statistics) Reset() {
	*s = Statistics{
		Anomalies: make(map[AnomalyType]uint64),
		startTime: time.Now(),
	}
}

func (s *Statistics) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "frames: %d started, %d completed", s.FramesStarted, s.FramesCompleted)
	fmt.Fprintf(&sb, " | errors: %d length, %d protocol", s.LengthErrors, s.ProtocolErrors)
	fmt.Fprintf(&sb, " | blocks: %d channel, %d telemetry", s.ChannelBlocks, s.TelemetryBlocks)
	fmt.Fprintf(&sb, " | entries: %d data, %d text", s.DataEntries, s.TextEntries)
	if len(s.Anomalies) > 0 {
		var total uint64
		for _, n := range s.Anomalies {
			total += n
		}
		fmt.Fprintf(&sb, " | anomalies: %d", total)
	}
	if s.FrameRate > 0 {
		fmt.Fprintf(&sb, " | %.1f frames/s, %.2f errors/s", s.FrameRate, s.ErrorRate)
	}
	return sb.String()
}
