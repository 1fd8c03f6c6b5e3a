// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import "fmt"

// AnomalyType classifies a plausibility problem in an otherwise well-formed
// event. Anomalies are advisory: the frame decoded, the values just look off.
type AnomalyType int

// Anomaly types
const (
	AnomalyChannelRange AnomalyType = iota
	AnomalyChannelCount
	AnomalyEmptyText
	AnomalySubLength
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyChannelRange:
		return "channel-range"
	case AnomalyChannelCount:
		return "channel-count"
	case AnomalyEmptyText:
		return "empty-text"
	case AnomalySubLength:
		return "sub-packet-length"
	default:
		return "unknown"
	}
}

// ValidationError describes one anomaly found in a decoded event.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details string
}

func (v ValidationError) Error() string {
	if v.Details == "" {
		return fmt.Sprintf("%s: %s", v.Type, v.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", v.Type, v.Message, v.Details)
}

// Servo pulse plausibility window in microseconds. Jeti gear emits 1000-2000
// nominally; anything outside this band indicates a decode or wiring problem.
// Zero is excluded: unused channel slots legitimately carry zero.
const (
	channelPulseMin = 800.0
	channelPulseMax = 2200.0
	maxChannels     = 24
)

// ValidateEvent checks a decoded event for implausible values. It returns nil
// for event kinds that carry nothing to validate.
func ValidateEvent(e Event) []ValidationError {
	var errs []ValidationError
	switch e.Kind {
	case KindChannelValues:
		values, _ := e.Fields["values"].([]float64)
		if len(values) > maxChannels {
			errs = append(errs, ValidationError{
				Type:    AnomalyChannelCount,
				Message: "more channels than the bus supports",
				Details: fmt.Sprintf("got %d, max %d", len(values), maxChannels),
			})
		}
		for i, v := range values {
			if v == 0 {
				continue
			}
			if v < channelPulseMin || v > channelPulseMax {
				errs = append(errs, ValidationError{
					Type:    AnomalyChannelRange,
					Message: fmt.Sprintf("channel %d pulse out of range", i+1),
					Details: fmt.Sprintf("%.1fus outside [%.0f, %.0f]", v, channelPulseMin, channelPulseMax),
				})
			}
		}
	case KindTextEntry:
		desc, _ := e.Str("description")
		unit, _ := e.Str("unit")
		if desc == "" && unit == "" {
			id, _ := e.Int("id")
			errs = append(errs, ValidationError{
				Type:    AnomalyEmptyText,
				Message: "text entry carries no label",
				Details: fmt.Sprintf("sensor id %d", id),
			})
		}
	case KindTelemetryEnd:
		declared, okD := e.Int("declared")
		consumed, okC := e.Int("consumed")
		if okD && okC && declared != consumed {
			errs = append(errs, ValidationError{
				Type:    AnomalySubLength,
				Message: "sub-packet length claim disagrees with block size",
				Details: fmt.Sprintf("declared %d, consumed %d", declared, consumed),
			})
		}
	}
	return errs
}
