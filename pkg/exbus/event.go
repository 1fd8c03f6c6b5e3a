// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import "time"

// Kind labels a decoded event.
type Kind uint8

// Event kinds
const (
	KindFrameStart Kind = iota
	KindResponseFlag
	KindPacketLength
	KindPacketID
	KindDataIdentifier
	KindBlockLength
	KindChannelValues
	KindTelemetryStart
	KindTelemetryHeader
	KindManufacturerID
	KindDeviceID
	KindReserved
	KindDataEntry
	KindTextEntry
	KindTelemetryEnd
	KindOpaqueBlock
	KindFrameComplete
	KindLengthError
	KindProtocolError
)

func (k Kind) String() string {
	switch k {
	case KindFrameStart:
		return "FrameStart"
	case KindResponseFlag:
		return "ResponseFlag"
	case KindPacketLength:
		return "PacketLength"
	case KindPacketID:
		return "PacketID"
	case KindDataIdentifier:
		return "DataIdentifier"
	case KindBlockLength:
		return "BlockLength"
	case KindChannelValues:
		return "ChannelValues"
	case KindTelemetryStart:
		return "TelemetryStart"
	case KindTelemetryHeader:
		return "TelemetryHeader"
	case KindManufacturerID:
		return "ManufacturerID"
	case KindDeviceID:
		return "DeviceID"
	case KindReserved:
		return "Reserved"
	case KindDataEntry:
		return "DataEntry"
	case KindTextEntry:
		return "TextEntry"
	case KindTelemetryEnd:
		return "TelemetryEnd"
	case KindOpaqueBlock:
		return "OpaqueBlock"
	case KindFrameComplete:
		return "FrameComplete"
	case KindLengthError:
		return "LengthError"
	case KindProtocolError:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Event is one decoded protocol unit. Start and End span every input byte
// that contributed to the unit, which is often more than one. Fields carry
// the decoded values; presentation is left to the caller (see formatter.go).
type Event struct {
	Kind   Kind
	Start  time.Time
	End    time.Time
	Fields map[string]any
}

// Int returns the named field as an int.
func (e Event) Int(name string) (int, bool) {
	switch v := e.Fields[name].(type) {
	case int:
		return v, true
	case byte:
		return int(v), true
	default:
		return 0, false
	}
}

// Str returns the named field as a string.
func (e Event) Str(name string) (string, bool) {
	v, ok := e.Fields[name].(string)
	return v, ok
}
