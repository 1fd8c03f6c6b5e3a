// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

// Package exbus implements a streaming decoder for the Jeti ExBus serial
// protocol, the framing used between an RC receiver (master) and its
// peripherals (slave) to carry servo channel values and EX telemetry.
//
// The decoder is fed one timestamped byte at a time and emits labeled,
// time-ranged events as complete protocol units are assembled. ExBus has no
// independent end-of-frame marker: the two trailing CRC bytes can only be
// located arithmetically from the declared frame length, so the decoder
// tracks a running byte index and flags any position mismatch as a length
// error. The CRC values themselves are consumed but never verified.
package exbus

// Frame start bytes
const (
	StartMasterChannelData  = 0x3E // master, channel data frame
	StartMasterTelemetryReq = 0x3D // master, telemetry request frame
	StartSlaveTelemetryResp = 0x3B // slave, telemetry response frame
	StartSlaveUnknownResp   = 0x3C // slave, undocumented response frame
)

// Response flag bytes (second byte of every frame)
const (
	FlagRequestResponse = 0x01 // master requests a slave response
	FlagNoResponse      = 0x03 // master forbids a slave response
	FlagSlaveResponse   = 0x01 // slave echo
)

// Data block identifiers. The reference decoder accidentally compared the
// JetiBox branch against the telemetry identifier, making JetiBox blocks
// unreachable; 0x3B is the documented value and is used here instead.
const (
	BlockIDChannelValues = 0x31
	BlockIDTelemetry     = 0x3A
	BlockIDJetiBox       = 0x3B
)

// Framing state machine states
const (
	stateIdle = iota
	stateResponseFlag
	stateLength
	statePacketID
	stateDataID
	stateBlockLength
	stateBlock
	stateTrailer1
	stateTrailer2
)

// EX telemetry sub-packet layout. Positions are 1-based byte indexes within
// the enclosing data block.
const (
	TelemetryStartMarker = 0x0F // low nibble of the first sub-packet byte

	posStartMarker    = 1
	posTypeLength     = 2
	posManufacturerID = 3
	posDeviceID       = 5
	posReserved       = 7
	posFirstEntry     = 8
)

// EX telemetry data entry type nibbles
const (
	DataType6b       = 0x00
	DataType14b      = 0x01
	DataType22b      = 0x04
	DataTypeTimeDate = 0x05
	DataType30b      = 0x08
	DataTypeGPS      = 0x09
)

// dataTypeLengths maps a data entry type nibble to its payload byte count,
// excluding the leading id/type byte.
var dataTypeLengths = map[byte]int{
	DataType6b:       1,
	DataType14b:      2,
	DataType22b:      3,
	DataTypeTimeDate: 3,
	DataType30b:      4,
	DataTypeGPS:      4,
}

// Role identifies which side of the bus sent a frame, resolved from the
// start byte.
type Role uint8

// Frame roles
const (
	RoleNone Role = iota
	RoleMasterChannelData
	RoleMasterTelemetryRequest
	RoleSlaveTelemetryResponse
	RoleSlaveUnknownResponse
)

// IsMaster reports whether the role belongs to the bus master.
func (r Role) IsMaster() bool {
	return r == RoleMasterChannelData || r == RoleMasterTelemetryRequest
}

func (r Role) String() string {
	switch r {
	case RoleMasterChannelData:
		return "master/channel-data"
	case RoleMasterTelemetryRequest:
		return "master/telemetry-request"
	case RoleSlaveTelemetryResponse:
		return "slave/telemetry-response"
	case RoleSlaveUnknownResponse:
		return "slave/unknown-response"
	default:
		return "none"
	}
}

// BlockType identifies the payload kind of a data block, resolved from the
// data identifier byte.
type BlockType uint8

// Data block types
const (
	BlockUnknown BlockType = iota
	BlockChannelValues
	BlockTelemetry
	BlockJetiBox
)

func (b BlockType) String() string {
	switch b {
	case BlockChannelValues:
		return "channel-values"
	case BlockTelemetry:
		return "telemetry"
	case BlockJetiBox:
		return "jetibox"
	default:
		return "unknown"
	}
}

// SubPacketType identifies the kind of an EX telemetry sub-packet, resolved
// from the top two bits of its type/length byte.
type SubPacketType uint8

// EX telemetry sub-packet types
const (
	SubText SubPacketType = iota
	SubData
	SubMessage
	SubUnknown
)

func subPacketTypeFromBits(bits byte) SubPacketType {
	switch bits {
	case 0b00:
		return SubText
	case 0b01:
		return SubData
	case 0b10:
		return SubMessage
	default:
		return SubUnknown
	}
}

func (s SubPacketType) String() string {
	switch s {
	case SubText:
		return "text"
	case SubData:
		return "data"
	case SubMessage:
		return "message"
	default:
		return "unknown"
	}
}
