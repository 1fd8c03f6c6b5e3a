// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

// Frame builders for bench testing and test vectors. Values are encoded
// exactly as a Jeti transmitter would put them on the wire, including the
// CRC16 trailer the decoder itself never verifies.

// SensorValue is one EX telemetry data entry to encode.
type SensorValue struct {
	ID      int
	Type    byte
	Payload []byte
}

// BuildChannelFrame assembles a master channel-data frame carrying the given
// channel values in microseconds.
func BuildChannelFrame(packetID byte, responseRequired bool, microseconds []float64) []byte {
	flag := byte(FlagNoResponse)
	if responseRequired {
		flag = FlagRequestResponse
	}
	n := len(microseconds)
	frame := make([]byte, 0, 2*n+8)
	frame = append(frame,
		StartMasterChannelData,
		flag,
		byte(2*n+8),
		packetID,
		BlockIDChannelValues,
		byte(2*n),
	)
	for _, us := range microseconds {
		raw := uint16(us * 8)
		frame = append(frame, byte(raw), byte(raw>>8))
	}
	return appendCRC16(frame)
}

// BuildTelemetryRequest assembles a master telemetry-request frame. The data
// block is empty: the request only solicits a slave response.
func BuildTelemetryRequest(packetID byte) []byte {
	frame := []byte{
		StartMasterTelemetryReq,
		FlagRequestResponse,
		8,
		packetID,
		BlockIDTelemetry,
		0,
	}
	return appendCRC16(frame)
}

// BuildTelemetryResponse wraps a complete EX sub-packet (start marker byte
// through CRC8) in a slave telemetry-response frame.
func BuildTelemetryResponse(packetID byte, sub []byte) []byte {
	frame := make([]byte, 0, len(sub)+8)
	frame = append(frame,
		StartSlaveTelemetryResp,
		FlagSlaveResponse,
		byte(len(sub)+8),
		packetID,
		BlockIDTelemetry,
		byte(len(sub)),
	)
	frame = append(frame, sub...)
	return appendCRC16(frame)
}

// BuildDataSubPacket assembles an EX data sub-packet with the given sensor
// values. Payload lengths are the caller's responsibility and should match
// the entry's type nibble.
func BuildDataSubPacket(manufacturerID, deviceID uint16, values []SensorValue) []byte {
	body := subPacketHeader(SubData, manufacturerID, deviceID)
	for _, v := range values {
		if v.ID > 0 && v.ID < 16 {
			body = append(body, byte(v.ID)<<4|v.Type&0x0F)
		} else {
			// Id nibble 0 escapes to a full id byte.
			body = append(body, v.Type&0x0F, byte(v.ID))
		}
		body = append(body, v.Payload...)
	}
	return sealSubPacket(SubData, body)
}

// BuildTextSubPacket assembles an EX text sub-packet labeling one sensor id
// with a description and unit. Both strings are truncated to the protocol's
// 5-bit and 3-bit length fields.
func BuildTextSubPacket(manufacturerID, deviceID uint16, id int, description, unit string) []byte {
	if len(description) > 31 {
		description = description[:31]
	}
	if len(unit) > 7 {
		unit = unit[:7]
	}
	body := subPacketHeader(SubText, manufacturerID, deviceID)
	body = append(body, byte(id), byte(len(description))<<3|byte(len(unit)))
	body = append(body, description...)
	body = append(body, unit...)
	return sealSubPacket(SubText, body)
}

func subPacketHeader(_ SubPacketType, manufacturerID, deviceID uint16) []byte {
	return []byte{
		TelemetryStartMarker,
		0, // type/length, patched by sealSubPacket
		byte(manufacturerID), byte(manufacturerID >> 8),
		byte(deviceID), byte(deviceID >> 8),
		0, // reserved
	}
}

func sealSubPacket(subType SubPacketType, body []byte) []byte {
	// Length counts everything after the start marker except the CRC8.
	body[posTypeLength-1] = byte(subType)<<6 | byte(len(body)-1)&0x3F
	return append(body, CRC8(body[1:]))
}

func appendCRC16(frame []byte) []byte {
	crc := CRC16(frame)
	return append(frame, byte(crc), byte(crc>>8))
}
