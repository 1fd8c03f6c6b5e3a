// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"fmt"
	"strings"
)

// FormatEvent renders an event as one human-readable log line with its wire
// time span.
func FormatEvent(e Event) string {
	return fmt.Sprintf("[%s] %s", e.Start.Format("15:04:05.000000"), DescribeEvent(e))
}

// FormatEventCompact renders an event as a short tag, the dense style suited
// to waveform annotation and terse logs.
func FormatEventCompact(e Event) string {
	switch e.Kind {
	case KindFrameStart:
		role, _ := e.Fields["role"].(Role)
		switch role {
		case RoleMasterChannelData:
			return "Mstr:ChData"
		case RoleMasterTelemetryRequest:
			return "Mstr:Tlm?"
		case RoleSlaveTelemetryResponse:
			return "Slv:Rsp"
		default:
			return "Slv:UnknRsp"
		}
	case KindResponseFlag:
		if required, ok := e.Fields["response_required"].(bool); ok {
			if required {
				return "Mstr:ReqResp"
			}
			return "Mstr:NoResp"
		}
		return "Slv:Resp"
	case KindPacketLength:
		n, _ := e.Int("length")
		return fmt.Sprintf("Pkt l=%d", n)
	case KindPacketID:
		id, _ := e.Int("id")
		return fmt.Sprintf("PktID %d", id)
	case KindDataIdentifier:
		switch e.Fields["block"] {
		case BlockChannelValues:
			return "Chan"
		case BlockTelemetry:
			return "Tlm"
		case BlockJetiBox:
			return "JetiBx"
		default:
			return "???"
		}
	case KindBlockLength:
		n, _ := e.Int("length")
		return fmt.Sprintf("Blk %d", n)
	case KindChannelValues:
		return "ChnData"
	case KindTelemetryStart:
		return "ExTlm"
	case KindTelemetryHeader:
		switch e.Fields["type"] {
		case SubText:
			return "TxtPkt"
		case SubData:
			return "DataPkt"
		case SubMessage:
			return "MsgPkt"
		default:
			return "UnknownPkt"
		}
	case KindManufacturerID:
		return "MfctID"
	case KindDeviceID:
		return "DeviceID"
	case KindReserved:
		return "Reserved"
	case KindDataEntry:
		id, _ := e.Int("id")
		typ, _ := e.Int("type")
		return fmt.Sprintf("Data ID:%d type:%d", id, typ)
	case KindTextEntry:
		id, _ := e.Int("id")
		return fmt.Sprintf("Descr ID:%d", id)
	case KindTelemetryEnd:
		return "ExTlmCrc8"
	case KindOpaqueBlock:
		return "OpaqueData"
	case KindFrameComplete:
		return "PktCrc"
	case KindLengthError:
		return "PktLenErr!"
	case KindProtocolError:
		return "ProtoErr!"
	default:
		return e.Kind.String()
	}
}

// DescribeEvent renders an event's decoded fields as a sentence.
func DescribeEvent(e Event) string {
	switch e.Kind {
	case KindFrameStart:
		return fmt.Sprintf("frame start (%v)", e.Fields["role"])
	case KindResponseFlag:
		if required, ok := e.Fields["response_required"].(bool); ok {
			if required {
				return "master requests response"
			}
			return "master forbids response"
		}
		return "slave response echo"
	case KindPacketLength:
		n, _ := e.Int("length")
		return fmt.Sprintf("packet length %d", n)
	case KindPacketID:
		id, _ := e.Int("id")
		return fmt.Sprintf("packet id 0x%02X", id)
	case KindDataIdentifier:
		return fmt.Sprintf("%v block", e.Fields["block"])
	case KindBlockLength:
		n, _ := e.Int("length")
		return fmt.Sprintf("block length %d", n)
	case KindChannelValues:
		values, _ := e.Fields["values"].([]float64)
		return "channels: " + FormatChannels(values)
	case KindTelemetryStart:
		return "EX telemetry start"
	case KindTelemetryHeader:
		n, _ := e.Int("length")
		return fmt.Sprintf("EX %v sub-packet, length %d", e.Fields["type"], n)
	case KindManufacturerID:
		id, _ := e.Int("id")
		return fmt.Sprintf("manufacturer 0x%04X", id)
	case KindDeviceID:
		id, _ := e.Int("id")
		return fmt.Sprintf("device 0x%04X", id)
	case KindReserved:
		v, _ := e.Int("value")
		return fmt.Sprintf("reserved byte 0x%02X", v)
	case KindDataEntry:
		id, _ := e.Int("id")
		typ, _ := e.Int("type")
		payload, _ := e.Fields["payload"].([]byte)
		return fmt.Sprintf("sensor %d type %d value % X", id, typ, payload)
	case KindTextEntry:
		id, _ := e.Int("id")
		desc, _ := e.Str("description")
		unit, _ := e.Str("unit")
		if unit == "" {
			return fmt.Sprintf("sensor %d label %q", id, desc)
		}
		return fmt.Sprintf("sensor %d label %q [%s]", id, desc, unit)
	case KindTelemetryEnd:
		return "EX telemetry block end"
	case KindOpaqueBlock:
		n, _ := e.Int("length")
		return fmt.Sprintf("%v block consumed (%d bytes)", e.Fields["block"], n)
	case KindFrameComplete:
		n, _ := e.Int("length")
		return fmt.Sprintf("frame complete, %d bytes", n)
	case KindLengthError:
		declared, _ := e.Int("declared")
		index, _ := e.Int("index")
		return fmt.Sprintf("LENGTH ERROR: declared %d, index %d", declared, index)
	case KindProtocolError:
		b, _ := e.Int("byte")
		detail, _ := e.Str("detail")
		return fmt.Sprintf("PROTOCOL ERROR: 0x%02X (%s)", b, detail)
	default:
		return e.Kind.String()
	}
}

// FormatChannels renders channel values the way Jeti gear displays them,
// rounded to whole microseconds.
func FormatChannels(values []float64) string {
	if len(values) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "Ch%d:%.0fus", i+1, v)
	}
	return sb.String()
}
