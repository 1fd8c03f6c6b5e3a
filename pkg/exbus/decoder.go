// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import (
	"fmt"
	"time"
)

// Decoder implements the ExBus framing state machine. It consumes one
// timestamped byte per call and never blocks, panics, or returns an error:
// protocol and length problems surface as events so that decoding resumes
// at the next recognized start byte.
//
// A Decoder is bound to a single byte stream and is not safe for concurrent
// use. Use NewDecoder (or Reset) per independent stream.
type Decoder struct {
	state     int
	role      Role
	blockType BlockType

	// responseRequired is only meaningful for master frames.
	responseRequired bool
	packetID         byte

	// declaredLength is the frame's total byte count including the 2-byte
	// trailer, set once from the length byte. runningIndex counts consumed
	// bytes (1-based) and is the only way to locate the trailer: the
	// protocol has no end-of-data marker.
	declaredLength int
	runningIndex   int

	blockLength  int
	blockByteIdx int

	frameStart   time.Time
	blockStart   time.Time
	trailerStart time.Time

	channelLow    byte
	channelValues []float64

	tlm telemetryDecoder
}

// NewDecoder creates a decoder parked in the idle state.
func NewDecoder() *Decoder {
	return &Decoder{state: stateIdle}
}

// Reset returns the decoder to idle, discarding all per-frame state.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.role = RoleNone
	d.blockType = BlockUnknown
	d.responseRequired = false
	d.packetID = 0
	d.declaredLength = 0
	d.runningIndex = 0
	d.blockLength = 0
	d.blockByteIdx = 0
	d.channelLow = 0
	d.channelValues = d.channelValues[:0]
	d.tlm.reset()
}

// Idle reports whether the decoder is between frames. A truncated stream
// leaves the decoder parked mid-frame; there is no timeout-driven reset.
func (d *Decoder) Idle() bool {
	return d.state == stateIdle
}

// DecodeByte advances the state machine by one input byte. The timestamps
// bound the byte on the wire and become the time span of any emitted events.
// It returns zero or more events; it never returns an error.
func (d *Decoder) DecodeByte(b byte, start, end time.Time) []Event {
	switch d.state {
	case stateIdle:
		return d.decodeStartByte(b, start, end)
	case stateResponseFlag:
		return d.decodeResponseFlag(b, start, end)
	case stateLength:
		d.runningIndex++
		d.declaredLength = int(b)
		d.state = statePacketID
		return []Event{{
			Kind:   KindPacketLength,
			Start:  start,
			End:    end,
			Fields: map[string]any{"length": int(b)},
		}}
	case statePacketID:
		d.runningIndex++
		d.packetID = b
		d.state = stateDataID
		return []Event{{
			Kind:   KindPacketID,
			Start:  start,
			End:    end,
			Fields: map[string]any{"id": int(b)},
		}}
	case stateDataID:
		return d.decodeDataIdentifier(b, start, end)
	case stateBlockLength:
		return d.decodeBlockLength(b, start, end)
	case stateBlock:
		d.runningIndex++
		d.blockByteIdx++
		if d.blockByteIdx == 1 {
			d.blockStart = start
		}
		switch d.blockType {
		case BlockChannelValues:
			return d.decodeChannelByte(b, start, end)
		case BlockTelemetry:
			return d.decodeTelemetryByte(b, start, end)
		default:
			return d.decodeOpaqueByte(b, start, end)
		}
	case stateTrailer1:
		d.runningIndex++
		d.trailerStart = start
		d.state = stateTrailer2
		return nil
	case stateTrailer2:
		return d.decodeTrailerEnd(b, start, end)
	default:
		// Unreachable unless the state field is corrupted.
		return d.protocolError(b, start, end, fmt.Sprintf("invalid decoder state %d", d.state))
	}
}

func (d *Decoder) decodeStartByte(b byte, start, end time.Time) []Event {
	var role Role
	switch b {
	case StartMasterChannelData:
		role = RoleMasterChannelData
	case StartMasterTelemetryReq:
		role = RoleMasterTelemetryRequest
	case StartSlaveTelemetryResp:
		role = RoleSlaveTelemetryResponse
	case StartSlaveUnknownResp:
		role = RoleSlaveUnknownResponse
	default:
		// Inter-frame noise and padding are expected on a shared bus.
		return nil
	}
	d.role = role
	d.frameStart = start
	d.runningIndex = 1
	d.state = stateResponseFlag
	return []Event{{
		Kind:   KindFrameStart,
		Start:  start,
		End:    end,
		Fields: map[string]any{"role": role},
	}}
}

func (d *Decoder) decodeResponseFlag(b byte, start, end time.Time) []Event {
	d.runningIndex++
	if d.role.IsMaster() {
		switch b {
		case FlagRequestResponse:
			d.responseRequired = true
		case FlagNoResponse:
			d.responseRequired = false
		default:
			return d.protocolError(b, start, end, "unrecognized master response flag")
		}
		d.state = stateLength
		return []Event{{
			Kind:   KindResponseFlag,
			Start:  start,
			End:    end,
			Fields: map[string]any{"response_required": d.responseRequired},
		}}
	}
	if b != FlagSlaveResponse {
		return d.protocolError(b, start, end, "unrecognized slave response echo")
	}
	d.state = stateLength
	return []Event{{
		Kind:   KindResponseFlag,
		Start:  start,
		End:    end,
		Fields: map[string]any{"echo": true},
	}}
}

func (d *Decoder) decodeDataIdentifier(b byte, start, end time.Time) []Event {
	d.runningIndex++
	if d.runningIndex > d.declaredLength-2 {
		// No block header can fit before the trailer position anymore.
		return d.lengthError(start, end)
	}
	switch b {
	case BlockIDChannelValues:
		d.blockType = BlockChannelValues
	case BlockIDTelemetry:
		d.blockType = BlockTelemetry
	case BlockIDJetiBox:
		d.blockType = BlockJetiBox
	default:
		// Unknown identifiers are valid frames with undecodable payloads.
		d.blockType = BlockUnknown
	}
	d.state = stateBlockLength
	return []Event{{
		Kind:   KindDataIdentifier,
		Start:  start,
		End:    end,
		Fields: map[string]any{"block": d.blockType, "identifier": int(b)},
	}}
}

func (d *Decoder) decodeBlockLength(b byte, start, end time.Time) []Event {
	d.runningIndex++
	if d.runningIndex > d.declaredLength-2 {
		return d.lengthError(start, end)
	}
	d.blockLength = int(b)
	d.blockByteIdx = 0
	d.tlm.reset()
	ev := Event{
		Kind:   KindBlockLength,
		Start:  start,
		End:    end,
		Fields: map[string]any{"length": int(b)},
	}
	// A zero-length block puts the trailer right behind the length byte.
	if d.runningIndex == d.declaredLength-2 {
		d.state = stateTrailer1
	} else {
		d.state = stateBlock
	}
	return []Event{ev}
}

func (d *Decoder) decodeOpaqueByte(_ byte, start, end time.Time) []Event {
	if d.blockByteIdx < d.blockLength {
		return nil
	}
	ev := Event{
		Kind:   KindOpaqueBlock,
		Start:  d.blockStart,
		End:    end,
		Fields: map[string]any{"block": d.blockType, "length": d.blockLength},
	}
	return d.finishBlock(ev, start, end)
}

func (d *Decoder) decodeTrailerEnd(_ byte, start, end time.Time) []Event {
	d.runningIndex++
	index := d.runningIndex
	declared := d.declaredLength
	trailerStart := d.trailerStart
	d.Reset()
	if index == declared {
		return []Event{{
			Kind:   KindFrameComplete,
			Start:  trailerStart,
			End:    end,
			Fields: map[string]any{"length": declared},
		}}
	}
	return []Event{{
		Kind:   KindLengthError,
		Start:  start,
		End:    end,
		Fields: map[string]any{"declared": declared, "index": index},
	}}
}

// blockStep is the outcome of the length-consistency rule applied at a block
// byte boundary.
type blockStep int

const (
	stepContinue  blockStep = iota // more block bytes follow
	stepNextBlock                  // block done, another block header follows
	stepTrailer                    // block done, next byte is trailer byte 1
	stepOverrun                    // block done past the trailer position
)

// nextBlockStep is the single shared trailer-position rule: the trailer is
// assumed to start exactly at declaredLength-2 consumed bytes. Every block
// kind routes through this helper; the protocol offers nothing better than
// this arithmetic.
func nextBlockStep(blockByteIdx, blockLength, runningIndex, declaredLength int) blockStep {
	if blockByteIdx < blockLength {
		return stepContinue
	}
	switch {
	case runningIndex == declaredLength-2:
		return stepTrailer
	case runningIndex > declaredLength-2:
		return stepOverrun
	default:
		return stepNextBlock
	}
}

// finishBlock emits the block's completion event and routes the state
// machine according to the shared length-consistency rule.
func (d *Decoder) finishBlock(ev Event, start, end time.Time) []Event {
	switch nextBlockStep(d.blockByteIdx, d.blockLength, d.runningIndex, d.declaredLength) {
	case stepTrailer:
		d.state = stateTrailer1
	case stepNextBlock:
		d.state = stateDataID
	case stepOverrun:
		return append([]Event{ev}, d.lengthError(start, end)...)
	}
	return []Event{ev}
}

func (d *Decoder) lengthError(start, end time.Time) []Event {
	declared := d.declaredLength
	index := d.runningIndex
	d.Reset()
	return []Event{{
		Kind:   KindLengthError,
		Start:  start,
		End:    end,
		Fields: map[string]any{"declared": declared, "index": index},
	}}
}

func (d *Decoder) protocolError(b byte, start, end time.Time, detail string) []Event {
	d.Reset()
	return []Event{{
		Kind:   KindProtocolError,
		Start:  start,
		End:    end,
		Fields: map[string]any{"byte": int(b), "detail": detail},
	}}
}
