// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

import "time"

// decodeChannelByte reassembles a channel-values block: blockLength bytes
// interpreted as floor(blockLength/2) little-endian pairs, each combined as
// (MSB*256+LSB)/8 microseconds. One event is emitted per block, spanning it,
// with the channel values in arrival order. A trailing unpaired byte (odd
// blockLength) is consumed but not combined.
func (d *Decoder) decodeChannelByte(b byte, start, end time.Time) []Event {
	if d.blockByteIdx <= d.blockLength {
		if d.blockByteIdx%2 != 0 {
			// LSB arrives first on the wire.
			d.channelLow = b
		} else {
			d.channelValues = append(d.channelValues, (float64(b)*256+float64(d.channelLow))/8)
		}
	}
	if d.blockByteIdx < d.blockLength {
		return nil
	}
	values := append([]float64(nil), d.channelValues...)
	d.channelValues = d.channelValues[:0]
	ev := Event{
		Kind:   KindChannelValues,
		Start:  d.blockStart,
		End:    end,
		Fields: map[string]any{"values": values},
	}
	return d.finishBlock(ev, start, end)
}
