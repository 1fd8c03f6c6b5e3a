// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The exbuscope authors

package exbus

// crcCCITTUpdate folds one byte into the CRC-CCITT (LSB-first) variant used
// by the ExBus frame trailer.
func crcCCITTUpdate(crc uint16, b byte) uint16 {
	d := b ^ byte(crc&0xFF)
	d ^= d << 4
	return (uint16(d)<<8 | crc>>8) ^ (uint16(d>>4) & 0xFF) ^ uint16(d)<<3
}

// CRC16 computes the ExBus frame checksum over data (every frame byte up to
// but excluding the trailer). The decoder never verifies received checksums,
// only their position; this function exists for frame generation and tests.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crcCCITTUpdate(crc, b)
	}
	return crc
}

// CRC8 computes the EX telemetry sub-packet checksum (polynomial 0x07) over
// the sub-packet bytes between the start marker and the checksum byte.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
