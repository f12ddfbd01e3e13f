// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package framing

// Package-level CRC-16/CCITT-FALSE table: poly 0x1021, processed MSB-first,
// no input/output reflection.
type table [256]uint16

var ccittFalseTable table

func init() {
	makeTable(0x1021, &ccittFalseTable)
}

func makeTable(poly uint16, t *table) {
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
}

func update(crc uint16, t *table, p []byte) uint16 {
	for _, v := range p {
		crc = (crc << 8) ^ t[byte(crc>>8)^v]
	}
	return crc
}

// CRC16 calculates CRC-16/CCITT-FALSE (init 0xFFFF, xor-out 0) over d.
func CRC16(d []byte) uint16 {
	return update(0xFFFF, &ccittFalseTable, d)
}
