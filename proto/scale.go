// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package proto

import "math"

// ScaleU16 multiplies v by mul, rounds to the nearest integer and saturates
// into the unsigned 16-bit range. A non-finite or negative v yields
// MissingU16, the sentinel unsigned fields carry for "no reading".
func ScaleU16(v, mul float32) uint16 {
	f := float64(v) * float64(mul)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return MissingU16
	}
	f = math.Round(f)
	if f > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(f)
}

// ScaleI16 multiplies v by mul, rounds to the nearest integer and saturates
// into the signed 16-bit range. A non-finite v yields 0; signed fields carry
// a separate validity flag instead of a sentinel.
func ScaleI16(v, mul float32) int16 {
	f := float64(v) * float64(mul)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Round(f)
	if f > math.MaxInt16 {
		return math.MaxInt16
	}
	if f < math.MinInt16 {
		return math.MinInt16
	}
	return int16(f)
}
