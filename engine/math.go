// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package engine

import "math"

func hypot(x, y float64) float64 {
	return math.Hypot(x, y)
}

// atan2Deg returns atan2(x, y) in degrees: zero on boresight, positive to
// the right (note the argument order: x first, then y).
func atan2Deg(x, y float64) float64 {
	return math.Atan2(x, y) * 180 / math.Pi
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finitePositive(v float32) bool {
	return finite(v) && v > 0
}
