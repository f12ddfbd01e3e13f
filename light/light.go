// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package light declares the collaborator interface to the optional ambient
// light sensor. Light readings feed their own telemetry stream and never
// touch the presence state engine.
package light

import "math/rand"

// Source yields the most recent lux reading. This interface can be mocked.
type Source interface {
	// Read returns the current reading; valid is false when the sensor has
	// not produced a usable sample yet.
	Read() (lux float32, valid bool)
}

// None is a Source for builds without a light sensor attached.
type None struct{}

// Read implements Source.
func (None) Read() (float32, bool) {
	return 0, false
}

// Fake is a synthetic light source drifting around indoor levels.
type Fake struct {
	rand *rand.Rand
	lux  float64
}

// NewFake returns a deterministic fake light source.
func NewFake() *Fake {
	return &Fake{rand: rand.New(rand.NewSource(0)), lux: 300}
}

// Read implements Source.
func (f *Fake) Read() (float32, bool) {
	f.lux += f.rand.NormFloat64() * 2
	if f.lux < 0 {
		f.lux = 0
	}
	return float32(f.lux), true
}
