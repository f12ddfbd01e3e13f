// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package radar

import (
	"math"
	"math/rand"
	"time"

	"github.com/mmpresence/corefw/engine"
)

// Fake is a synthetic radar for testing without a device: one simulated
// person wandering slowly in front of the sensor, settling down, and
// breathing.
type Fake struct {
	rand *rand.Rand

	x, y   float64 // meters
	vx, vy float64 // meters/frame
	br, hr float64

	frame uint64
}

// NewFake returns a deterministic fake driver.
func NewFake() *Fake {
	return &Fake{
		rand: rand.New(rand.NewSource(0)),
		x:    0.1,
		y:    0.9,
		br:   14,
		hr:   72,
	}
}

// ReadFrame simulates a ~10 Hz frame rate by sleeping one frame period, then
// returns the next synthetic observation.
func (f *Fake) ReadFrame(timeout time.Duration) (engine.RadarFrame, bool, error) {
	period := 100 * time.Millisecond
	if timeout < period {
		period = timeout
	}
	time.Sleep(period)
	f.update()

	distCM := float32(math.Hypot(f.x, f.y) * 100)
	fr := engine.RadarFrame{
		Human: true,
		Targets: []engine.Target{{
			ClusterID:    1,
			X:            float32(f.x),
			Y:            float32(f.y),
			DopplerIndex: int32(f.speedCMS()),
		}},
		DistanceOK: true,
		DistanceCM: distCM,
	}
	// Vitals only come through once the person settles.
	if f.speedCMS() < engine.MovingCMS {
		fr.BreathOK, fr.BreathBPM = true, float32(f.br)
		fr.HeartOK, fr.HeartBPM = true, float32(f.hr)
	}
	return fr, true, nil
}

func (f *Fake) update() {
	f.frame++
	// Wander for the first ~5 seconds, then settle and mostly sit still.
	if f.frame < 50 {
		f.vx += f.rand.NormFloat64() * 0.002
		f.vy += f.rand.NormFloat64() * 0.002
	} else {
		f.vx *= 0.8
		f.vy *= 0.8
	}
	f.x += f.vx
	f.y += f.vy
	if f.y < 0.4 {
		f.y = 0.4
	}
	f.br += f.rand.NormFloat64() * 0.05
	f.hr += f.rand.NormFloat64() * 0.2
}

// speedCMS is the simulated per-frame speed expressed in cm/s at 10 Hz.
func (f *Fake) speedCMS() float64 {
	return math.Hypot(f.vx, f.vy) * 100 * 10
}
