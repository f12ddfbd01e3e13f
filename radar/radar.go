// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package radar declares the collaborator interface to the 60 GHz mmWave
// radar driver. The driver itself (cluster tracking, phase processing,
// vitals extraction) lives outside this repository; the firmware core only
// consumes its per-frame output.
package radar

import (
	"time"

	"github.com/mmpresence/corefw/engine"
)

// Driver produces fused per-frame radar observations. This interface can be
// mocked.
type Driver interface {
	// ReadFrame waits up to timeout for the next frame. ok is false on a
	// timeout, which the main loop treats as a no-op iteration; err reports a
	// device fault.
	ReadFrame(timeout time.Duration) (frame engine.RadarFrame, ok bool, err error)
}
