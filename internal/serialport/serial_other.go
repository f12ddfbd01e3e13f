// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package serialport

import (
	"errors"
	"io"

	"periph.io/x/periph/conn/physic"
)

// DefaultBaud is the link rate the host protocol is specified at.
const DefaultBaud = 115200 * physic.Hertz

// Port is an open serial device configured raw 8N1.
type Port struct {
	io.ReadWriteCloser
}

// Open fails: the raw termios transport is only implemented for Linux
// hosts. Use stdin/stdout or the fake collaborators elsewhere.
func Open(path string, baud physic.Frequency) (*Port, error) {
	return nil, errors.New("serialport: only implemented on linux")
}
