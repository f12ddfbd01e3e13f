// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package serialport opens and configures the byte-oriented host link: a raw
// 8N1 tty with a short read timeout so the main loop's inbound pump never
// blocks.
package serialport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"periph.io/x/periph/conn/physic"
)

// DefaultBaud is the link rate the host protocol is specified at.
const DefaultBaud = 115200 * physic.Hertz

var bauds = map[physic.Frequency]uint32{
	9600 * physic.Hertz:   unix.B9600,
	19200 * physic.Hertz:  unix.B19200,
	38400 * physic.Hertz:  unix.B38400,
	57600 * physic.Hertz:  unix.B57600,
	115200 * physic.Hertz: unix.B115200,
	230400 * physic.Hertz: unix.B230400,
}

// Port is an open serial device configured raw 8N1.
type Port struct {
	f *os.File
}

// Open opens path and configures it for baud 8N1 with no echo, no line
// discipline and a 100ms read timeout (VMIN=0, VTIME=1), so Read returns
// whatever bytes are pending rather than blocking for a full buffer.
func Open(path string, baud physic.Frequency) (*Port, error) {
	speed, ok := bauds[baud]
	if !ok {
		return nil, fmt.Errorf("serialport: unsupported baud rate %s", baud)
	}
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	t, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: TCGETS %s: %v", path, err)
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cflag &^= unix.CBAUD
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 1
	if err := unix.IoctlSetTermios(int(f.Fd()), unix.TCSETS, t); err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: TCSETS %s: %v", path, err)
	}
	return &Port{f: f}, nil
}

// Read implements io.Reader on top of os.File.Read.
func (p *Port) Read(b []byte) (int, error) {
	return p.f.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.f.Close()
}
