// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package telemetry owns the outbound side of the wire: the sequence-stamped
// frame sender and the scheduler that multiplexes the cadenced telemetry
// streams over it.
package telemetry

import (
	"io"

	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/proto"
)

// Sender stamps every outbound frame with the strictly increasing tx_seq
// and writes it to the serial device. It is written to only from the main
// loop; the sequence counter wraps at 2^16, which the host uses for loss
// detection only.
type Sender struct {
	w   io.Writer
	enc framing.Encoder
	seq uint16
}

// NewSender returns a Sender writing frames to w.
func NewSender(w io.Writer) *Sender {
	return &Sender{w: w}
}

// Send encodes and writes one frame. Each successful encode consumes one
// sequence number even if the underlying write fails; the host sees a gap,
// which is exactly what tx_seq is for.
func (s *Sender) Send(t proto.MsgType, payload []byte) error {
	frame, err := s.enc.Encode(byte(t), s.seq, payload)
	if err != nil {
		return err
	}
	s.seq++
	_, err = s.w.Write(frame)
	return err
}

// Seq returns the sequence number the next frame will carry.
func (s *Sender) Seq() uint16 {
	return s.seq
}
