// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package framing implements the wire-level framing codec: a
// length-prefixed, CRC-16/CCITT-FALSE-protected packet shape, COBS-stuffed
// and 0x00-delimited for transport over a byte stream such as a UART.
package framing

import (
	"encoding/binary"
	"errors"
)

// Wire layout constants.
const (
	ProtocolVersion = 1

	// HeaderLen is version(1) + msg_type(1) + seq(2) + payload_len(2).
	HeaderLen = 6
	CRCLen    = 2

	MaxPayloadLen = 256
	// MaxPacketLen is the unstuffed header+payload+crc packet buffer size.
	MaxPacketLen = 512
	// MaxStuffedLen covers the worst-case COBS expansion (one overhead byte
	// per 254 data bytes) with headroom for the delimiter.
	MaxStuffedLen = 640
)

var (
	ErrPayloadTooLarge    = errors.New("framing: payload too large")
	ErrFrameTooShort      = errors.New("framing: frame shorter than header+crc")
	ErrLengthMismatch     = errors.New("framing: payload_len does not match frame length")
	ErrUnsupportedVersion = errors.New("framing: unsupported protocol version")
	ErrCRCMismatch        = errors.New("framing: crc mismatch")
	ErrFrameOverflow      = errors.New("framing: frame exceeded inbound buffer before delimiter")
)

// Encoder builds wire frames from fixed, reused buffers: no allocation
// happens on the steady-state send path.
type Encoder struct {
	packet  [MaxPacketLen]byte
	stuffed [MaxStuffedLen]byte
}

// Encode builds a complete COBS-stuffed, delimiter-terminated frame for
// msgType/seq/payload. The returned slice aliases the Encoder's internal
// buffer and is only valid until the next call to Encode.
func (e *Encoder) Encode(msgType byte, seq uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, ErrPayloadTooLarge
	}

	buf := e.packet[:0]
	buf = append(buf, ProtocolVersion, msgType)
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], seq)
	buf = append(buf, u16[:]...)
	binary.LittleEndian.PutUint16(u16[:], uint16(len(payload)))
	buf = append(buf, u16[:]...)
	buf = append(buf, payload...)
	binary.LittleEndian.PutUint16(u16[:], CRC16(buf))
	buf = append(buf, u16[:]...)

	out := Stuff(e.stuffed[:0], buf)
	out = append(out, 0x00)
	return out, nil
}

// Message is one decoded frame. Payload aliases the Decoder's internal
// buffer and is only valid until the next call to Feed that completes a
// frame.
type Message struct {
	MsgType byte
	Seq     uint16
	Payload []byte
}

// Decoder accumulates incoming bytes and yields a Message each time a 0x00
// delimiter completes a well-formed frame. It holds no heap state beyond
// its own fixed buffers, so it can be reused across a connection's whole
// lifetime.
type Decoder struct {
	in       [MaxStuffedLen]byte
	n        int
	overflow bool

	out [MaxPacketLen]byte
}

// Feed processes one incoming byte. ok is true only when b completed a
// frame that decoded cleanly; err is non-nil when b completed a frame that
// failed to decode (corrupt COBS, bad CRC, length mismatch, overflowed
// buffer). Both false/nil means more bytes are needed.
//
// When a frame fails after its header was readable, msg.MsgType carries the
// offending msg_type so the caller can name it in an error report; it is 0
// when the frame was too mangled to parse a header at all.
func (d *Decoder) Feed(b byte) (msg Message, ok bool, err error) {
	if b != 0x00 {
		if d.n >= len(d.in) {
			d.overflow = true
			return Message{}, false, nil
		}
		d.in[d.n] = b
		d.n++
		return Message{}, false, nil
	}

	stuffed := d.in[:d.n]
	overflowed := d.overflow
	d.n = 0
	d.overflow = false

	if overflowed {
		return Message{}, false, ErrFrameOverflow
	}
	if len(stuffed) == 0 {
		// A bare delimiter (e.g. inter-frame padding) carries no frame.
		return Message{}, false, nil
	}

	unstuffed, err := Unstuff(d.out[:0], stuffed)
	if err != nil {
		return Message{}, false, err
	}
	return parseFrame(unstuffed)
}

func parseFrame(p []byte) (Message, bool, error) {
	if len(p) < HeaderLen+CRCLen {
		return Message{}, false, ErrFrameTooShort
	}
	msgType := p[1]
	seq := binary.LittleEndian.Uint16(p[2:4])
	payloadLen := int(binary.LittleEndian.Uint16(p[4:6]))
	if HeaderLen+payloadLen+CRCLen != len(p) {
		return Message{MsgType: msgType}, false, ErrLengthMismatch
	}
	if p[0] != ProtocolVersion {
		return Message{MsgType: msgType}, false, ErrUnsupportedVersion
	}

	body := p[:len(p)-CRCLen]
	gotCRC := binary.LittleEndian.Uint16(p[len(p)-CRCLen:])
	if wantCRC := CRC16(body); gotCRC != wantCRC {
		return Message{MsgType: msgType}, false, ErrCRCMismatch
	}

	return Message{
		MsgType: msgType,
		Seq:     seq,
		Payload: p[HeaderLen : HeaderLen+payloadLen],
	}, true, nil
}
