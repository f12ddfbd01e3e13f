// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dispatch implements the command dispatcher: every inbound
// command runs through the same validate-length, validate-range, apply,
// respond cascade before it is allowed to touch engine configuration.
package dispatch

import (
	"time"

	"github.com/mmpresence/corefw/engine"
	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/proto"
)

// MinPeriodMS is the floor enforced on both telemetry cadence commands;
// anything requested below it is clamped rather than rejected.
const MinPeriodMS = 50

// Response is the single frame to transmit back for one inbound command or
// framing failure. Exactly one of Ack/Err/Pong is meaningful, selected by
// MsgType.
type Response struct {
	MsgType proto.MsgType
	Ack     proto.AckPayload
	Err     proto.ErrPayload
	Pong    proto.PongPayload
}

// EncodePayload appends the response's wire payload to dst.
func (r Response) EncodePayload(dst []byte) []byte {
	switch r.MsgType {
	case proto.EvtAck:
		return proto.EncodeAck(dst, r.Ack)
	case proto.EvtPong:
		return proto.EncodePong(dst, r.Pong)
	default:
		return proto.EncodeErr(dst, r.Err)
	}
}

// Dispatch validates and, if valid, applies one inbound command against
// cfg, returning the single response frame to send back. Validation order
// per command is length exact, then value range, then apply. cfg is mutated
// in place; now is the monotonic milliseconds-since-boot clock used to stamp
// EvtPong.
func Dispatch(cfg *engine.Config, msgType proto.MsgType, payload []byte, now time.Duration) Response {
	switch msgType {
	case proto.CmdSetHeadMoving:
		return setHeadMoving(cfg, payload)
	case proto.CmdSetFocusCluster:
		return setFocusCluster(cfg, payload)
	case proto.CmdSetBioPeriodMS:
		return setPeriod(&cfg.BioPeriodMS, msgType, payload)
	case proto.CmdSetTargetsPeriodMS:
		return setPeriod(&cfg.TargetsPeriodMS, msgType, payload)
	case proto.CmdPing:
		return ping(payload, now)
	default:
		return errResult(msgType, proto.ErrUnknownCmd)
	}
}

func setHeadMoving(cfg *engine.Config, payload []byte) Response {
	v, err := proto.DecodeU8(payload)
	if err != nil {
		return errResult(proto.CmdSetHeadMoving, proto.ErrBadLen)
	}
	if v > 1 {
		return errResult(proto.CmdSetHeadMoving, proto.ErrBadValue)
	}
	cfg.HeadMoving = v == 1
	return ackResult(proto.CmdSetHeadMoving, proto.StatusOK, int32(v))
}

func setFocusCluster(cfg *engine.Config, payload []byte) Response {
	v, err := proto.DecodeI16(payload)
	if err != nil {
		return errResult(proto.CmdSetFocusCluster, proto.ErrBadLen)
	}
	// Any i16 is acceptable: -1 (or below) reads as "auto", anything else as
	// a cluster id to pin the focus to.
	cfg.ForcedFocusCluster = v
	return ackResult(proto.CmdSetFocusCluster, proto.StatusOK, int32(v))
}

func setPeriod(field *uint16, msgType proto.MsgType, payload []byte) Response {
	v, err := proto.DecodeU16(payload)
	if err != nil {
		return errResult(msgType, proto.ErrBadLen)
	}
	applied := v
	status := proto.StatusOK
	if applied < MinPeriodMS {
		applied = MinPeriodMS
		status = proto.StatusClamped
	}
	*field = applied
	return ackResult(msgType, status, int32(applied))
}

func ping(payload []byte, now time.Duration) Response {
	if len(payload) != 0 {
		return errResult(proto.CmdPing, proto.ErrBadLen)
	}
	return Response{
		MsgType: proto.EvtPong,
		Pong:    proto.PongPayload{TMS: uint32(now / time.Millisecond)},
	}
}

// FramingError maps a decoder failure to the EvtErr frame to send back.
// msgType is the offending frame's msg_type when the decoder got far enough
// to read one, 0 otherwise.
func FramingError(err error, msgType proto.MsgType) Response {
	switch err {
	case framing.ErrUnsupportedVersion:
		return errResult(msgType, proto.ErrUnsupportedVersion)
	case framing.ErrCRCMismatch:
		return errResult(msgType, proto.ErrCRCFail)
	default:
		// Overflow, corrupt COBS, short frame and length mismatch all report
		// as a length problem.
		return errResult(msgType, proto.ErrBadLen)
	}
}

func ackResult(cmd proto.MsgType, status proto.AckStatus, value int32) Response {
	return Response{
		MsgType: proto.EvtAck,
		Ack:     proto.AckPayload{CmdID: cmd, Status: status, Value: value},
	}
}

func errResult(cmd proto.MsgType, code proto.ErrCode) Response {
	return Response{
		MsgType: proto.EvtErr,
		Err:     proto.ErrPayload{CmdID: cmd, Code: code},
	}
}
