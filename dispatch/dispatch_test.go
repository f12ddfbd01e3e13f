// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dispatch

import (
	"testing"
	"time"

	"github.com/mmpresence/corefw/engine"
	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/proto"
)

func TestSetHeadMoving(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdSetHeadMoving, []byte{1}, 0)
	if r.MsgType != proto.EvtAck || r.Ack.Status != proto.StatusOK || r.Ack.Value != 1 {
		t.Fatalf("got %+v", r)
	}
	if !cfg.HeadMoving {
		t.Fatalf("HeadMoving was not applied")
	}
}

func TestSetHeadMovingBadLength(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdSetHeadMoving, nil, 0)
	if r.MsgType != proto.EvtErr || r.Err.Code != proto.ErrBadLen {
		t.Fatalf("got %+v", r)
	}
	if r.Err.CmdID != proto.CmdSetHeadMoving {
		t.Fatalf("error must name the offending command, got %#x", r.Err.CmdID)
	}
}

func TestSetHeadMovingBadValue(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdSetHeadMoving, []byte{2}, 0)
	if r.MsgType != proto.EvtErr || r.Err.Code != proto.ErrBadValue {
		t.Fatalf("got %+v", r)
	}
	if cfg.HeadMoving {
		t.Fatalf("config mutated despite a rejected value")
	}
}

func TestSetFocusClusterAutoAndExplicit(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdSetFocusCluster, proto.EncodeI16(nil, 3), 0)
	if r.Ack.Status != proto.StatusOK || r.Ack.Value != 3 || cfg.ForcedFocusCluster != 3 {
		t.Fatalf("got %+v, cfg=%+v", r, cfg)
	}
	r = Dispatch(&cfg, proto.CmdSetFocusCluster, proto.EncodeI16(nil, -1), 0)
	if r.Ack.Status != proto.StatusOK || r.Ack.Value != -1 || cfg.ForcedFocusCluster != -1 {
		t.Fatalf("got %+v, cfg=%+v", r, cfg)
	}
}

func TestSetBioPeriodClamp(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdSetBioPeriodMS, proto.EncodeU16(nil, 10), 0)
	if r.Ack.Status != proto.StatusClamped || r.Ack.Value != MinPeriodMS {
		t.Fatalf("got %+v, want CLAMPED to %d", r, MinPeriodMS)
	}
	if cfg.BioPeriodMS != MinPeriodMS {
		t.Fatalf("got %d, want clamped to %d", cfg.BioPeriodMS, MinPeriodMS)
	}
}

func TestSetTargetsPeriodWithinRangeOK(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdSetTargetsPeriodMS, proto.EncodeU16(nil, 500), 0)
	if r.Ack.Status != proto.StatusOK || r.Ack.Value != 500 || cfg.TargetsPeriodMS != 500 {
		t.Fatalf("got %+v, cfg=%+v", r, cfg)
	}
}

func TestPing(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdPing, nil, 1234*time.Millisecond)
	if r.MsgType != proto.EvtPong || r.Pong.TMS != 1234 {
		t.Fatalf("got %+v, want EvtPong with t_ms=1234", r)
	}
}

func TestPingWithPayloadRejected(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.CmdPing, []byte{0}, 0)
	if r.MsgType != proto.EvtErr || r.Err.Code != proto.ErrBadLen {
		t.Fatalf("got %+v", r)
	}
}

func TestUnknownMsgType(t *testing.T) {
	cfg := engine.DefaultConfig()
	r := Dispatch(&cfg, proto.MsgType(0x7f), nil, 0)
	if r.MsgType != proto.EvtErr || r.Err.Code != proto.ErrUnknownCmd {
		t.Fatalf("got %+v", r)
	}
	if r.Err.CmdID != 0x7f {
		t.Fatalf("got cmd_id %#x, want 0x7f", r.Err.CmdID)
	}
}

func TestFramingErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want proto.ErrCode
	}{
		{framing.ErrCRCMismatch, proto.ErrCRCFail},
		{framing.ErrUnsupportedVersion, proto.ErrUnsupportedVersion},
		{framing.ErrLengthMismatch, proto.ErrBadLen},
		{framing.ErrFrameOverflow, proto.ErrBadLen},
		{framing.ErrCorruptCOBS, proto.ErrBadLen},
		{framing.ErrFrameTooShort, proto.ErrBadLen},
	}
	for _, c := range cases {
		r := FramingError(c.err, 0x42)
		if r.MsgType != proto.EvtErr || r.Err.Code != c.want {
			t.Fatalf("FramingError(%v): got %+v, want code %d", c.err, r, c.want)
		}
	}
}
