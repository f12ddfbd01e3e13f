// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/mmpresence/corefw/engine"
	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/proto"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// drain decodes every complete frame in buf, copying payloads out of the
// decoder's reused buffer, and resets buf.
func drain(t *testing.T, buf *bytes.Buffer) []framing.Message {
	t.Helper()
	var dec framing.Decoder
	var out []framing.Message
	for _, b := range buf.Bytes() {
		msg, ok, err := dec.Feed(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ok {
			msg.Payload = append([]byte(nil), msg.Payload...)
			out = append(out, msg)
		}
	}
	buf.Reset()
	return out
}

func typesOf(msgs []framing.Message) []proto.MsgType {
	out := make([]proto.MsgType, len(msgs))
	for i, m := range msgs {
		out[i] = proto.MsgType(m.MsgType)
	}
	return out
}

func stillResult(n int) engine.Result {
	r := engine.Result{
		State:    engine.StillNear,
		Pose:     engine.PoseStanding,
		NTargets: n,
		Human:    true,
		DistCM:   80,
	}
	if n > 0 {
		r.Focus = engine.FocusTarget{
			Target: engine.Target{ClusterID: 3, X: 0.12, Y: 0.9},
			Valid:  true,
		}
	}
	return r
}

func targetList(n int) []engine.Target {
	out := make([]engine.Target, n)
	for i := range out {
		out[i] = engine.Target{ClusterID: int16(i), X: 0.1 * float32(i), Y: 1}
	}
	return out
}

func TestFirstTickEmitsAllStreams(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig()
	s := NewScheduler(NewSender(&buf))

	if err := s.Tick(&cfg, stillResult(1), targetList(1), ms(0)); err != nil {
		t.Fatal(err)
	}
	got := typesOf(drain(t, &buf))
	want := []proto.MsgType{proto.EvtTargets, proto.EvtState, proto.EvtBio}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestBioCadence(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig() // bio period 1000ms
	s := NewScheduler(NewSender(&buf))

	s.Tick(&cfg, stillResult(0), nil, ms(0))
	drain(t, &buf)

	// Within the period: no bio frame even across several ticks.
	s.Tick(&cfg, stillResult(0), nil, ms(300))
	s.Tick(&cfg, stillResult(0), nil, ms(600))
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtBio {
			t.Fatalf("bio frame emitted before its period elapsed")
		}
	}

	s.Tick(&cfg, stillResult(0), nil, ms(1000))
	found := false
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtBio {
			found = true
		}
	}
	if !found {
		t.Fatalf("no bio frame at the period boundary")
	}
}

func TestBioEmittedEvenWhenGated(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig()
	s := NewScheduler(NewSender(&buf))

	r := stillResult(1)
	r.HeadMoving = true
	r.VitalsAllowed = false
	r.VitalsValid = false
	s.Tick(&cfg, r, targetList(1), ms(0))

	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) != proto.EvtBio {
			continue
		}
		bio, err := proto.DecodeBio(m.Payload)
		if err != nil {
			t.Fatal(err)
		}
		if bio.Allowed || bio.Valid {
			t.Fatalf("gated frame reported allowed=%v valid=%v", bio.Allowed, bio.Valid)
		}
		if bio.BreathCBPM != proto.MissingU16 {
			t.Fatalf("got br %d, want missing sentinel", bio.BreathCBPM)
		}
		return
	}
	t.Fatalf("bio frame missing: it is emitted unconditionally on its cadence")
}

func TestStateOnlyOnChangeOrRefresh(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig()
	s := NewScheduler(NewSender(&buf))

	s.Tick(&cfg, stillResult(0), nil, ms(0))
	drain(t, &buf)

	// Identical snapshot shortly after: nothing.
	s.Tick(&cfg, stillResult(0), nil, ms(100))
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtState {
			t.Fatalf("state re-emitted without a change")
		}
	}

	// Material change: emitted immediately.
	r := stillResult(0)
	r.State = engine.Moving
	s.Tick(&cfg, r, nil, ms(200))
	sawState := false
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtState {
			sawState = true
		}
	}
	if !sawState {
		t.Fatalf("state change did not trigger an EvtState frame")
	}

	// No change, but past the refresh window.
	s.Tick(&cfg, r, nil, ms(200+StateRefreshMS+1))
	sawState = false
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtState {
			sawState = true
		}
	}
	if !sawState {
		t.Fatalf("stale state was not refreshed after %dms", StateRefreshMS)
	}
}

func TestTargetsRequireTargetsAndCadence(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig() // targets period 250ms
	s := NewScheduler(NewSender(&buf))

	// No targets: no frame regardless of cadence.
	s.Tick(&cfg, stillResult(0), nil, ms(0))
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtTargets {
			t.Fatalf("targets frame emitted with an empty target list")
		}
	}

	s.Tick(&cfg, stillResult(1), targetList(1), ms(10))
	sawTargets := false
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtTargets {
			sawTargets = true
		}
	}
	if !sawTargets {
		t.Fatalf("first populated frame did not emit targets")
	}

	// Within the period: suppressed.
	s.Tick(&cfg, stillResult(1), targetList(1), ms(110))
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtTargets {
			t.Fatalf("targets frame emitted before its period elapsed")
		}
	}
}

func TestTargetsTruncationAndFocus(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig()
	s := NewScheduler(NewSender(&buf))

	r := stillResult(10)
	s.Tick(&cfg, r, targetList(10), ms(0))
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) != proto.EvtTargets {
			continue
		}
		tp, err := proto.DecodeTargets(m.Payload)
		if err != nil {
			t.Fatal(err)
		}
		if len(tp.Targets) != proto.MaxWireTargets {
			t.Fatalf("got %d wire targets, want %d", len(tp.Targets), proto.MaxWireTargets)
		}
		if tp.Flags&proto.FlagTargetsTruncated == 0 {
			t.Fatalf("truncation flag not set for 10 targets")
		}
		if tp.Flags&proto.FlagFocusValid == 0 || tp.FocusCluster != 3 {
			t.Fatalf("focus not carried: %+v", tp)
		}
		if tp.FocusXMM != 120 || tp.FocusYMM != 900 {
			t.Fatalf("focus position not scaled to mm: %+v", tp)
		}
		return
	}
	t.Fatalf("no targets frame emitted")
}

func TestNoCatchUpAfterLateTick(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig()
	s := NewScheduler(NewSender(&buf))

	s.Tick(&cfg, stillResult(0), nil, ms(0))
	drain(t, &buf)

	// A tick lands 5 periods late: exactly one bio frame, not five.
	s.Tick(&cfg, stillResult(0), nil, ms(5000))
	bio := 0
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtBio {
			bio++
		}
	}
	if bio != 1 {
		t.Fatalf("got %d bio frames after a late tick, want 1", bio)
	}

	// And the next period is measured from the late emit, not the schedule.
	s.Tick(&cfg, stillResult(0), nil, ms(5500))
	for _, m := range drain(t, &buf) {
		if proto.MsgType(m.MsgType) == proto.EvtBio {
			t.Fatalf("bio cadence did not restart at the late emit time")
		}
	}
}

func TestLightStreamIndependentCadence(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(NewSender(&buf))

	s.TickLight(420, true, ms(0))
	msgs := drain(t, &buf)
	if len(msgs) != 1 || proto.MsgType(msgs[0].MsgType) != proto.EvtLight {
		t.Fatalf("got %v, want one EvtLight", typesOf(msgs))
	}
	l, err := proto.DecodeLight(msgs[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	if l.Lux != 420 || !l.Valid {
		t.Fatalf("got %+v", l)
	}

	s.TickLight(421, true, ms(500))
	if len(drain(t, &buf)) != 0 {
		t.Fatalf("light frame emitted before its period elapsed")
	}
	s.TickLight(422, true, ms(1000))
	if len(drain(t, &buf)) != 1 {
		t.Fatalf("no light frame at the period boundary")
	}
}

func TestSeqStrictlyIncreasing(t *testing.T) {
	var buf bytes.Buffer
	cfg := engine.DefaultConfig()
	snd := NewSender(&buf)
	s := NewScheduler(snd)

	now := ms(0)
	for i := 0; i < 20; i++ {
		s.Tick(&cfg, stillResult(1), targetList(1), now)
		now += ms(300)
	}
	msgs := drain(t, &buf)
	if len(msgs) < 2 {
		t.Fatalf("not enough frames to check ordering")
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Seq != msgs[i-1].Seq+1 {
			t.Fatalf("seq not strictly increasing: %d then %d", msgs[i-1].Seq, msgs[i].Seq)
		}
	}
}
