// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"time"

	"github.com/mmpresence/corefw/engine"
	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/proto"
)

// StateRefreshMS is the forced EvtState refresh interval: even without a
// material change, a state frame goes out when more than this has elapsed
// since the last one.
const StateRefreshMS = 1000

// DefaultLightPeriodMS is the ambient-light stream cadence. The light stream
// has no host command to retune it.
const DefaultLightPeriodMS = 1000

// Scheduler decides, once per main-loop iteration, which of the targets,
// state, bio and light frames to emit, based on each stream's independent
// cadence and on material state changes. A late tick never causes catch-up
// bursts: each stream's clock restarts at the actual emit time.
type Scheduler struct {
	snd *Sender

	LightPeriodMS uint16

	lastTargets time.Duration
	lastState   time.Duration
	lastBio     time.Duration
	lastLight   time.Duration
	sentTargets bool
	sentState   bool
	sentBio     bool
	sentLight   bool

	prevState      engine.PersonState
	prevPose       engine.PoseGuess
	prevHeadMoving bool
	prevNTargets   int

	scratch [framing.MaxPayloadLen]byte
}

// NewScheduler returns a scheduler emitting through snd.
func NewScheduler(snd *Sender) *Scheduler {
	return &Scheduler{snd: snd, LightPeriodMS: DefaultLightPeriodMS}
}

// Tick runs one scheduling pass after a fusion update: targets first, then
// state, then bio. now is the monotonic milliseconds-since-boot clock.
func (s *Scheduler) Tick(cfg *engine.Config, r engine.Result, targets []engine.Target, now time.Duration) error {
	if r.NTargets > 0 && s.due(s.lastTargets, s.sentTargets, cfg.TargetsPeriodMS, now) {
		if err := s.emitTargets(cfg, r, targets, now); err != nil {
			return err
		}
		s.lastTargets = now
		s.sentTargets = true
	}

	changed := !s.sentState ||
		r.State != s.prevState || r.Pose != s.prevPose ||
		r.HeadMoving != s.prevHeadMoving || r.NTargets != s.prevNTargets
	if changed || now-s.lastState > StateRefreshMS*time.Millisecond {
		if err := s.emitState(r, now); err != nil {
			return err
		}
		s.lastState = now
		s.sentState = true
		s.prevState = r.State
		s.prevPose = r.Pose
		s.prevHeadMoving = r.HeadMoving
		s.prevNTargets = r.NTargets
	}

	if s.due(s.lastBio, s.sentBio, cfg.BioPeriodMS, now) {
		if err := s.emitBio(r, now); err != nil {
			return err
		}
		s.lastBio = now
		s.sentBio = true
	}
	return nil
}

// TickLight runs the independent ambient-light stream. It never reads or
// influences engine state.
func (s *Scheduler) TickLight(lux float32, valid bool, now time.Duration) error {
	if !s.due(s.lastLight, s.sentLight, s.LightPeriodMS, now) {
		return nil
	}
	p := proto.EncodeLight(s.scratch[:0], proto.LightPayload{
		TMS:   tms(now),
		Lux:   proto.ScaleU16(lux, 1),
		Valid: valid,
	})
	if err := s.snd.Send(proto.EvtLight, p); err != nil {
		return err
	}
	s.lastLight = now
	s.sentLight = true
	return nil
}

func (s *Scheduler) due(last time.Duration, sent bool, periodMS uint16, now time.Duration) bool {
	return !sent || now-last >= time.Duration(periodMS)*time.Millisecond
}

func (s *Scheduler) emitTargets(cfg *engine.Config, r engine.Result, targets []engine.Target, now time.Duration) error {
	t := proto.TargetsPayload{
		TMS:                tms(now),
		ForcedFocusCluster: cfg.ForcedFocusCluster,
		FocusCluster:       -1,
	}
	if r.Focus.Valid {
		t.Flags |= proto.FlagFocusValid
		t.FocusCluster = r.Focus.ClusterID
		t.FocusXMM = proto.ScaleI16(r.Focus.X, 1000)
		t.FocusYMM = proto.ScaleI16(r.Focus.Y, 1000)
		t.FocusRMM = proto.ScaleU16(r.Focus.R(), 1000)
		t.FocusBearingCDeg = proto.ScaleI16(r.Focus.BearingDeg(), 100)
		t.FocusVCMSx10 = proto.ScaleI16(r.Focus.SpeedCMS(), 10)
	}
	if len(targets) > proto.MaxWireTargets {
		t.Flags |= proto.FlagTargetsTruncated
		targets = targets[:proto.MaxWireTargets]
	}
	var wire [proto.MaxWireTargets]proto.WireTarget
	for i, tgt := range targets {
		wire[i] = proto.WireTarget{
			Cluster:     tgt.ClusterID,
			XMM:         proto.ScaleI16(tgt.X, 1000),
			YMM:         proto.ScaleI16(tgt.Y, 1000),
			RMM:         proto.ScaleU16(tgt.R(), 1000),
			BearingCDeg: proto.ScaleI16(tgt.BearingDeg(), 100),
			VCMSx10:     proto.ScaleI16(tgt.SpeedCMS(), 10),
		}
	}
	t.Targets = wire[:len(targets)]
	return s.snd.Send(proto.EvtTargets, proto.EncodeTargets(s.scratch[:0], t))
}

func (s *Scheduler) emitState(r engine.Result, now time.Duration) error {
	distMM := uint16(proto.MissingU16)
	if r.DistCM > 0 {
		distMM = proto.ScaleU16(r.DistCM, 10)
	}
	p := proto.EncodeState(s.scratch[:0], proto.StatePayload{
		TMS:        tms(now),
		State:      uint8(r.State),
		Pose:       uint8(r.Pose),
		HeadMoving: r.HeadMoving,
		Human:      r.Human,
		NTargets:   clampU8(r.NTargets),
		DistNew:    r.DistNew,
		DistMM:     distMM,
	})
	return s.snd.Send(proto.EvtState, p)
}

func (s *Scheduler) emitBio(r engine.Result, now time.Duration) error {
	brCBPM := uint16(proto.MissingU16)
	if r.BreathBPM > 0 {
		brCBPM = proto.ScaleU16(r.BreathBPM, 100)
	}
	hrCBPM := uint16(proto.MissingU16)
	if r.HeartBPM > 0 {
		hrCBPM = proto.ScaleU16(r.HeartBPM, 100)
	}
	p := proto.EncodeBio(s.scratch[:0], proto.BioPayload{
		TMS:        tms(now),
		Allowed:    r.VitalsAllowed,
		Valid:      r.VitalsValid,
		BreathNew:  r.BreathNew,
		HeartNew:   r.HeartNew,
		BreathCBPM: brCBPM,
		HeartCBPM:  hrCBPM,
	})
	return s.snd.Send(proto.EvtBio, p)
}

func tms(now time.Duration) uint32 {
	return uint32(now / time.Millisecond)
}

func clampU8(v int) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
