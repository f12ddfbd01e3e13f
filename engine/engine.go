// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package engine

import "time"

// optFloat is the internal stand-in for "Option<f32>": a last-good reading
// that is either unset or holds a finite, positive value. It is never
// allowed to hold NaN, zero, or a negative value.
type optFloat struct {
	ok    bool
	value float32
}

// Engine owns all hysteresis counters and last-good values. All engine
// state is created at boot in its initial values, mutated only on the main
// loop's frame cadence, and never reallocated.
type Engine struct {
	// Cfg is written only by the Command Dispatcher and read here and by the
	// Telemetry Scheduler. The whole engine is single-threaded cooperative so
	// no locking is needed around it.
	Cfg Config

	lastDist optFloat
	lastBR   optFloat
	lastHR   optFloat

	lastPresenceMS time.Duration
	absentStreak   uint8

	vitalsStreak uint8

	humanStableStreak  uint8
	lastSingleTargetMS time.Duration
	seenSingleTarget   bool
}

// New returns an engine in its initial boot state.
func New() *Engine {
	// Nothing has been observed at boot, so the absence hysteresis starts out
	// already confirmed: a first frame with no presence signal is NoTarget.
	return &Engine{
		Cfg:            DefaultConfig(),
		lastPresenceMS: -AbsentHoldMS * time.Millisecond,
		absentStreak:   AbsentConfirm,
	}
}

// Result is everything downstream consumers (Telemetry Scheduler, dashboard)
// need out of one Update call.
type Result struct {
	State PersonState
	Pose  PoseGuess
	Focus FocusTarget

	NTargets   int
	HeadMoving bool
	Human      bool

	DistCM  float32
	DistNew bool

	BreathBPM float32
	BreathNew bool
	HeartBPM  float32
	HeartNew  bool

	VitalsAllowed bool
	VitalsValid   bool
}

// Update runs one frame through the fusion cascade: focus selection,
// last-good tracking, presence hysteresis, the vitals gate and the state
// decision. now is a monotonic milliseconds-since-boot timestamp.
func (e *Engine) Update(frame RadarFrame, now time.Duration) Result {
	headMoving := e.Cfg.HeadMoving
	nTargets := len(frame.Targets)

	// Focus selection.
	focus := pickFocus(frame.Targets, e.Cfg.ForcedFocusCluster)

	// Last-good values.
	distCM, distNew := updateLastGood(&e.lastDist, frame.DistanceOK, frame.DistanceCM)
	brBPM, brNew := updateLastGood(&e.lastBR, frame.BreathOK, frame.BreathBPM)
	hrBPM, hrNew := updateLastGood(&e.lastHR, frame.HeartOK, frame.HeartBPM)

	// Presence. Only signals observed this frame count; the
	// retained last-good values must not keep presence alive after the
	// person is gone.
	presentNow := frame.Human || nTargets > 0 || distNew || brNew || hrNew
	if presentNow {
		e.lastPresenceMS = now
		e.absentStreak = 0
	} else {
		e.absentStreak = satInc(e.absentStreak)
	}
	presenceRecent := now-e.lastPresenceMS < AbsentHoldMS*time.Millisecond

	// Movement.
	targetMoving := focus.Valid && absf32(focus.SpeedCMS()) >= MovingCMS
	moving := headMoving || targetMoving

	// Near band.
	near := distCM >= NearMinDistCM && distCM <= NearMaxDistCM

	// Single-target tracking and fallback lock.
	singleTarget := nTargets == 1
	if singleTarget {
		e.seenSingleTarget = true
		e.lastSingleTargetMS = now
	}
	if frame.Human && !headMoving {
		e.humanStableStreak = satInc(e.humanStableStreak)
	} else {
		e.humanStableStreak = 0
	}
	singleTargetRecent := e.seenSingleTarget && now-e.lastSingleTargetMS <= TargetLossGraceMS*time.Millisecond
	fallbackTargetLock := !singleTarget && nTargets == 0 && singleTargetRecent && e.humanStableStreak >= HumanStableFallbackConfirm

	// Vitals gate.
	brValid := frame.BreathOK && finite(brBPM) && brBPM >= BRMin && brBPM <= BRMax
	hrValid := frame.HeartOK && finite(hrBPM) && hrBPM >= HRMin && hrBPM <= HRMax
	vitalsAllowed := !headMoving && (singleTarget || fallbackTargetLock)
	vitalsValid := vitalsAllowed && brValid && hrValid
	if vitalsValid {
		e.vitalsStreak = satInc(e.vitalsStreak)
	} else {
		e.vitalsStreak = 0
	}

	// State decision, first matching rule wins. Ordering is
	// semantically significant: MULTI_TARGET precedes MOVING.
	var state PersonState
	switch {
	case !presenceRecent && e.absentStreak >= AbsentConfirm:
		state = NoTarget
		e.vitalsStreak = 0
	case nTargets > 1:
		state = MultiTarget
		e.vitalsStreak = 0
	case moving:
		state = Moving
		e.vitalsStreak = 0
	case near && e.vitalsStreak >= VitalsConfirm:
		state = RestingVitals
	case near:
		state = StillNear
	default:
		state = PresentFar
	}

	// Pose.
	pose := PoseUnknown
	if state != NoTarget && finitePositive(distCM) {
		if distCM < SitStandThresholdCM {
			pose = PoseSitting
		} else {
			pose = PoseStanding
		}
	}

	return Result{
		State:         state,
		Pose:          pose,
		Focus:         focus,
		NTargets:      nTargets,
		HeadMoving:    headMoving,
		Human:         frame.Human,
		DistCM:        distCM,
		DistNew:       distNew,
		BreathBPM:     brBPM,
		BreathNew:     brNew,
		HeartBPM:      hrBPM,
		HeartNew:      hrNew,
		VitalsAllowed: vitalsAllowed,
		VitalsValid:   vitalsValid,
	}
}

// updateLastGood stores value into o when ok and value is finite-positive,
// never overwriting o with NaN, zero, or a negative value; otherwise it
// reads back whatever was previously stored (or the zero value if nothing
// was ever stored, which downstream finitePositive checks correctly treat
// as "no data").
func updateLastGood(o *optFloat, ok bool, value float32) (effective float32, isNew bool) {
	if ok && finitePositive(value) {
		o.ok = true
		o.value = value
		return value, true
	}
	return o.value, false
}

func satInc(v uint8) uint8 {
	if v == 255 {
		return 255
	}
	return v + 1
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
