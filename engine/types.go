// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package engine implements the presence-vitals fusion and hysteretic state
// machine that turns a raw per-frame radar observation into a classified
// person state, pose guess, and vitals gate.
package engine

// Tuning constants, compile-time only.
const (
	NearMinDistCM       = 35
	NearMaxDistCM       = 150
	SitStandThresholdCM = 55

	MovingCMS = 8

	BRMin = 4
	BRMax = 30
	HRMin = 35
	HRMax = 200

	AbsentHoldMS  = 1200
	AbsentConfirm = 8

	VitalsConfirm              = 5
	HumanStableFallbackConfirm = 3
	TargetLossGraceMS          = 1200

	// RangeStep is the doppler-index-to-cm/s scale factor. It is
	// driver-specific and must be calibrated against the radar module in use.
	RangeStep = 1.0
)

// PersonState is the 6-way classifier output. It is a plain tagged enum with
// no inheritance; state transitions are a single cascading decision
// evaluated once per frame (see Engine.Update).
type PersonState uint8

// Valid values for PersonState. Initial state is NoTarget.
const (
	NoTarget PersonState = iota
	MultiTarget
	PresentFar
	Moving
	StillNear
	RestingVitals
)

// String implements fmt.Stringer.
func (s PersonState) String() string {
	switch s {
	case NoTarget:
		return "NO_TARGET"
	case MultiTarget:
		return "MULTI_TARGET"
	case PresentFar:
		return "PRESENT_FAR"
	case Moving:
		return "MOVING"
	case StillNear:
		return "STILL_NEAR"
	case RestingVitals:
		return "RESTING_VITALS"
	default:
		return "UNKNOWN_STATE"
	}
}

// PoseGuess is derived fresh every frame from (PersonState, distance); it is
// never retained as engine state.
type PoseGuess uint8

// Valid values for PoseGuess.
const (
	PoseUnknown PoseGuess = iota
	PoseSitting
	PoseStanding
)

// String implements fmt.Stringer.
func (p PoseGuess) String() string {
	switch p {
	case PoseSitting:
		return "SITTING"
	case PoseStanding:
		return "STANDING"
	default:
		return "UNKNOWN_POSE"
	}
}

// Target is one per-frame clustered radar observation. It is immutable
// within the frame it was produced in.
type Target struct {
	ClusterID    int16
	X, Y         float32 // meters
	DopplerIndex int32
}

// R is the Cartesian distance of the target from the sensor, in meters.
func (t Target) R() float32 {
	return float32(hypot(float64(t.X), float64(t.Y)))
}

// BearingDeg is the bearing of the target relative to the sensor boresight,
// in degrees.
func (t Target) BearingDeg() float32 {
	return float32(atan2Deg(float64(t.X), float64(t.Y)))
}

// SpeedCMS is the target's radial speed, in cm/s.
func (t Target) SpeedCMS() float32 {
	return float32(t.DopplerIndex) * RangeStep
}

// FocusTarget is the at-most-one selected target for a frame, carrying both
// the target's values and its index into the frame's target list.
type FocusTarget struct {
	Target
	Index int
	Valid bool
}

// RadarFrame is the per-frame observation handed to Engine.Update by the
// radar driver collaborator (out of scope for this repo; see radar.Driver).
type RadarFrame struct {
	Human   bool
	Targets []Target

	DistanceOK bool
	DistanceCM float32

	BreathOK  bool
	BreathBPM float32

	HeartOK  bool
	HeartBPM float32
}

// Config is the flat, mutable configuration record. It is written only by
// the Command Dispatcher and read by Fusion and the Telemetry Scheduler; a
// single-threaded model makes locking unnecessary.
type Config struct {
	HeadMoving         bool
	ForcedFocusCluster int16 // -1 means auto.
	BioPeriodMS        uint16
	TargetsPeriodMS    uint16
}

// DefaultConfig returns the configuration an engine starts with at boot.
func DefaultConfig() Config {
	return Config{
		HeadMoving:         false,
		ForcedFocusCluster: -1,
		BioPeriodMS:        1000,
		TargetsPeriodMS:    250,
	}
}
