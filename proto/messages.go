// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package proto defines the message catalogue carried inside framing
// packets: msg_type constants and the payload layouts for each one. All
// multi-byte fields are little endian. Scaled units on the wire:
// millimeters for distances and positions, centi-degrees for bearings,
// deci-centimeters/second for velocity (cm/s x 10) and centi-bpm for
// vitals (bpm x 100).
package proto

import (
	"encoding/binary"
	"errors"
)

// MsgType identifies the payload layout carried by a framing.Message.
type MsgType uint8

// Host -> device commands.
const (
	CmdSetHeadMoving      MsgType = 0x01 // u8 hm in {0,1}
	CmdSetFocusCluster    MsgType = 0x02 // i16 cluster, -1 = auto
	CmdSetBioPeriodMS     MsgType = 0x03 // u16 ms, clamped to >= 50
	CmdSetTargetsPeriodMS MsgType = 0x04 // u16 ms, clamped to >= 50
	CmdPing               MsgType = 0x05 // empty
)

// Device -> host.
const (
	EvtAck  MsgType = 0x81 // u8 cmd_id, u8 status, i32 value
	EvtErr  MsgType = 0x82 // u8 cmd_id, u8 err_code
	EvtPong MsgType = 0x83 // u32 t_ms

	EvtHello   MsgType = 0x90 // u8 proto_version, u16 feature_bits; once at boot
	EvtState   MsgType = 0x91 // StatePayload
	EvtTargets MsgType = 0x92 // TargetsPayload
	EvtBio     MsgType = 0x93 // BioPayload
	EvtLight   MsgType = 0x94 // LightPayload
)

// AckStatus reports how a command was applied.
type AckStatus uint8

// Valid values for AckStatus.
const (
	StatusOK      AckStatus = 0
	StatusClamped AckStatus = 1 // value was adjusted to satisfy a constraint
	StatusIgnored AckStatus = 2 // reserved
)

// ErrCode identifies why an inbound frame was rejected.
type ErrCode uint8

// Valid values for ErrCode.
const (
	ErrUnknownCmd         ErrCode = 1
	ErrBadLen             ErrCode = 2
	ErrBadValue           ErrCode = 3
	ErrCRCFail            ErrCode = 4
	ErrUnsupportedVersion ErrCode = 5
)

// MissingU16 is the sentinel carried by unsigned scaled fields whose source
// reading is missing or non-finite.
const MissingU16 = 0xFFFF

// Flags carried in the TargetsPayload flags byte.
const (
	FlagFocusValid       = 1 << 0
	FlagTargetsTruncated = 1 << 1
)

// MaxWireTargets is the hard cap on target entries in one TargetsPayload;
// frames observing more targets set FlagTargetsTruncated instead of growing.
const MaxWireTargets = 8

var errBadPayloadLen = errors.New("proto: payload length does not match message type")

// --- command payloads ---

// DecodeU8 decodes a 1-byte command payload (CmdSetHeadMoving).
func DecodeU8(p []byte) (uint8, error) {
	if len(p) != 1 {
		return 0, errBadPayloadLen
	}
	return p[0], nil
}

// DecodeI16 decodes a little-endian signed 16-bit command payload
// (CmdSetFocusCluster, where -1 means "auto").
func DecodeI16(p []byte) (int16, error) {
	if len(p) != 2 {
		return 0, errBadPayloadLen
	}
	return int16(binary.LittleEndian.Uint16(p)), nil
}

// DecodeU16 decodes a little-endian unsigned 16-bit command payload (the
// period-setting commands).
func DecodeU16(p []byte) (uint16, error) {
	if len(p) != 2 {
		return 0, errBadPayloadLen
	}
	return binary.LittleEndian.Uint16(p), nil
}

// EncodeU8 encodes a 1-byte command payload.
func EncodeU8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

// EncodeI16 encodes a little-endian signed 16-bit command payload.
func EncodeI16(dst []byte, v int16) []byte {
	return appendU16(dst, uint16(v))
}

// EncodeU16 encodes a little-endian unsigned 16-bit command payload.
func EncodeU16(dst []byte, v uint16) []byte {
	return appendU16(dst, v)
}

// --- ack / err / pong payloads ---

// AckPayload is the body of an EvtAck message. Value is the applied value,
// which differs from the requested one when Status is StatusClamped.
type AckPayload struct {
	CmdID  MsgType
	Status AckStatus
	Value  int32
}

func EncodeAck(dst []byte, a AckPayload) []byte {
	dst = append(dst, byte(a.CmdID), byte(a.Status))
	return appendU32(dst, uint32(a.Value))
}

func DecodeAck(p []byte) (AckPayload, error) {
	if len(p) != 6 {
		return AckPayload{}, errBadPayloadLen
	}
	return AckPayload{
		CmdID:  MsgType(p[0]),
		Status: AckStatus(p[1]),
		Value:  int32(binary.LittleEndian.Uint32(p[2:6])),
	}, nil
}

// ErrPayload is the body of an EvtErr message. CmdID is the msg_type of the
// offending inbound frame, or 0 when the frame was too mangled to name one.
type ErrPayload struct {
	CmdID MsgType
	Code  ErrCode
}

func EncodeErr(dst []byte, e ErrPayload) []byte {
	return append(dst, byte(e.CmdID), byte(e.Code))
}

func DecodeErr(p []byte) (ErrPayload, error) {
	if len(p) != 2 {
		return ErrPayload{}, errBadPayloadLen
	}
	return ErrPayload{CmdID: MsgType(p[0]), Code: ErrCode(p[1])}, nil
}

// PongPayload is the body of an EvtPong message.
type PongPayload struct {
	TMS uint32
}

func EncodePong(dst []byte, p PongPayload) []byte {
	return appendU32(dst, p.TMS)
}

func DecodePong(p []byte) (PongPayload, error) {
	if len(p) != 4 {
		return PongPayload{}, errBadPayloadLen
	}
	return PongPayload{TMS: binary.LittleEndian.Uint32(p)}, nil
}

// --- telemetry payloads ---

// HelloPayload is sent once, unsolicited, before any other frame after boot.
type HelloPayload struct {
	ProtoVersion uint8
	FeatureBits  uint16
}

func EncodeHello(dst []byte, h HelloPayload) []byte {
	dst = append(dst, h.ProtoVersion)
	return appendU16(dst, h.FeatureBits)
}

func DecodeHello(p []byte) (HelloPayload, error) {
	if len(p) != 3 {
		return HelloPayload{}, errBadPayloadLen
	}
	return HelloPayload{
		ProtoVersion: p[0],
		FeatureBits:  binary.LittleEndian.Uint16(p[1:3]),
	}, nil
}

// StatePayload is the body of an EvtState message. DistMM is MissingU16 when
// no finite distance reading has ever been observed.
type StatePayload struct {
	TMS        uint32
	State      uint8
	Pose       uint8
	HeadMoving bool
	Human      bool
	NTargets   uint8
	DistNew    bool
	DistMM     uint16
}

func EncodeState(dst []byte, s StatePayload) []byte {
	dst = appendU32(dst, s.TMS)
	dst = append(dst, s.State, s.Pose, boolByte(s.HeadMoving), boolByte(s.Human), s.NTargets, boolByte(s.DistNew))
	return appendU16(dst, s.DistMM)
}

func DecodeState(p []byte) (StatePayload, error) {
	if len(p) != 12 {
		return StatePayload{}, errBadPayloadLen
	}
	return StatePayload{
		TMS:        binary.LittleEndian.Uint32(p[0:4]),
		State:      p[4],
		Pose:       p[5],
		HeadMoving: p[6] != 0,
		Human:      p[7] != 0,
		NTargets:   p[8],
		DistNew:    p[9] != 0,
		DistMM:     binary.LittleEndian.Uint16(p[10:12]),
	}, nil
}

// WireTarget is one target entry inside a TargetsPayload.
type WireTarget struct {
	Cluster     int16
	XMM, YMM    int16
	RMM         uint16
	BearingCDeg int16
	VCMSx10     int16
}

const wireTargetLen = 12

// TargetsPayload is the body of an EvtTargets message. The focus fields are
// all zero (cluster -1) with FlagFocusValid clear when no focus was picked
// this frame.
type TargetsPayload struct {
	TMS                uint32
	ForcedFocusCluster int16
	FocusCluster       int16
	FocusXMM           int16
	FocusYMM           int16
	FocusRMM           uint16
	FocusBearingCDeg   int16
	FocusVCMSx10       int16
	Flags              uint8
	Targets            []WireTarget
}

const targetsHeaderLen = 20

func EncodeTargets(dst []byte, t TargetsPayload) []byte {
	dst = appendU32(dst, t.TMS)
	dst = appendU16(dst, uint16(t.ForcedFocusCluster))
	dst = appendU16(dst, uint16(t.FocusCluster))
	dst = appendU16(dst, uint16(t.FocusXMM))
	dst = appendU16(dst, uint16(t.FocusYMM))
	dst = appendU16(dst, t.FocusRMM)
	dst = appendU16(dst, uint16(t.FocusBearingCDeg))
	dst = appendU16(dst, uint16(t.FocusVCMSx10))
	n := len(t.Targets)
	if n > MaxWireTargets {
		n = MaxWireTargets
	}
	dst = append(dst, t.Flags, uint8(n))
	for _, w := range t.Targets[:n] {
		dst = appendU16(dst, uint16(w.Cluster))
		dst = appendU16(dst, uint16(w.XMM))
		dst = appendU16(dst, uint16(w.YMM))
		dst = appendU16(dst, w.RMM)
		dst = appendU16(dst, uint16(w.BearingCDeg))
		dst = appendU16(dst, uint16(w.VCMSx10))
	}
	return dst
}

func DecodeTargets(p []byte) (TargetsPayload, error) {
	if len(p) < targetsHeaderLen {
		return TargetsPayload{}, errBadPayloadLen
	}
	t := TargetsPayload{
		TMS:                binary.LittleEndian.Uint32(p[0:4]),
		ForcedFocusCluster: int16(binary.LittleEndian.Uint16(p[4:6])),
		FocusCluster:       int16(binary.LittleEndian.Uint16(p[6:8])),
		FocusXMM:           int16(binary.LittleEndian.Uint16(p[8:10])),
		FocusYMM:           int16(binary.LittleEndian.Uint16(p[10:12])),
		FocusRMM:           binary.LittleEndian.Uint16(p[12:14]),
		FocusBearingCDeg:   int16(binary.LittleEndian.Uint16(p[14:16])),
		FocusVCMSx10:       int16(binary.LittleEndian.Uint16(p[16:18])),
		Flags:              p[18],
	}
	n := int(p[19])
	if n > MaxWireTargets || len(p) != targetsHeaderLen+n*wireTargetLen {
		return TargetsPayload{}, errBadPayloadLen
	}
	t.Targets = make([]WireTarget, n)
	for i := 0; i < n; i++ {
		off := targetsHeaderLen + i*wireTargetLen
		t.Targets[i] = WireTarget{
			Cluster:     int16(binary.LittleEndian.Uint16(p[off : off+2])),
			XMM:         int16(binary.LittleEndian.Uint16(p[off+2 : off+4])),
			YMM:         int16(binary.LittleEndian.Uint16(p[off+4 : off+6])),
			RMM:         binary.LittleEndian.Uint16(p[off+6 : off+8]),
			BearingCDeg: int16(binary.LittleEndian.Uint16(p[off+8 : off+10])),
			VCMSx10:     int16(binary.LittleEndian.Uint16(p[off+10 : off+12])),
		}
	}
	return t, nil
}

// BioPayload is the body of an EvtBio message. Rates are centi-bpm with
// MissingU16 when no finite reading has ever been observed.
type BioPayload struct {
	TMS        uint32
	Allowed    bool
	Valid      bool
	BreathNew  bool
	HeartNew   bool
	BreathCBPM uint16
	HeartCBPM  uint16
}

func EncodeBio(dst []byte, b BioPayload) []byte {
	dst = appendU32(dst, b.TMS)
	dst = append(dst, boolByte(b.Allowed), boolByte(b.Valid), boolByte(b.BreathNew), boolByte(b.HeartNew))
	dst = appendU16(dst, b.BreathCBPM)
	return appendU16(dst, b.HeartCBPM)
}

func DecodeBio(p []byte) (BioPayload, error) {
	if len(p) != 12 {
		return BioPayload{}, errBadPayloadLen
	}
	return BioPayload{
		TMS:        binary.LittleEndian.Uint32(p[0:4]),
		Allowed:    p[4] != 0,
		Valid:      p[5] != 0,
		BreathNew:  p[6] != 0,
		HeartNew:   p[7] != 0,
		BreathCBPM: binary.LittleEndian.Uint16(p[8:10]),
		HeartCBPM:  binary.LittleEndian.Uint16(p[10:12]),
	}, nil
}

// LightPayload is the body of an EvtLight message.
type LightPayload struct {
	TMS   uint32
	Lux   uint16
	Valid bool
}

func EncodeLight(dst []byte, l LightPayload) []byte {
	dst = appendU32(dst, l.TMS)
	dst = appendU16(dst, l.Lux)
	return append(dst, boolByte(l.Valid))
}

func DecodeLight(p []byte) (LightPayload, error) {
	if len(p) != 7 {
		return LightPayload{}, errBadPayloadLen
	}
	return LightPayload{
		TMS:   binary.LittleEndian.Uint32(p[0:4]),
		Lux:   binary.LittleEndian.Uint16(p[4:6]),
		Valid: p[6] != 0,
	}, nil
}

func appendU16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
