// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// presence-replay decodes capture files recorded by presenced -capture and
// prints each frame in human-readable form. With -watch it keeps running
// and replays every new capture dropped into a directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/maruel/interrupt"
	fsnotify "gopkg.in/fsnotify.v1"

	"github.com/mmpresence/corefw/engine"
	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/internal/capture"
	"github.com/mmpresence/corefw/proto"
)

func mainImpl() error {
	watch := flag.String("watch", "", "directory to watch; new files are replayed as they appear")
	flag.Parse()

	if *watch == "" && len(flag.Args()) == 0 {
		return fmt.Errorf("pass capture files, or -watch a directory")
	}

	for _, path := range flag.Args() {
		if err := replayFile(path); err != nil {
			return err
		}
	}
	if *watch == "" {
		return nil
	}

	interrupt.HandleCtrlC()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(*watch); err != nil {
		return err
	}
	for {
		select {
		case <-interrupt.Channel:
			return nil
		case err = <-watcher.Errors:
			return err
		case ev := <-watcher.Events:
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			if err := replayFile(ev.Name); err != nil {
				log.Printf("%s: %s", ev.Name, err)
			}
		}
	}
}

func replayFile(path string) error {
	var dec framing.Decoder
	frames := 0
	errs := 0
	err := capture.ReplayFile(path, func(b byte) error {
		msg, ok, ferr := dec.Feed(b)
		if ferr != nil {
			errs++
			return nil
		}
		if ok {
			frames++
			printMsg(msg)
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d frames, %d bad\n", filepath.Base(path), frames, errs)
	return nil
}

func printMsg(m framing.Message) {
	t := proto.MsgType(m.MsgType)
	switch t {
	case proto.EvtHello:
		h, err := proto.DecodeHello(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d HELLO  v%d features=%#x\n", m.Seq, h.ProtoVersion, h.FeatureBits)
		return
	case proto.EvtAck:
		a, err := proto.DecodeAck(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d ACK    cmd=%#02x status=%d value=%d\n", m.Seq, a.CmdID, a.Status, a.Value)
		return
	case proto.EvtErr:
		e, err := proto.DecodeErr(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d ERR    cmd=%#02x code=%d\n", m.Seq, e.CmdID, e.Code)
		return
	case proto.EvtPong:
		p, err := proto.DecodePong(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d PONG   t=%dms\n", m.Seq, p.TMS)
		return
	case proto.EvtState:
		s, err := proto.DecodeState(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d STATE  t=%dms %s %s hm=%v human=%v n=%d dist=%s\n",
			m.Seq, s.TMS, engine.PersonState(s.State), engine.PoseGuess(s.Pose),
			s.HeadMoving, s.Human, s.NTargets, fmtMM(s.DistMM))
		return
	case proto.EvtTargets:
		tp, err := proto.DecodeTargets(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d TARGET t=%dms n=%d flags=%#x focus=%d r=%s\n",
			m.Seq, tp.TMS, len(tp.Targets), tp.Flags, tp.FocusCluster, fmtMM(tp.FocusRMM))
		return
	case proto.EvtBio:
		b, err := proto.DecodeBio(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d BIO    t=%dms allowed=%v valid=%v br=%s hr=%s\n",
			m.Seq, b.TMS, b.Allowed, b.Valid, fmtCBPM(b.BreathCBPM), fmtCBPM(b.HeartCBPM))
		return
	case proto.EvtLight:
		l, err := proto.DecodeLight(m.Payload)
		if err != nil {
			break
		}
		fmt.Printf("%5d LIGHT  t=%dms lux=%d valid=%v\n", m.Seq, l.TMS, l.Lux, l.Valid)
		return
	}
	fmt.Printf("%5d ?      type=%#02x len=%d\n", m.Seq, m.MsgType, len(m.Payload))
}

func fmtMM(v uint16) string {
	if v == proto.MissingU16 {
		return "-"
	}
	return fmt.Sprintf("%dmm", v)
}

func fmtCBPM(v uint16) string {
	if v == proto.MissingU16 {
		return "-"
	}
	return fmt.Sprintf("%.2fbpm", float64(v)/100)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "presence-replay: %s.\n", err)
		os.Exit(1)
	}
}
