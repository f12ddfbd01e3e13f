// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// presenced runs the presence-vitals firmware core: it pumps host commands
// in from the serial link, fuses radar frames through the state engine and
// multiplexes the telemetry streams back out.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/maruel/interrupt"

	"github.com/mmpresence/corefw/dispatch"
	"github.com/mmpresence/corefw/engine"
	"github.com/mmpresence/corefw/framing"
	"github.com/mmpresence/corefw/internal/capture"
	"github.com/mmpresence/corefw/internal/serialport"
	"github.com/mmpresence/corefw/light"
	"github.com/mmpresence/corefw/proto"
	"github.com/mmpresence/corefw/radar"
	"github.com/mmpresence/corefw/telemetry"
)

// stdio is the host link when no serial device is given: frames out on
// stdout, commands in on stdin.
type stdio struct{}

func (stdio) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }

func mainImpl() error {
	cpuprofile := flag.String("cpuprofile", "", "dump CPU profile in file")
	port := flag.String("port", "", "serial device for the host link (e.g. /dev/ttyGS0); stdin/stdout if empty")
	capturePath := flag.String("capture", "", "record every outbound frame to this file")
	dashboard := flag.Int("dashboard", 0, "if non-zero, serve the debug dashboard on this http port")
	noLight := flag.Bool("nolight", false, "pretend no ambient light sensor is attached")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	interrupt.HandleCtrlC()

	var transport io.ReadWriter = stdio{}
	if *port != "" {
		p, err := serialport.Open(*port, serialport.DefaultBaud)
		if err != nil {
			return err
		}
		defer p.Close()
		transport = p
	}
	out := io.Writer(transport)
	if *capturePath != "" {
		cw, err := capture.Create(*capturePath)
		if err != nil {
			return err
		}
		defer cw.Close()
		out = io.MultiWriter(out, cw)
	}

	// The hardware radar driver is an external collaborator; this binary
	// carries the synthetic one so the whole pipeline runs anywhere.
	drv := radar.NewFake()
	var lightSrc light.Source = light.NewFake()
	if *noLight {
		lightSrc = light.None{}
	}

	var web *WebServer
	if *dashboard != 0 {
		web = StartWebServer(*dashboard)
	}

	return run(drv, lightSrc, transport, out, web)
}

// run is the single-threaded cooperative main loop. The reader goroutine
// only fills the inbound byte FIFO; every piece of protocol and engine state
// is mutated here.
func run(drv radar.Driver, lightSrc light.Source, in io.Reader, out io.Writer, web *WebServer) error {
	inbound := make(chan byte, 4096)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := in.Read(buf)
			for _, b := range buf[:n] {
				inbound <- b
			}
			if err != nil {
				return
			}
		}
	}()

	boot := time.Now()
	eng := engine.New()
	snd := telemetry.NewSender(out)
	sch := telemetry.NewScheduler(snd)
	var dec framing.Decoder
	var scratch [16]byte

	hello := proto.EncodeHello(scratch[:0], proto.HelloPayload{ProtoVersion: framing.ProtocolVersion})
	if err := snd.Send(proto.EvtHello, hello); err != nil {
		return err
	}

	for !interrupt.IsSet() {
		pump(inbound, &dec, eng, snd, time.Since(boot))

		frame, ok, err := drv.ReadFrame(100 * time.Millisecond)
		if err != nil {
			log.Printf("radar: %s", err)
			continue
		}
		if !ok {
			continue
		}
		now := time.Since(boot)
		res := eng.Update(frame, now)
		if err := sch.Tick(&eng.Cfg, res, frame.Targets, now); err != nil {
			return err
		}
		lux, luxOK := lightSrc.Read()
		if err := sch.TickLight(lux, luxOK, now); err != nil {
			return err
		}
		if web != nil {
			web.Publish(res, lux, luxOK, now)
		}
	}
	return nil
}

// pump drains every byte currently in the FIFO through the framing decoder,
// dispatching each completed frame synchronously so its ack goes out before
// any later telemetry.
func pump(inbound <-chan byte, dec *framing.Decoder, eng *engine.Engine, snd *telemetry.Sender, now time.Duration) {
	var scratch [8]byte
	for {
		select {
		case b := <-inbound:
			msg, ok, err := dec.Feed(b)
			if err != nil {
				respond(snd, dispatch.FramingError(err, proto.MsgType(msg.MsgType)), scratch[:0])
				continue
			}
			if !ok {
				continue
			}
			respond(snd, dispatch.Dispatch(&eng.Cfg, proto.MsgType(msg.MsgType), msg.Payload, now), scratch[:0])
		default:
			return
		}
	}
}

func respond(snd *telemetry.Sender, r dispatch.Response, scratch []byte) {
	if err := snd.Send(r.MsgType, r.EncodePayload(scratch)); err != nil {
		log.Printf("send: %s", err)
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\npresenced: %s.\n", err)
		os.Exit(1)
	}
}
