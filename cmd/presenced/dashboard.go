// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/maruel/interrupt"
	"golang.org/x/net/websocket"

	"github.com/mmpresence/corefw/engine"
)

// snapshot is the dashboard's read-only view of the last fusion result. It
// is refreshed after every engine update, whether or not a telemetry frame
// went out for it; the dashboard has no write path back into the engine.
type snapshot struct {
	TMS           uint32  `json:"t_ms"`
	State         string  `json:"state"`
	Pose          string  `json:"pose"`
	HeadMoving    bool    `json:"head_moving"`
	Human         bool    `json:"human"`
	NTargets      int     `json:"n_targets"`
	DistCM        float32 `json:"dist_cm"`
	BreathBPM     float32 `json:"breath_bpm"`
	HeartBPM      float32 `json:"heart_bpm"`
	VitalsAllowed bool    `json:"vitals_allowed"`
	VitalsValid   bool    `json:"vitals_valid"`
	Lux           float32 `json:"lux"`
	LuxValid      bool    `json:"lux_valid"`
}

// WebServer streams engine snapshots to browsers over a websocket.
type WebServer struct {
	cond sync.Cond
	gen  uint64
	snap snapshot
}

// StartWebServer serves the debug dashboard on port.
func StartWebServer(port int) *WebServer {
	w := &WebServer{cond: *sync.NewCond(&sync.Mutex{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.root)
	mux.Handle("/stream", websocket.Handler(w.stream))
	fmt.Printf("Dashboard listening on %d\n", port)
	go http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	go func() {
		<-interrupt.Channel
		w.cond.Broadcast()
	}()
	return w
}

// Publish records the latest fusion result and wakes the stream handlers.
func (w *WebServer) Publish(r engine.Result, lux float32, luxValid bool, now time.Duration) {
	w.cond.L.Lock()
	defer w.cond.L.Unlock()
	w.gen++
	w.snap = snapshot{
		TMS:           uint32(now / time.Millisecond),
		State:         r.State.String(),
		Pose:          r.Pose.String(),
		HeadMoving:    r.HeadMoving,
		Human:         r.Human,
		NTargets:      r.NTargets,
		DistCM:        r.DistCM,
		BreathBPM:     r.BreathBPM,
		HeartBPM:      r.HeartBPM,
		VitalsAllowed: r.VitalsAllowed,
		VitalsValid:   r.VitalsValid,
		Lux:           lux,
		LuxValid:      luxValid,
	}
	w.cond.Broadcast()
}

var rootTmpl = template.Must(template.New("root").Parse(`
	<html>
	<head>
		<title>presenced</title>
		<script>
		var ws = new WebSocket("ws://" + location.host + "/stream");
		ws.onmessage = function(ev) {
			document.getElementById("snap").textContent = ev.data;
		};
		</script>
	</head>
	<body>
	<pre id="snap">waiting for data...</pre>
	</body>
	</html>`))

func (w *WebServer) root(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(rw, "Not Found", http.StatusNotFound)
		return
	}
	rw.Header().Set("Content-Type", "text/html")
	if err := rootTmpl.Execute(rw, nil); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
	}
}

// stream pushes one JSON snapshot per engine update.
func (w *WebServer) stream(ws *websocket.Conn) {
	log.Printf("websocket %s", ws.Config().Origin)
	defer ws.Close()
	lastGen := uint64(0)
	w.cond.L.Lock()
	defer w.cond.L.Unlock()
	var err error
	for !interrupt.IsSet() && err == nil {
		w.cond.Wait()
		for !interrupt.IsSet() && err == nil && lastGen != w.gen {
			lastGen = w.gen
			snap := w.snap
			// Do the actual I/O without the lock.
			w.cond.L.Unlock()
			var data []byte
			if data, err = json.Marshal(&snap); err == nil {
				_, err = ws.Write(data)
			}
			w.cond.L.Lock()
		}
	}
	if err != nil {
		log.Printf("websocket %s closed: %s", ws.Config().Origin, err)
	}
}
