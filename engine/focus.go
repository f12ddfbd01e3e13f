// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package engine

// pickFocus is a pure function selecting at most one target from the
// frame's target list.
//
// If forcedCluster is >= 0, the target with a matching ClusterID wins (first
// match in list order); if no target this frame has that cluster ID, it
// falls back to nearest. Otherwise the nearest (smallest finite R) target
// wins. Ties on R break by first-in-list. An empty list yields no focus.
func pickFocus(targets []Target, forcedCluster int16) FocusTarget {
	if forcedCluster >= 0 {
		for i, t := range targets {
			if t.ClusterID == forcedCluster {
				return FocusTarget{Target: t, Index: i, Valid: true}
			}
		}
	}
	return nearest(targets)
}

func nearest(targets []Target) FocusTarget {
	best := FocusTarget{}
	bestR := float32(0)
	for i, t := range targets {
		r := t.R()
		if !finite(r) {
			continue
		}
		if !best.Valid || r < bestR {
			best = FocusTarget{Target: t, Index: i, Valid: true}
			bestR = r
		}
	}
	return best
}
