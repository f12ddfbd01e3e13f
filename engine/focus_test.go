// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package engine

import (
	"math"
	"testing"
)

func TestPickFocusEmptyList(t *testing.T) {
	if f := pickFocus(nil, -1); f.Valid {
		t.Fatalf("got focus on an empty list: %+v", f)
	}
}

func TestPickFocusNearestWins(t *testing.T) {
	targets := []Target{
		{ClusterID: 1, X: 0, Y: 2},
		{ClusterID: 2, X: 0, Y: 0.5},
		{ClusterID: 3, X: 1, Y: 1},
	}
	f := pickFocus(targets, -1)
	if !f.Valid || f.ClusterID != 2 || f.Index != 1 {
		t.Fatalf("got %+v, want cluster 2 at index 1", f)
	}
}

func TestPickFocusTieBreaksByListOrder(t *testing.T) {
	targets := []Target{
		{ClusterID: 5, X: 0, Y: 1},
		{ClusterID: 6, X: 1, Y: 0},
	}
	f := pickFocus(targets, -1)
	if f.ClusterID != 5 || f.Index != 0 {
		t.Fatalf("got %+v, want the first of the tied targets", f)
	}
}

func TestPickFocusForcedCluster(t *testing.T) {
	targets := []Target{
		{ClusterID: 1, X: 0, Y: 0.5},
		{ClusterID: 7, X: 0, Y: 3},
	}
	f := pickFocus(targets, 7)
	if !f.Valid || f.ClusterID != 7 || f.Index != 1 {
		t.Fatalf("got %+v, want the forced cluster even though it is farther", f)
	}
}

func TestPickFocusForcedClusterAbsentFallsBackToNearest(t *testing.T) {
	targets := []Target{
		{ClusterID: 1, X: 0, Y: 0.5},
		{ClusterID: 2, X: 0, Y: 3},
	}
	f := pickFocus(targets, 9)
	if !f.Valid || f.ClusterID != 1 {
		t.Fatalf("got %+v, want nearest fallback", f)
	}
}

func TestPickFocusSkipsNonFiniteRange(t *testing.T) {
	targets := []Target{
		{ClusterID: 1, X: float32(math.NaN()), Y: 1},
		{ClusterID: 2, X: 0, Y: 2},
	}
	f := pickFocus(targets, -1)
	if !f.Valid || f.ClusterID != 2 {
		t.Fatalf("got %+v, want the finite target", f)
	}
}
