// Package body defines the Body entity: an immutable gravitational
// source (mass, radius, identity) plus the most recently popped
// position/velocity from the prediction buffer's head. Body never
// integrates its own motion — the predictor buffer owns that (spec.md
// §3 "Ownership").
package body

import "github.com/star/orbitsim/internal/nbody"

// Body is one gravitationally massive point in the world.
type Body struct {
	ID     int
	Name   string
	Mass   float64
	Radius float64

	// Current holds the most recently popped position/velocity from the
	// prediction buffer's head. It is a cache, not a source of truth.
	Current nbody.State
}

// Set updates the cached current state. Called once per shift event by
// the world loop with the popped frame's body state.
func (b *Body) Set(s nbody.State) { b.Current = s }
