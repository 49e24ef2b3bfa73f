// Package nbody implements the fixed-step N-body integrator that is the
// deterministic core of the simulation: explicit symplectic-Euler
// integration of gravitationally interacting bodies, plus the same
// stepping rule extended with thrust for spacecraft.
//
// Functions here are pure: given a state and a timestep they return a new
// state, with no package-level mutable state. This mirrors the teacher's
// SGP4Propagator, which wraps a single external call with input
// validation and output sanity checks rather than holding mutable orbit
// state itself.
package nbody

import "math"

const (
	// G is the gravitational constant used throughout the simulation.
	// Not SI — tuned for the simulation's world-unit scale.
	G = 50.0
	// MinDist clamps the pairwise distance used in the inverse-square
	// law, avoiding a singularity when two bodies coincide.
	MinDist = 10.0
	// CraftAccel is the thrust magnitude applied during escape boost
	// and correction burns, in world-units/s^2.
	CraftAccel = 2.5
	// DtFixed is the simulation's fixed integration timestep in seconds.
	DtFixed = 0.033
)

// Vec2 is a 2D vector in the single world frame.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64         { return math.Sqrt(v.X*v.X + v.Y*v.Y) }

// State is the position/velocity pair for one body.
type State struct {
	Pos Vec2
	Vel Vec2
}

// Mass describes the gravitational source bodies participating in a step.
// Index i of Mass corresponds to index i of the state slice passed to Step.
type Mass = float64

// IsFinite reports whether every component of s is finite. A trajectory
// that produces a non-finite state has failed numerically and must be
// discarded by the caller (spec §7: "Trajectories containing NaN ...
// score as +∞ and are naturally discarded").
func (s State) IsFinite() bool {
	return !math.IsNaN(s.Pos.X) && !math.IsNaN(s.Pos.Y) &&
		!math.IsNaN(s.Vel.X) && !math.IsNaN(s.Vel.Y) &&
		!math.IsInf(s.Pos.X, 0) && !math.IsInf(s.Pos.Y, 0) &&
		!math.IsInf(s.Vel.X, 0) && !math.IsInf(s.Vel.Y, 0)
}

// accelerations computes gravitational acceleration on every body from
// every other body, clamping pairwise distance at MinDist.
func accelerations(states []State, masses []Mass) []Vec2 {
	acc := make([]Vec2, len(states))
	for i := range states {
		var a Vec2
		for j := range states {
			if i == j {
				continue
			}
			r := states[j].Pos.Sub(states[i].Pos)
			dist := r.Len()
			if dist < MinDist {
				dist = MinDist
			}
			f := G * masses[j] / (dist * dist * dist)
			a = a.Add(r.Scale(f))
		}
		acc[i] = a
	}
	return acc
}

// Step advances every body by one fixed timestep using explicit
// (semi-implicit) symplectic-Euler integration: velocity is updated from
// acceleration first, then position is updated from the new velocity.
// The returned slice is newly allocated; states is not mutated.
func Step(states []State, masses []Mass, dt float64) []State {
	acc := accelerations(states, masses)
	next := make([]State, len(states))
	for i := range states {
		vel := states[i].Vel.Add(acc[i].Scale(dt))
		pos := states[i].Pos.Add(vel.Scale(dt))
		next[i] = State{Pos: pos, Vel: vel}
	}
	return next
}

// CraftHints carries the thrust decisions applied on top of gravity for
// a single craft-step: whether escape boost is firing, its direction,
// and whether a correction burn is active this frame.
type CraftHints struct {
	Accelerating   bool
	BoostDir       Vec2 // unit vector, prograde relative to the launch body
	Correcting     bool
	CorrectionDir  Vec2 // unit vector, cos(theta), sin(theta)
}

// CraftStep advances a massless craft by one fixed timestep under gravity
// from every body in states, plus any active thrust described by hints.
func CraftStep(craft State, states []State, masses []Mass, hints CraftHints, dt float64) State {
	var a Vec2
	for j := range states {
		r := states[j].Pos.Sub(craft.Pos)
		dist := r.Len()
		if dist < MinDist {
			dist = MinDist
		}
		f := G * masses[j] / (dist * dist * dist)
		a = a.Add(r.Scale(f))
	}

	if hints.Accelerating {
		a = a.Add(hints.BoostDir.Scale(CraftAccel))
	}
	if hints.Correcting {
		a = a.Add(hints.CorrectionDir.Scale(CraftAccel))
	}

	vel := craft.Vel.Add(a.Scale(dt))
	pos := craft.Pos.Add(vel.Scale(dt))
	return State{Pos: pos, Vel: vel}
}

// EscapeVelocity returns sqrt(2*G*m/r), the speed needed to just escape a
// body of mass m from distance r.
func EscapeVelocity(m, r float64) float64 {
	return math.Sqrt(2 * G * m / r)
}

// OrbitalSpeed returns the circular-orbit speed sqrt(G*m/r) at distance r
// from a body of mass m.
func OrbitalSpeed(m, r float64) float64 {
	return math.Sqrt(G * m / r)
}
