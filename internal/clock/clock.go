// Package clock implements the Simulation Clock: it accumulates
// wall-clock time into fixed integrator steps, applies an integer speed
// multiplier, and can be paused without discarding accumulated state.
//
// Grounded on internal/cache.KeyframeCache.Start's ticker-driven
// maintenance loop (ChrisB0-2-StarGo), adapted from a real-time ticker
// to an explicit accumulator since the world is advanced by caller-fed
// wall-clock deltas (spec.md §4.6) rather than by its own timer.
package clock

import "github.com/star/orbitsim/internal/nbody"

// ValidSpeeds enumerates the allowed speed multipliers (spec.md §4.6).
var ValidSpeeds = [...]int{1, 2, 4, 8, 16}

// IsValidSpeed reports whether m is one of ValidSpeeds.
func IsValidSpeed(m int) bool {
	for _, v := range ValidSpeeds {
		if v == m {
			return true
		}
	}
	return false
}

// Clock accumulates wall-clock delta into fixed-size steps at dt_fixed,
// scaled by an integer speed multiplier. It does not itself own the
// prediction buffer; callers drain Advance's returned step count and
// shift the buffer that many times.
type Clock struct {
	accum   float64
	speed   int
	paused  bool
}

// New creates a Clock at speed 1, not paused.
func New() *Clock {
	return &Clock{speed: 1}
}

// SetSpeed changes the speed multiplier. Invalid values are rejected
// and the previous speed is kept.
func (c *Clock) SetSpeed(m int) bool {
	if !IsValidSpeed(m) {
		return false
	}
	c.speed = m
	return true
}

// Speed returns the current multiplier.
func (c *Clock) Speed() int { return c.speed }

// Pause freezes advance without discarding the accumulator or any
// buffer contents.
func (c *Clock) Pause() { c.paused = true }

// Resume un-freezes the clock.
func (c *Clock) Resume() { c.paused = false }

// Paused reports whether the clock is currently frozen.
func (c *Clock) Paused() bool { return c.paused }

// Advance folds a wall-clock delta (seconds) into the accumulator and
// returns how many fixed steps should be triggered this call. While
// paused, the delta is dropped entirely and zero steps are returned.
func (c *Clock) Advance(realDtSeconds float64) int {
	if c.paused {
		return 0
	}
	c.accum += realDtSeconds * float64(c.speed)

	steps := 0
	for c.accum >= nbody.DtFixed {
		c.accum -= nbody.DtFixed
		steps++
	}
	return steps
}

// Reset clears the accumulator (used on world reset); speed and pause
// state are left untouched since they are simulator-session settings,
// not simulation state.
func (c *Clock) Reset() { c.accum = 0 }
