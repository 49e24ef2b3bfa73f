package predictor

import (
	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/nbody"
)

// ShiftListener is notified exactly once per popped frame, in pop order
// (spec.md §4.2 invariant). Craft trajectory buffers and the plan
// registry subscribe to stay synchronized with the buffer's head.
type ShiftListener func()

// Subscribe registers a listener invoked on every Shift. Returns an
// unsubscribe function.
func (b *Buffer) Subscribe(l ShiftListener) func() {
	b.listeners = append(b.listeners, l)
	idx := len(b.listeners) - 1
	return func() {
		b.listeners[idx] = nil
	}
}

// Shift pops the head frame (the new authoritative body state), notifies
// every subscriber exactly once, then extends the tail by up to
// MaxCatchup frames so the horizon stays full. Returns the popped frame;
// callers use it to update their cached "current" body state.
//
// Shift is a no-op returning the zero Frame if the buffer is empty —
// this can only happen immediately after a reset, before Initialize has
// run, or if generation has fallen behind catastrophically; the caller
// is expected to tolerate a momentary stall rather than treat it as an
// error (no internal failure mode per spec.md §4.1/§7).
func (b *Buffer) Shift() Frame {
	if b.count == 0 {
		return Frame{}
	}

	popped := b.popHead()
	for _, l := range b.listeners {
		if l != nil {
			l()
		}
	}

	b.extendTail(b.maxCatchup)
	metrics.SetPredictorBufferLength(b.count)
	metrics.IncPredictorShiftEvents()

	return popped
}

// extendTail generates up to n new frames at the tail by integrating
// forward from the current tail state, stopping early once the buffer
// reaches its target horizon length.
func (b *Buffer) extendTail(n int) {
	seed := b.lastFrameBodies(nil)
	if seed == nil {
		// Buffer has no frames at all and no fallback seed: nothing to
		// extend from until the caller re-seeds via Initialize.
		return
	}
	generated := 0
	for generated < n && b.count < cap(b.frames) && b.count < b.horizonFrames {
		seed = nbody.Step(seed, b.masses, nbody.DtFixed)
		b.pushTail(Frame{Bodies: seed})
		generated++
	}
}
