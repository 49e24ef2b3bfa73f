// Package predictor implements the rolling-horizon prediction buffer: a
// FIFO of future body states produced by repeated calls to the N-body
// integrator, consumed one frame at a time as the simulation clock ticks.
//
// The buffer is the single source of truth for body motion (spec.md
// §4.2): the main loop never calls nbody.Step directly — it always pops
// the buffer's head and lets the background generation keep the tail
// full. This mirrors internal/cache.KeyframeCache's rolling [now,
// now+horizon] window, adapted from wall-clock timestamps to a dense
// ring of frame indices (Design Notes §9: ring buffers, not maps, for
// hot-path FIFO).
package predictor

import (
	"log/slog"

	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/nbody"
)

// Frame holds every body's state at one tick of the horizon.
type Frame struct {
	Bodies []nbody.State
}

// Buffer is a ring-buffer-backed FIFO of Frames with a target length of
// HorizonFrames, split conceptually into a solid prefix and a fade
// suffix (the fade boundary is a rendering hint only — spec.md §9).
type Buffer struct {
	frames []Frame // ring storage, capacity == cap(frames)
	head   int     // index of the next frame to pop
	count  int     // number of live frames

	masses []nbody.Mass

	horizonFrames int
	maxCatchup    int

	listeners []ShiftListener

	logger *slog.Logger
}

// Config controls the buffer's target horizon and catch-up behavior.
type Config struct {
	HorizonFrames int // target buffer length
	MaxCatchup    int // max frames generated per advance/initialize call
}

// DefaultConfig mirrors spec.md's reference configuration: 360s horizon
// at dt_fixed=0.033s, catch-up of 100 frames per tick.
func DefaultConfig() Config {
	horizonSeconds := 360.0
	return Config{
		HorizonFrames: int(horizonSeconds/nbody.DtFixed) + 1,
		MaxCatchup:    100,
	}
}

// New creates an empty Buffer with the given capacity and masses. Masses
// are immutable for the life of the buffer, matching Body's invariant
// that mass never changes after init.
func New(cfg Config, masses []nbody.Mass, logger *slog.Logger) *Buffer {
	// Capacity padded slightly above the horizon so a burst of catch-up
	// fill never has to reallocate mid-tick.
	capacity := cfg.HorizonFrames + cfg.MaxCatchup
	return &Buffer{
		frames:        make([]Frame, capacity),
		masses:        append([]nbody.Mass(nil), masses...),
		horizonFrames: cfg.HorizonFrames,
		maxCatchup:    cfg.MaxCatchup,
		logger:        logger,
	}
}

// Initialize fills up to MaxCatchup frames from initialState by repeated
// integration, leaving the buffer sparse until subsequent Advance calls
// fill it to the full horizon (spec.md §4.2).
func (b *Buffer) Initialize(initialState []nbody.State) {
	b.head = 0
	b.count = 0
	cur := initialState
	n := b.maxCatchup
	if n > b.horizonFrames {
		n = b.horizonFrames
	}
	for i := 0; i < n; i++ {
		cur = nbody.Step(cur, b.masses, nbody.DtFixed)
		b.pushTail(Frame{Bodies: cur})
	}
	b.logger.Info("prediction buffer initialized", "frames", b.count, "horizon_frames", b.horizonFrames)
	metrics.SetPredictorBufferLength(b.count)
}

// pushTail appends a frame at the tail. Caller guarantees capacity.
func (b *Buffer) pushTail(f Frame) {
	idx := (b.head + b.count) % len(b.frames)
	b.frames[idx] = f
	b.count++
}

// popHead removes and returns the head frame. Caller guarantees count>0.
func (b *Buffer) popHead() Frame {
	f := b.frames[b.head]
	b.head = (b.head + 1) % len(b.frames)
	b.count--
	return f
}

// lastFrameBodies returns the most recently generated tail state, or nil
// if the buffer is empty (in which case the caller's current body state
// must be used as the seed for extension).
func (b *Buffer) lastFrameBodies(fallback []nbody.State) []nbody.State {
	if b.count == 0 {
		return fallback
	}
	idx := (b.head + b.count - 1) % len(b.frames)
	return b.frames[idx].Bodies
}

// Length returns the number of frames currently buffered.
func (b *Buffer) Length() int { return b.count }

// Frame returns the i-th frame from the head (i=0 is the next frame to
// be consumed). Panics if i is out of range — a contract error, not a
// domain error (callers must check Length first).
func (b *Buffer) Frame(i int) Frame {
	if i < 0 || i >= b.count {
		panic("predictor: frame index out of range")
	}
	idx := (b.head + i) % len(b.frames)
	return b.frames[idx]
}

// BodyState returns body id's state at frame i.
func (b *Buffer) BodyState(i, bodyID int) nbody.State {
	return b.Frame(i).Bodies[bodyID]
}

// Masses returns the immutable mass vector shared by every frame.
func (b *Buffer) Masses() []nbody.Mass { return b.masses }
