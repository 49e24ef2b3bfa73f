package craft

// TrajectoryBuffer is an ordered FIFO of craft Frames. For a regular
// (non-transfer) launch its length matches the predictor buffer's
// suffix and is extended at the tail as the craft flies; for a transfer
// launch it is truncated at the plan's insertion frame and never
// extended (spec.md §3).
type TrajectoryBuffer struct {
	frames []Frame
	head   int
}

// NewTrajectoryBuffer wraps a pre-computed sequence of frames (e.g. a
// transfer plan's simulated trajectory, or an in-line generated coast).
func NewTrajectoryBuffer(frames []Frame) *TrajectoryBuffer {
	return &TrajectoryBuffer{frames: frames}
}

// Len returns the number of frames remaining (not yet popped).
func (t *TrajectoryBuffer) Len() int {
	if t == nil {
		return 0
	}
	return len(t.frames) - t.head
}

// Empty reports whether every frame has been consumed.
func (t *TrajectoryBuffer) Empty() bool { return t.Len() == 0 }

// PopHead removes and returns the next frame. Panics if Empty — callers
// must check before popping.
func (t *TrajectoryBuffer) PopHead() Frame {
	if t.Empty() {
		panic("craft: PopHead on empty trajectory buffer")
	}
	f := t.frames[t.head]
	t.head++
	return f
}

// Extend appends frames to the tail. Transfer-launched crafts never call
// this (spec.md §4.3: "transfer crafts do not extend — their buffer is
// the plan").
func (t *TrajectoryBuffer) Extend(frames []Frame) {
	t.frames = append(t.frames, frames...)
}

// PeekTail returns the most recently appended frame without consuming
// it, for use as the seed when extending the buffer further. Returns
// false if no frame has ever been pushed.
func (t *TrajectoryBuffer) PeekTail() (Frame, bool) {
	if t == nil || len(t.frames) == 0 {
		return Frame{}, false
	}
	return t.frames[len(t.frames)-1], true
}
