package predictor

import "github.com/star/orbitsim/internal/nbody"

// Snapshot is an immutable view of the buffer's frames handed to the
// transfer planner's worker pool. It is cheap to share by value: Frames
// is a freshly-copied slice of Frame values, but the Bodies slice inside
// each Frame is read-only by convention (workers never mutate a
// snapshot), matching the teacher's treatment of sgp4Cache — built once,
// read concurrently, replaced wholesale on the next generation.
type Snapshot struct {
	Frames  []Frame
	Masses  []nbody.Mass
	Dt      float64
}

// Snapshot copies the buffer's current frames (head-to-tail order) into
// an immutable value for the planner. Called only from the main loop.
func (b *Buffer) Snapshot() Snapshot {
	frames := make([]Frame, b.count)
	for i := 0; i < b.count; i++ {
		frames[i] = b.Frame(i)
	}
	return Snapshot{
		Frames: frames,
		Masses: b.masses,
		Dt:     nbody.DtFixed,
	}
}

// Len returns the number of frames in the snapshot.
func (s Snapshot) Len() int { return len(s.Frames) }
