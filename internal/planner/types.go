// Package planner implements the parallel transfer-planning search:
// given a launching craft and a destination body, it searches future
// launch frames for a low-error rendezvous trajectory, optionally
// refining a correction burn by coordinate descent, and reports
// acceptable results back to the plan registry.
//
// The worker pool shape (job/result channels, a fixed number of
// goroutines, generation-tagged batches dropped on staleness) is
// grounded on internal/propagation.WorkerPool. Within a batch, the
// candidate launch frames are evaluated one after another on the single
// worker goroutine that received the batch.
package planner

import (
	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/nbody"
)

// Tunables from spec.md §4.4.
const (
	MinLaunchLeadSeconds      = 5.0
	MinTrajectoryRunwaySec    = 200.0
	BatchSize                 = 50
	PreOptThreshold           = 20.0
	PostOptThreshold          = 5.0
	MaxIterations             = 10000
	CorrectionAngleStepRad    = 0.1 * 3.141592653589793 / 180.0 // 0.1 degree
)

// MinLaunchLeadFrames and MinTrajectoryRunwayFrames convert the second-
// denominated tunables above into frame counts at dt_fixed.
func MinLaunchLeadFrames() int {
	leadSeconds := float64(MinLaunchLeadSeconds)
	return int(leadSeconds / nbody.DtFixed)
}
func MinTrajectoryRunwayFrames() int {
	runwaySeconds := float64(MinTrajectoryRunwaySec)
	return int(runwaySeconds / nbody.DtFixed)
}

// MaxCorrectionDurationFrames bounds a correction burn to at most 10s.
func MaxCorrectionDurationFrames() int {
	maxSeconds := 10.0
	return int(maxSeconds/nbody.DtFixed) + 1
}

// Candidate is a single launch-frame hypothesis under evaluation.
type Candidate struct {
	LaunchFrame int // snapshot-relative
	OrbitalDir  float64
}

// Trajectory is the craft's simulated flight path for one candidate.
type Trajectory struct {
	Frames []craft.Frame
}

// AcceptableTrajectory is a scored, time-ordered transfer plan
// (spec.md §3). Frame indices are snapshot-relative until the registry
// adjusts them for elapsed shifts.
type AcceptableTrajectory struct {
	LaunchFrame     int
	ArrivalFrame    int
	Score           float64
	Trajectory      []craft.Frame
	InsertionFrame  int
	Correction      *craft.CorrectionBurn
	SampleOffset    int // rendering hint only; decremented alongside LaunchFrame/ArrivalFrame
	SourceBody      int
	DestBody        int
	OrbitalDir      float64
}

// BestNonAcceptable is the lowest-scoring trajectory seen that still
// failed the acceptance threshold — surfaced to the UI for display even
// though scheduling it is disabled (spec.md §4.4, §7).
type BestNonAcceptable struct {
	Score       float64
	LaunchFrame int
	Valid       bool
}
