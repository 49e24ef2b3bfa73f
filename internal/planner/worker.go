package planner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/predictor"
)

// Request describes one transfer search: the launching craft's template
// and the destination to intercept.
type Request struct {
	Template     LaunchTemplate
	SourceRadius float64
	DestBodyID   int
	DestRadius   float64
}

// batchJob is a unit of dispatched work: evaluate every launch frame in
// [Start, End) against both orbital directions.
type batchJob struct {
	generation int
	req        Request
	snap       predictor.Snapshot
	start, end int
}

// BatchResult is everything a single batch found.
type BatchResult struct {
	Generation  int
	Acceptable  []AcceptableTrajectory
	BestNon     BestNonAcceptable
	SearchedTo  int
}

// WorkerPool evaluates candidate launch frames in parallel, mirroring
// internal/propagation.WorkerPool's job/result channel shape.
type WorkerPool struct {
	workers int
	logger  *slog.Logger

	jobs    chan batchJob
	results chan BatchResult

	wg     sync.WaitGroup
	once   sync.Once
}

// NewWorkerPool creates a pool with the given number of goroutines.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	wp := &WorkerPool{
		workers: workers,
		logger:  logger,
		jobs:    make(chan batchJob, workers*2),
		results: make(chan BatchResult, workers*2),
	}
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.runWorker()
	}
	return wp
}

// runWorker evaluates batches until the job channel closes. A panic
// inside evaluateBatch is recovered, logged, and does not take down the
// worker or block the main loop (spec.md §7 "Worker errors").
func (wp *WorkerPool) runWorker() {
	defer wp.wg.Done()
	for job := range wp.jobs {
		result := wp.safeEvaluate(job)
		wp.results <- result
	}
}

func (wp *WorkerPool) safeEvaluate(job batchJob) (result BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Warn("planner worker recovered from panic", "error", r, "generation", job.generation)
			metrics.IncPlannerWorkerErrors()
			result = BatchResult{Generation: job.generation, SearchedTo: job.end}
		}
	}()
	return evaluateBatch(job)
}

// Dispatch submits a batch for evaluation. Non-blocking would require a
// select with default; the pool's buffered channel combined with the
// caller only dispatching to idle workers (spec.md §5 backpressure)
// keeps this from blocking in practice.
func (wp *WorkerPool) Dispatch(ctx context.Context, job batchJob) {
	select {
	case wp.jobs <- job:
	case <-ctx.Done():
	}
}

// Results returns the channel of completed batch results.
func (wp *WorkerPool) Results() <-chan BatchResult { return wp.results }

// Close stops accepting new jobs and waits for in-flight workers to
// drain. Safe to call once.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		close(wp.jobs)
		wp.wg.Wait()
		close(wp.results)
	})
}

// evaluateBatch runs the per-candidate evaluation (spec.md §4.4 steps
// 1-6) for every launch frame in [job.start, job.end) and both orbital
// directions, returning every acceptable trajectory found plus one
// best-non-acceptable fallback.
func evaluateBatch(job batchJob) BatchResult {
	result := BatchResult{Generation: job.generation, SearchedTo: job.end}
	result.BestNon.Score = -1 // sentinel: no candidate evaluated yet

	for launchFrame := job.start; launchFrame < job.end && launchFrame < job.snap.Len(); launchFrame++ {
		for _, dir := range []float64{1, -1} {
			acc, nonAcc, ok := evaluateCandidate(job.snap, job.req, launchFrame, dir)
			if ok {
				result.Acceptable = append(result.Acceptable, acc)
			} else if result.BestNon.Score < 0 || nonAcc.Score < result.BestNon.Score {
				result.BestNon = nonAcc
			}
		}
	}
	return result
}

// evaluateCandidate runs steps 1-6 of spec.md §4.4 for a single
// (launchFrame, orbitalDir) pair: simulate the base trajectory, and if
// its score clears PreOptThreshold, refine a correction burn. The best
// trajectory found (corrected if one was attempted, base otherwise) is
// truncated at insertion_frame+1 and classified acceptable/non.
func evaluateCandidate(snap predictor.Snapshot, req Request, launchFrame int, dir float64) (AcceptableTrajectory, BestNonAcceptable, bool) {
	traj, insertionFrame, baseScore := SimulateBase(snap, req.Template, req.SourceRadius, req.DestRadius, req.DestBodyID, launchFrame, dir)

	score := baseScore
	finalTraj := traj
	finalInsertion := insertionFrame
	var correction *craft.CorrectionBurn

	if baseScore <= PreOptThreshold {
		cBurn, cTraj, cIns, cScore := OptimizeCorrection(snap, req.Template, req.SourceRadius, req.DestRadius, req.DestBodyID, launchFrame, dir, insertionFrame)
		score = cScore
		finalTraj = cTraj
		finalInsertion = cIns
		correction = cBurn
	}

	truncLen := finalInsertion + 1
	if truncLen > len(finalTraj.Frames) {
		truncLen = len(finalTraj.Frames)
	}
	truncated := append([]craft.Frame(nil), finalTraj.Frames[:truncLen]...)

	if score <= PostOptThreshold {
		acc := AcceptableTrajectory{
			LaunchFrame:    launchFrame,
			ArrivalFrame:   launchFrame + truncLen,
			Score:          score,
			Trajectory:     truncated,
			InsertionFrame: finalInsertion,
			Correction:     correction,
			SampleOffset:   launchFrame,
			SourceBody:     req.Template.SourceBodyID,
			DestBody:       req.DestBodyID,
			OrbitalDir:     dir,
		}
		return acc, BestNonAcceptable{}, true
	}

	return AcceptableTrajectory{}, BestNonAcceptable{Score: score, LaunchFrame: launchFrame, Valid: true}, false
}
