package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/predictor"
	"golang.org/x/time/rate"
)

// search tracks one in-flight (source, dest) sweep: its generation tag,
// the request/snapshot it is searching against, and how far dispatch
// and draining have progressed.
type search struct {
	generation     int
	req            Request
	snap           predictor.Snapshot
	nextBatchStart int
	searchedUpTo   int
	inFlight       int
	done           bool
	started        time.Time
	durationLogged bool
}

// Planner runs the worker-parallel transfer search described in
// spec.md §4.4. One Planner instance handles one (source, destination)
// request at a time; World creates a new Planner (or calls Restart) per
// request_transfer call.
type Planner struct {
	pool    *WorkerPool
	logger  *slog.Logger
	limiter *rate.Limiter

	// horizonFrames is the planner's view of how far a snapshot extends;
	// set by the caller at construction (normally predictor.DefaultConfig's
	// HorizonFrames) since the planner has no predictor dependency of its
	// own.
	horizonFrames int
	cur           *search
}

// New creates a Planner with the given worker count and horizon length
// (in frames). Dispatch of new batches to idle workers is throttled by
// a token-bucket limiter (golang.org/x/time/rate) so a worker flapping
// between idle/busy under a high speed multiplier cannot monopolize
// dispatch — enrichment grounded on Bwooce-latency-space's rate.Limiter
// usage, repurposed from proxy request throttling to batch dispatch.
func New(workers, horizonFrames int, logger *slog.Logger) *Planner {
	return &Planner{
		pool:          NewWorkerPool(workers, logger),
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Limit(workers*4), workers*2),
		horizonFrames: horizonFrames,
	}
}

// StartSearch begins a new search, bumping the generation so any
// in-flight batches from a prior request are dropped on receipt
// (spec.md §4.4 "generation" / §5 cancellation).
func (p *Planner) StartSearch(req Request, snap predictor.Snapshot) {
	gen := 1
	if p.cur != nil {
		gen = p.cur.generation + 1
	}
	p.cur = &search{
		generation:     gen,
		req:            req,
		snap:           snap,
		nextBatchStart: MinLaunchLeadFrames(),
		started:        time.Now(),
	}
	metrics.IncPlannerGenerations()
}

// Cancel stops dispatching further batches for the current search.
// Already-dispatched batches still complete but their generation will
// no longer match on the next StartSearch, so Drain discards them.
func (p *Planner) Cancel() {
	if p.cur != nil {
		p.cur.done = true
	}
}

// RefreshSnapshot re-initializes the in-flight search with a fresh
// snapshot, used when a buffer shift occurred since the last snapshot
// was issued to workers (spec.md §4.4 "Incremental re-search").
func (p *Planner) RefreshSnapshot(snap predictor.Snapshot) {
	if p.cur != nil {
		p.cur.snap = snap
	}
}

// Tick dispatches the next tranche of batches, respecting the dispatch
// rate limiter and the search's horizon cutoff. Call once per world
// tick while a search is active.
func (p *Planner) Tick(ctx context.Context) {
	s := p.cur
	if s == nil || s.done {
		return
	}

	limit := s.snap.Len() - MinTrajectoryRunwayFrames()
	if limit > p.horizonFrames-MinTrajectoryRunwayFrames() {
		limit = p.horizonFrames - MinTrajectoryRunwayFrames()
	}

	for s.nextBatchStart < limit && s.inFlight < p.poolSize() {
		if !p.limiter.Allow() {
			break
		}
		end := s.nextBatchStart + BatchSize
		if end > limit {
			end = limit
		}
		job := batchJob{generation: s.generation, req: s.req, snap: s.snap, start: s.nextBatchStart, end: end}
		p.pool.Dispatch(ctx, job)
		s.nextBatchStart = end
		s.inFlight++
		metrics.IncPlannerBatchesDispatched()
	}
}

func (p *Planner) poolSize() int { return p.pool.workers }

// Drain collects every completed batch result belonging to the current
// generation (stale-generation results are dropped, §5), decrements the
// in-flight counter, and advances SearchedUpTo.
func (p *Planner) Drain() []BatchResult {
	var out []BatchResult
	for {
		select {
		case res, ok := <-p.pool.Results():
			if !ok {
				return out
			}
			if p.cur == nil || res.Generation != p.cur.generation {
				continue // stale reply, spec.md §5
			}
			p.cur.inFlight--
			if res.SearchedTo > p.cur.searchedUpTo {
				p.cur.searchedUpTo = res.SearchedTo
			}
			out = append(out, res)
		default:
			return out
		}
	}
}

// SearchExhausted reports whether every batch up to the horizon cutoff
// has been dispatched and no batch is still in flight.
func (p *Planner) SearchExhausted() bool {
	s := p.cur
	if s == nil {
		return true
	}
	limit := p.horizonFrames - MinTrajectoryRunwayFrames()
	exhausted := s.nextBatchStart >= limit && s.inFlight == 0
	if exhausted && !s.durationLogged {
		metrics.ObservePlannerSearchDuration(time.Since(s.started).Seconds())
		s.durationLogged = true
	}
	return exhausted
}

// OnShift decrements the search's unsearched-suffix high-water mark
// only when no batches are in flight, preserving progress across
// shifts during an active sweep (spec.md §4.5 "decrement
// searched_up_to_frame iff no batches are in flight").
func (p *Planner) OnShift() {
	if p.cur == nil {
		return
	}
	if p.cur.inFlight == 0 && p.cur.searchedUpTo > 0 {
		p.cur.searchedUpTo--
	}
	if p.cur.nextBatchStart > 0 {
		p.cur.nextBatchStart--
	}
}

// Close releases the worker pool.
func (p *Planner) Close() { p.pool.Close() }
