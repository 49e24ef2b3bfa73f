// Package registry implements the Plan Registry: the shift-aware
// container that holds acceptable transfer trajectories and the
// per-(source,destination) plan cache, merges in planner results
// adjusted for elapsed buffer shifts, and drives scheduled launches.
//
// Grounded on internal/cache.KeyframeCache's RWMutex-guarded map plus
// atomic hit/miss/eviction counters, adapted here to an ordered slice
// since the registry's access pattern (front-of-list reads, index
// decrement on every shift) doesn't fit a cache's random-key lookup.
package registry

import (
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/planner"
)

// planKey identifies a (source, destination) pair in the cache.
type planKey struct {
	Source int
	Dest   int
}

// Plan is an AcceptableTrajectory with frame indices rebased onto the
// main buffer's current head (as opposed to the snapshot the planner
// computed them against).
type Plan struct {
	planner.AcceptableTrajectory
}

// pendingLaunch is a scheduled plan counting down to its launch frame.
type pendingLaunch struct {
	plan          Plan
	framesRemain  int
}

// Registry holds the sorted acceptable list and the plan cache. It is
// main-loop-only state: per spec.md §5, no locking is required since
// it is never touched by planner workers directly.
type Registry struct {
	logger *slog.Logger

	acceptable []Plan
	cache      map[planKey]Plan

	pending *pendingLaunch

	scheduledCount atomic.Int64
	expiredCount   atomic.Int64
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		cache:  make(map[planKey]Plan),
	}
}

// Add ingests one planner result, adjusting its frame indices for `k`
// buffer shifts that occurred between the snapshot's issue and now
// (spec.md §4.4 "Ingestion"), then inserting it in arrival-frame order.
// Results whose adjusted launch_frame <= 0 are discarded. Re-adding a
// plan for the same (source, dest, launch_frame) replaces any existing
// entry sharing that launch_frame: last-write-wins, per spec.md §5
// idempotence. Distinct launch_frame values for the same (source, dest)
// pair coexist as separate ranked entries in `acceptable` (spec.md §4.5);
// only `cache`, keyed by (source, dest) alone, holds a single most-recent
// plan per pair.
func (r *Registry) Add(at planner.AcceptableTrajectory, shiftsSinceSnapshot int) {
	at.LaunchFrame -= shiftsSinceSnapshot
	at.ArrivalFrame -= shiftsSinceSnapshot
	at.SampleOffset -= shiftsSinceSnapshot
	if at.LaunchFrame <= 0 {
		return
	}

	key := planKey{Source: at.SourceBody, Dest: at.DestBody}
	p := Plan{AcceptableTrajectory: at}

	r.replaceInAcceptable(key, p)
	r.cache[key] = p
	metrics.IncPlannerAcceptableFound(1)
}

// replaceInAcceptable removes any existing entry sharing key's (source,
// dest) pair and p's LaunchFrame, then insertion-sorts p into the
// acceptable list by ascending ArrivalFrame. Entries for the same pair
// with a different launch_frame are left untouched, since spec.md §4.5
// requires the list to hold every distinct acceptable launch window, not
// just the most recent.
func (r *Registry) replaceInAcceptable(key planKey, p Plan) {
	filtered := r.acceptable[:0]
	for _, e := range r.acceptable {
		if e.SourceBody == key.Source && e.DestBody == key.Dest && e.LaunchFrame == p.LaunchFrame {
			continue
		}
		filtered = append(filtered, e)
	}
	r.acceptable = filtered

	idx := sort.Search(len(r.acceptable), func(i int) bool {
		return r.acceptable[i].ArrivalFrame >= p.ArrivalFrame
	})
	r.acceptable = append(r.acceptable, Plan{})
	copy(r.acceptable[idx+1:], r.acceptable[idx:])
	r.acceptable[idx] = p
}

// OnShift decrements launch_frame and arrival_frame on every entry and
// cache entry, evicting any whose launch_frame drops to zero or below,
// and ticks down any pending scheduled launch (spec.md §4.5, §4.6).
// Returns a plan whose launch trigger fired this shift, if any.
func (r *Registry) OnShift() *Plan {
	kept := r.acceptable[:0]
	for _, e := range r.acceptable {
		e.LaunchFrame--
		e.ArrivalFrame--
		e.SampleOffset--
		if e.LaunchFrame <= 0 {
			r.expiredCount.Add(1)
			metrics.IncRegistryPlansExpired()
			continue
		}
		kept = append(kept, e)
	}
	r.acceptable = kept

	for k, p := range r.cache {
		p.LaunchFrame--
		p.ArrivalFrame--
		p.SampleOffset--
		if p.LaunchFrame <= 0 {
			delete(r.cache, k)
			continue
		}
		r.cache[k] = p
	}

	if r.pending != nil {
		r.pending.framesRemain--
		if r.pending.framesRemain <= 0 {
			fired := r.pending.plan
			r.pending = nil
			r.scheduledCount.Add(1)
			metrics.IncRegistryPlansScheduled()
			return &fired
		}
	}

	return nil
}

// CurrentBest returns the first (earliest-arriving) acceptable plan for
// a (source, dest) pair, or false if none exists (spec.md §4.5
// current_best, scoped to drive a single TransferHandle's state).
func (r *Registry) CurrentBest(source, dest int) (Plan, bool) {
	for _, e := range r.acceptable {
		if e.SourceBody == source && e.DestBody == dest {
			return e, true
		}
	}
	return Plan{}, false
}

// Schedule arms a pending launch for the given plan, counting down
// frames-to-launch on each subsequent OnShift.
func (r *Registry) Schedule(p Plan) {
	remain := p.LaunchFrame
	if remain < 0 {
		remain = 0
	}
	r.pending = &pendingLaunch{plan: p, framesRemain: remain}
}

// CancelSchedule clears any pending scheduled launch without firing it.
func (r *Registry) CancelSchedule() { r.pending = nil }

// HasPending reports whether a launch is currently armed.
func (r *Registry) HasPending() bool { return r.pending != nil }

// Reset discards all acceptable plans, cache entries and pending
// launches, for use on world reset.
func (r *Registry) Reset() {
	r.acceptable = nil
	r.cache = make(map[planKey]Plan)
	r.pending = nil
}

// Correction exposes the plan's correction burn, or nil if none was
// attached (the plan was a pure gravity-and-boost transfer).
func (p Plan) Correction() *craft.CorrectionBurn { return p.AcceptableTrajectory.Correction }
