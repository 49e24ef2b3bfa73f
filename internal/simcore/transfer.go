package simcore

import (
	"context"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/planner"
	"github.com/star/orbitsim/internal/registry"
)

// TransferState is the TransferHandle's externally visible phase
// (spec.md §6).
type TransferState int

const (
	TransferSearching TransferState = iota
	TransferReady
	TransferScheduled
	TransferNone
)

func (s TransferState) String() string {
	switch s {
	case TransferSearching:
		return "searching"
	case TransferReady:
		return "ready"
	case TransferScheduled:
		return "scheduled"
	default:
		return "none"
	}
}

// TransferHandle tracks one craft's in-flight transfer search, owning
// its own Planner worker pool for the life of the request (spec.md §6).
type TransferHandle struct {
	CraftID      int
	SourceBodyID int
	DestBodyID   int

	state TransferState
	pl    *planner.Planner
	tmpl  planner.LaunchTemplate

	shiftsSinceSnapshot int
}

// State returns the handle's current phase.
func (h *TransferHandle) State() TransferState { return h.state }

// BestPlan returns the registry's earliest acceptable plan for this
// handle's (source, dest) pair, if any.
func (h *TransferHandle) BestPlan(reg *registry.Registry) (registry.Plan, bool) {
	return reg.CurrentBest(h.SourceBodyID, h.DestBodyID)
}

// requestTransfer validates the request and starts a new search,
// grounded on spec.md §7's contract-error list: invalid body id,
// destination == source, craft not Orbiting.
func (w *World) requestTransfer(craftID, destBodyID int) (*TransferHandle, error) {
	if destBodyID < 0 || destBodyID >= len(w.bodies) {
		return nil, ErrInvalidBodyID
	}
	cr, ok := w.craftByID(craftID)
	if !ok {
		return nil, ErrInvalidCraftID
	}
	if cr.state.Kind != craft.KindOrbiting {
		return nil, ErrCraftNotOrbiting
	}
	if cr.state.Orbit.Parent == destBodyID {
		return nil, ErrSameSourceAndDest
	}

	sourceID := cr.state.Orbit.Parent
	tmpl := planner.LaunchTemplate{
		SourceBodyID: sourceID,
		Altitude:     cr.state.Orbit.Altitude,
		AngleAtNow:   cr.state.Orbit.Angle,
	}
	req := planner.Request{
		Template:     tmpl,
		SourceRadius: w.bodies[sourceID].Radius,
		DestBodyID:   destBodyID,
		DestRadius:   w.bodies[destBodyID].Radius,
	}

	pl := planner.New(w.plannerWorkers, w.predictorCfg.HorizonFrames, w.logger)
	pl.StartSearch(req, w.buffer.Snapshot())

	h := &TransferHandle{
		CraftID:      craftID,
		SourceBodyID: sourceID,
		DestBodyID:   destBodyID,
		state:        TransferSearching,
		pl:           pl,
		tmpl:         tmpl,
	}

	if old := cr.transfer; old != nil {
		old.pl.Close()
	}
	cr.transfer = h
	w.logger.Info("transfer search started", "craft_id", craftID, "source", sourceID, "dest", destBodyID)
	return h, nil
}

// schedule arms the handle's current best plan for launch.
func (w *World) schedule(h *TransferHandle) error {
	p, ok := h.BestPlan(w.reg)
	if !ok {
		return ErrNoPlanReady
	}
	w.reg.Schedule(p)
	h.state = TransferScheduled
	return nil
}

// cancel tears down the handle's search and releases its workers.
func (w *World) cancel(h *TransferHandle) {
	h.pl.Cancel()
	h.pl.Close()
	h.state = TransferNone
	w.reg.CancelSchedule()
}

// advanceTransfers drives every active handle's planner one tick:
// dispatch new batches, drain completed ones into the registry, refresh
// a stale snapshot once the current sweep is exhausted, and reconcile
// Searching/Ready against registry content.
func (w *World) advanceTransfers(ctx context.Context) {
	for _, cr := range w.crafts {
		h := cr.transfer
		if h == nil || h.state == TransferScheduled || h.state == TransferNone {
			continue
		}

		h.pl.Tick(ctx)
		for _, res := range h.pl.Drain() {
			for _, acc := range res.Acceptable {
				w.reg.Add(acc, h.shiftsSinceSnapshot)
			}
		}

		// Incremental re-search (spec.md §4.4): once the initial sweep is
		// exhausted, don't restart the whole horizon — on_shift has
		// already opened up a fresh unsearched suffix at the tail by
		// decrementing the search's high-water mark. Only the snapshot
		// itself goes stale, and only if a shift actually occurred since
		// it was issued to workers.
		if h.pl.SearchExhausted() && h.shiftsSinceSnapshot > 0 {
			h.pl.RefreshSnapshot(w.buffer.Snapshot())
			h.shiftsSinceSnapshot = 0
		}

		if _, ok := h.BestPlan(w.reg); ok {
			h.state = TransferReady
		} else {
			h.state = TransferSearching
		}
	}
}
