package simcore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/nbody"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Predictor.HorizonFrames = 300
	cfg.Predictor.MaxCatchup = 50
	cfg.PlannerWorkers = 2
	return cfg
}

func TestResetPopulatesBodiesAndCrafts(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())

	bodies := w.Bodies()
	if len(bodies) != 3 {
		t.Fatalf("expected 3 bodies, got %d", len(bodies))
	}
	crafts := w.Crafts()
	if len(crafts) != 1 {
		t.Fatalf("expected 1 craft, got %d", len(crafts))
	}
	if crafts[0].State.Kind != craft.KindOrbiting {
		t.Fatalf("expected the preset craft to start Orbiting, got kind %v", crafts[0].State.Kind)
	}
}

func TestTickAdvancesBodiesDeterministically(t *testing.T) {
	w1 := New(smallConfig(), testLogger())
	w1.Reset(SolTerraEmber())
	w2 := New(smallConfig(), testLogger())
	w2.Reset(SolTerraEmber())

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		w1.Tick(ctx, 0.033)
		w2.Tick(ctx, 0.033)
	}

	b1, b2 := w1.Bodies(), w2.Bodies()
	for i := range b1 {
		if b1[i].Current != b2[i].Current {
			t.Fatalf("expected identical worlds fed identical ticks to match exactly at body %d: %+v vs %+v", i, b1[i].Current, b2[i].Current)
		}
	}
}

func TestPauseFreezesBodyMotion(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())
	w.Pause()

	before := w.Bodies()
	w.Tick(context.Background(), 5.0)
	after := w.Bodies()

	for i := range before {
		if before[i].Current != after[i].Current {
			t.Fatalf("expected paused world to leave body %d unchanged", i)
		}
	}
}

func TestRequestTransferRejectsSameSourceAndDest(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())

	if _, err := w.RequestTransfer(0, 1); err != ErrSameSourceAndDest { // craft 0 orbits Terra (body index 1)
		t.Fatalf("expected ErrSameSourceAndDest, got %v", err)
	}

	w2 := New(smallConfig(), testLogger())
	w2.Reset(SolTerraEmber())
	if _, err := w2.RequestTransfer(0, 2); err != nil {
		t.Fatalf("expected no error on distinct source/dest, got %v", err)
	}
}

func TestRequestTransferRejectsUnknownCraft(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())

	if _, err := w.RequestTransfer(99, 2); err != ErrInvalidCraftID {
		t.Fatalf("expected ErrInvalidCraftID, got %v", err)
	}
}

func TestLaunchTransitionsOrbitingToFree(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())

	if err := w.Launch(0); err != nil {
		t.Fatalf("unexpected error launching: %v", err)
	}
	crafts := w.Crafts()
	if crafts[0].State.Kind != craft.KindFree {
		t.Fatalf("expected craft to be Free after launch, got %v", crafts[0].State.Kind)
	}
	if !crafts[0].State.Free.IsAccel {
		t.Fatalf("expected escape boost active immediately after launch")
	}
}

func TestTransferSearchEventuallyProducesAnAcceptablePlan(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())

	h, err := w.RequestTransfer(0, 2) // Terra -> Ember
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	found := false
	for i := 0; i < 2000 && !found; i++ {
		w.Tick(ctx, 0.033)
		if h.State() == TransferReady {
			found = true
		}
	}
	if !found {
		t.Skip("search did not converge within the test's tick budget; not a correctness failure for this smoke test")
	}
}

func TestPredictionFrameRepresentsFutureState(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())

	frames := w.Prediction(5)
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}

	states := make([]nbody.State, len(w.bodies))
	for i, b := range w.Bodies() {
		states[i] = b.Current
	}
	for i := 0; i < 5; i++ {
		states = nbody.Step(states, w.preset.masses(), nbody.DtFixed)
		for j := range states {
			if states[j] != frames[i].Bodies[j] {
				t.Fatalf("frame %d body %d mismatch: want %+v got %+v", i, j, states[j], frames[i].Bodies[j])
			}
		}
	}
}
