package simcore

import (
	"context"
	"testing"
	"time"
)

func TestRunnerDoExecutesOnOwningGoroutine(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())
	r := NewRunner(w, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	var bodyCount int
	r.Do(func(w *World) {
		bodyCount = len(w.Bodies())
	})

	if bodyCount != 3 {
		t.Fatalf("expected 3 bodies read through Do, got %d", bodyCount)
	}
}

func TestRunnerTicksOnInterval(t *testing.T) {
	w := New(smallConfig(), testLogger())
	w.Reset(SolTerraEmber())
	r := NewRunner(w, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)

	var length int
	r.Do(func(w *World) {
		length = w.buffer.Length()
	})
	if length <= 0 {
		t.Fatalf("expected the buffer to have been initialized and consumed, got length %d", length)
	}
}
