package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestRunBatch tests the bounded ordered batch runner.
func TestRunBatch(t *testing.T) {
	t.Parallel()

	t.Run("keeps input order", func(t *testing.T) {
		t.Parallel()

		results := runBatch(context.Background(), 4, 10, func(_ context.Context, i int) int {
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return i * i
		})
		for i, got := range results {
			if got != i*i {
				t.Errorf("results[%d] = %d, expected %d", i, got, i*i)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		runBatch(context.Background(), 2, 10, func(_ context.Context, _ int) struct{} {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return struct{}{}
		})
		if peak.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", peak.Load())
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		results := runBatch(context.Background(), 4, 0, func(_ context.Context, _ int) int {
			t.Error("job must not run")
			return 0
		})
		if len(results) != 0 {
			t.Errorf("expected no results, got %v", results)
		}
	})

	t.Run("non-positive concurrency runs one at a time", func(t *testing.T) {
		t.Parallel()

		results := runBatch(context.Background(), 0, 3, func(_ context.Context, i int) int { return i })
		if len(results) != 3 || results[2] != 2 {
			t.Errorf("results = %v", results)
		}
	})
}
