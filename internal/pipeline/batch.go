package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runBatch calls job for every index in [0, n) with at most concurrency jobs
// in flight, and returns the results in index order.
//
// Jobs record their own failures in T, so one failing job never cancels the
// others. Each job writes only its own slot, which makes a mutex
// unnecessary.
func runBatch[T any](ctx context.Context, concurrency, n int, job func(ctx context.Context, i int) T) []T {
	results := make([]T, n)
	if n == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i := range n {
		g.Go(func() error {
			results[i] = job(ctx, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // jobs never return an error
	return results
}
