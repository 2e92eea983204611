// Package batch runs per-entry work across a bounded worker pool. Save
// uses it to encode entry data in parallel before writing; open uses it to
// materialize entries when preloading.
package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelMinAvgBytes is the minimum average entry size worth spreading
// across workers. Below it the coordination overhead wins.
const parallelMinAvgBytes = 64 << 10

// Each runs fn for every index in [0, count) using up to workers
// goroutines and returns the first error. Indexes are striped across
// workers; remaining work is abandoned once any call fails. workers <= 0
// uses GOMAXPROCS.
func Each(workers, count int, fn func(i int) error) error {
	if count == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > count {
		workers = count
	}
	if workers < 2 {
		for i := 0; i < count; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	eg, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for i := w; i < count; i += workers {
				if ctx.Err() != nil {
					// Another worker already failed; its error wins.
					return nil
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

// Suggest picks a worker count for count items totaling totalBytes: one
// worker for small batches, GOMAXPROCS otherwise.
func Suggest(totalBytes uint64, count int) int {
	if count < 2 {
		return 1
	}
	workers := runtime.GOMAXPROCS(0)
	if workers < 2 {
		return 1
	}
	if totalBytes/uint64(count) < parallelMinAvgBytes {
		return 1
	}
	return workers
}
