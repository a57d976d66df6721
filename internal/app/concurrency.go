package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallel2 runs two independent loads concurrently and returns both results
// or the first error. The delivery run uses it to fetch the day's quote and
// the send list in one round trip to the store.
//
// Example:
//
//	quote, recipients, err := Parallel2(ctx,
//	    func(ctx context.Context) (domain.DailyQuote, error) { return resolver.Resolve(ctx, date) },
//	    func(ctx context.Context) (*domain.RecipientList, error) { return loadRecipients(ctx, store, key) },
//	)
func Parallel2[T1, T2 any](
	ctx context.Context,
	fn1 func(context.Context) (T1, error),
	fn2 func(context.Context) (T2, error),
) (result1 T1, result2 T2, err error) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (fnErr error) {
		result1, fnErr = fn1(ctx)
		return fnErr
	})

	g.Go(func() (fnErr error) {
		result2, fnErr = fn2(ctx)
		return fnErr
	})

	if err = g.Wait(); err != nil {
		var (
			zero1 T1
			zero2 T2
		)

		return zero1, zero2, fmt.Errorf("parallel load failed: %w", err)
	}

	return result1, result2, nil
}

// PartialResult holds one outcome of a fan-out that tolerates failures.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartialLimit runs the functions with at most limit in flight and
// collects every outcome, successes and failures alike. The per-recipient
// send uses it: one bounced address must not stop the rest of the fan-out,
// and the provider's send rate caps the useful concurrency.
//
// Example:
//
//	results := ParallelPartialLimit(ctx, maxParallel, sends...)
//	for _, r := range results {
//	    if r.Err != nil {
//	        log.Warn("send failed", "recipient", r.Value)
//	    }
//	}
func ParallelPartialLimit[T any](
	ctx context.Context,
	limit int,
	fns ...func(context.Context) (T, error),
) []PartialResult[T] {
	results := make([]PartialResult[T], len(fns))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup

	for i, fn := range fns {
		wg.Go(func() {
			sem <- struct{}{}

			defer func() { <-sem }()

			value, err := fn(ctx)
			results[i] = PartialResult[T]{Value: value, Err: err}
		})
	}

	wg.Wait()

	return results
}
