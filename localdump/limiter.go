package localdump

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is how many external calls a sync keeps in flight.
const DefaultConcurrency = 5

// Limiter caps the number of external calls in flight across every page of a run. It gates single
// calls rather than whole pages, so a page holding a permit never waits on another permit.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = DefaultConcurrency
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn once a permit is free. Errors from fn come back wrapped in ErrExternalCall.
func (l *Limiter) Do(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExternalCall, what, err)
	}
	defer l.sem.Release(1)

	if err := fn(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExternalCall, what, err)
	}
	return nil
}
