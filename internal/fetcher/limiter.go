// Package fetcher resolves and downloads filing documents from EDGAR under a
// global rate limit.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/secpulse/secpulse/internal/metrics"
)

// Limiter enforces the global download budget: a fixed number of concurrent
// downloads plus a fixed spacing between any two requests, shared across all
// callers.
type Limiter struct {
	sem     *semaphore.Weighted
	spacing *rate.Limiter
}

// NewLimiter builds a Limiter allowing maxConcurrent in-flight downloads with
// at least spacing between request starts.
func NewLimiter(maxConcurrent int, spacing time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	r := rate.Inf
	if spacing > 0 {
		r = rate.Every(spacing)
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		spacing: rate.NewLimiter(r, 1),
	}
}

// Acquire blocks until a download slot and a spacing token are available.
// Every successful Acquire must be paired with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire download slot: %w", err)
	}
	if err := l.spacing.Wait(ctx); err != nil {
		l.sem.Release(1)
		return fmt.Errorf("download spacing wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveDownloadDelay(waited)
	}
	return nil
}

// Release returns a download slot.
func (l *Limiter) Release() {
	l.sem.Release(1)
}
