// Package ratelimit provides rate-limiting decorators for quote fetchers.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"quotebot/internal/quote"
)

// Limited wraps a fetcher and gates calls through a token-bucket limiter.
type Limited struct {
	F       quote.Fetcher
	Limiter *rate.Limiter
}

// NewLimited builds a Limited fetcher allowing rpm requests per minute with
// the given burst.
func NewLimited(f quote.Fetcher, rpm int, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{F: f, Limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)}
}

func (l *Limited) Name() string { return l.F.Name() }

func (l *Limited) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
	if l.Limiter != nil {
		if err := l.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return l.F.Fetch(ctx, symbols)
}

// MinInterval wraps a fetcher and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	F        quote.Fetcher
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.F.Name() }

func (m *MinInterval) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	qs, err := m.F.Fetch(ctx, symbols)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return qs, err
}
