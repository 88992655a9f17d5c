// Package cache provides a per-symbol TTL cache decorator for quote
// fetchers. It absorbs repeated chat commands for the same instrument so the
// upstream rate limits are spent on distinct symbols.
package cache

import (
	"context"
	"sync"
	"time"

	"quotebot/internal/quote"
)

type entry struct {
	expiresAt time.Time
	q         quote.Quote
}

// Fetcher caches quotes per symbol for a TTL. Only missing symbols are
// requested from the underlying fetcher; on upstream failure, still-valid
// cached quotes are served rather than failing the whole request.
type Fetcher struct {
	F        quote.Fetcher
	TTL      time.Duration
	MaxItems int

	mu    sync.Mutex
	items map[string]entry
}

func (c *Fetcher) Name() string { return c.F.Name() }

func (c *Fetcher) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
	if c.TTL <= 0 {
		return c.F.Fetch(ctx, symbols)
	}

	now := time.Now()
	cached := make(map[string]quote.Quote, len(symbols))
	var missing []string
	seen := make(map[string]struct{}, len(symbols))

	c.mu.Lock()
	for _, s := range symbols {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if e, ok := c.items[s]; ok && now.Before(e.expiresAt) {
			cached[s] = e.q
			continue
		}
		missing = append(missing, s)
	}
	c.mu.Unlock()

	if len(missing) > 0 {
		fresh, err := c.F.Fetch(ctx, missing)
		if err != nil && len(cached) == 0 {
			return nil, err
		}
		if len(fresh) > 0 {
			expiry := now.Add(c.TTL)
			c.mu.Lock()
			if c.items == nil {
				c.items = make(map[string]entry, len(fresh))
			}
			for _, q := range fresh {
				c.items[q.Symbol] = entry{expiresAt: expiry, q: q}
				cached[q.Symbol] = q
			}
			c.evictLocked()
			c.mu.Unlock()
		}
	}

	// Preserve request order in the output.
	out := make([]quote.Quote, 0, len(cached))
	emitted := make(map[string]struct{}, len(cached))
	for _, s := range symbols {
		if _, dup := emitted[s]; dup {
			continue
		}
		if q, ok := cached[s]; ok {
			out = append(out, q)
			emitted[s] = struct{}{}
		}
	}
	return out, nil
}

// evictLocked caps the cache size, dropping expired entries first.
func (c *Fetcher) evictLocked() {
	if c.MaxItems <= 0 || len(c.items) <= c.MaxItems {
		return
	}
	now := time.Now()
	for k, v := range c.items {
		if len(c.items) <= c.MaxItems {
			return
		}
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
	for k := range c.items {
		if len(c.items) <= c.MaxItems {
			return
		}
		delete(c.items, k)
	}
}
