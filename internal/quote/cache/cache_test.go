package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"quotebot/internal/quote"
)

type countingFetcher struct {
	calls [][]string
	err   error
}

func (c *countingFetcher) Name() string { return "counting" }

func (c *countingFetcher) Fetch(_ context.Context, symbols []string) ([]quote.Quote, error) {
	c.calls = append(c.calls, append([]string(nil), symbols...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([]quote.Quote, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, quote.Quote{Symbol: s, Value: float64(len(c.calls))})
	}
	return out, nil
}

func TestFetch_SecondCallServedFromCache(t *testing.T) {
	inner := &countingFetcher{}
	c := &Fetcher{F: inner, TTL: time.Minute}

	ctx := context.Background()
	first, err := c.Fetch(ctx, []string{"KOSPI"})
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.Fetch(ctx, []string{"KOSPI"})
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("inner calls = %d, want 1", len(inner.calls))
	}
	if first[0].Value != second[0].Value {
		t.Fatalf("cached value changed: %v vs %v", first[0].Value, second[0].Value)
	}
}

func TestFetch_OnlyMissingSymbolsForwarded(t *testing.T) {
	inner := &countingFetcher{}
	c := &Fetcher{F: inner, TTL: time.Minute}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, []string{"KOSPI"}); err != nil {
		t.Fatalf("warm fetch: %v", err)
	}
	qs, err := c.Fetch(ctx, []string{"KOSPI", "KOSDAQ"})
	if err != nil {
		t.Fatalf("mixed fetch: %v", err)
	}
	if len(qs) != 2 || qs[0].Symbol != "KOSPI" || qs[1].Symbol != "KOSDAQ" {
		t.Fatalf("unexpected result order: %+v", qs)
	}
	last := inner.calls[len(inner.calls)-1]
	if len(last) != 1 || last[0] != "KOSDAQ" {
		t.Fatalf("forwarded symbols = %v, want [KOSDAQ]", last)
	}
}

func TestFetch_ServesCachedOnUpstreamError(t *testing.T) {
	inner := &countingFetcher{}
	c := &Fetcher{F: inner, TTL: time.Minute}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, []string{"KOSPI"}); err != nil {
		t.Fatalf("warm fetch: %v", err)
	}
	inner.err = errors.New("upstream down")

	qs, err := c.Fetch(ctx, []string{"KOSPI", "KOSDAQ"})
	if err != nil {
		t.Fatalf("degraded fetch: %v", err)
	}
	if len(qs) != 1 || qs[0].Symbol != "KOSPI" {
		t.Fatalf("want cached KOSPI only, got %+v", qs)
	}

	// Nothing cached at all surfaces the error.
	if _, err := c.Fetch(ctx, []string{"KOSDAQ"}); err == nil {
		t.Fatal("want error when cache is empty and upstream fails")
	}
}

func TestFetch_ExpiredEntryRefetched(t *testing.T) {
	inner := &countingFetcher{}
	c := &Fetcher{F: inner, TTL: 10 * time.Millisecond}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, []string{"KOSPI"}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := c.Fetch(ctx, []string{"KOSPI"}); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("inner calls = %d, want 2", len(inner.calls))
	}
}

func TestFetch_ZeroTTLPassesThrough(t *testing.T) {
	inner := &countingFetcher{}
	c := &Fetcher{F: inner}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(ctx, []string{"KOSPI"}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if len(inner.calls) != 3 {
		t.Fatalf("inner calls = %d, want 3", len(inner.calls))
	}
}

func TestEvict_CapsItems(t *testing.T) {
	inner := &countingFetcher{}
	c := &Fetcher{F: inner, TTL: time.Minute, MaxItems: 2}

	ctx := context.Background()
	if _, err := c.Fetch(ctx, []string{"A", "B", "C", "D"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	c.mu.Lock()
	n := len(c.items)
	c.mu.Unlock()
	if n > 2 {
		t.Fatalf("items = %d, want <= 2", n)
	}
}
