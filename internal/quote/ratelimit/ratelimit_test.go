package ratelimit

import (
	"context"
	"testing"
	"time"

	"quotebot/internal/quote"
)

type nopFetcher struct {
	calls int
}

func (n *nopFetcher) Name() string { return "nop" }

func (n *nopFetcher) Fetch(context.Context, []string) ([]quote.Quote, error) {
	n.calls++
	return []quote.Quote{{Symbol: "X"}}, nil
}

func TestLimited_BurstPassesThrough(t *testing.T) {
	inner := &nopFetcher{}
	l := NewLimited(inner, 60, 3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := l.Fetch(ctx, []string{"X"}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestLimited_CanceledContext(t *testing.T) {
	l := NewLimited(&nopFetcher{}, 1, 1)
	ctx := context.Background()
	if _, err := l.Fetch(ctx, []string{"X"}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := l.Fetch(canceled, []string{"X"}); err == nil {
		t.Fatal("want error from canceled wait")
	}
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	inner := &nopFetcher{}
	m := &MinInterval{F: inner, Interval: 30 * time.Millisecond}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := m.Fetch(ctx, []string{"X"}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("calls spaced %v apart, want >= 30ms", elapsed)
	}
}

func TestMinInterval_CanceledWhileWaiting(t *testing.T) {
	inner := &nopFetcher{}
	m := &MinInterval{F: inner, Interval: time.Hour}

	ctx := context.Background()
	if _, err := m.Fetch(ctx, []string{"X"}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	canceled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := m.Fetch(canceled, []string{"X"}); err == nil {
		t.Fatal("want error from canceled wait")
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}
