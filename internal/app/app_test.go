package app

import (
	"testing"
	"time"

	"quotebot/internal/bot"
	"quotebot/internal/config"
	"quotebot/internal/httpx"
	"quotebot/internal/quote/cache"
	"quotebot/internal/quote/ratelimit"
)

func TestBuildFetchers_Wiring(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	fs := BuildFetchers(cfg, httpx.New(5*time.Second))

	if fs.Index == nil || fs.FX == nil || fs.Global == nil {
		t.Fatal("nil fetcher in set")
	}
	if fs.Yahoo == nil || fs.Scraper == nil {
		t.Fatal("chart/search backends not exposed")
	}
	if fs.Index.Name() != "NaverIndex" {
		t.Fatalf("index name = %q", fs.Index.Name())
	}
	if fs.Global.Name() != "Global" {
		t.Fatalf("global name = %q", fs.Global.Name())
	}
}

func TestBuildFetchers_DecoratorChain(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Index.MaxRequestsPerMinute = 60
	cfg.Index.CacheTTLSeconds = 30

	fs := BuildFetchers(cfg, httpx.New(5*time.Second))

	c, ok := fs.Index.(*cache.Fetcher)
	if !ok {
		t.Fatalf("outermost = %T, want cache", fs.Index)
	}
	if _, ok := c.F.(*ratelimit.Limited); !ok {
		t.Fatalf("inner = %T, want rate limiter", c.F)
	}
}

func TestResolveInstruments(t *testing.T) {
	ins := resolveInstruments([]string{"kospi", "TSLA", " ", "달러"})
	if len(ins) != 3 {
		t.Fatalf("len = %d, want 3", len(ins))
	}
	if ins[0].Symbol != "KOSPI" || ins[1].Symbol != "TSLA" || ins[2].Symbol != "USD/KRW" {
		t.Fatalf("instruments = %+v", ins)
	}
	if ins[1].Source != bot.SourceGlobal {
		t.Fatalf("raw ticker source = %v", ins[1].Source)
	}
}

func TestBuildFetchers_MinIntervalWhenNoRPM(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.FX.MinRequestIntervalSec = 2

	fs := BuildFetchers(cfg, httpx.New(5*time.Second))

	if _, ok := fs.FX.(*ratelimit.MinInterval); !ok {
		t.Fatalf("fx = %T, want min-interval", fs.FX)
	}
}
