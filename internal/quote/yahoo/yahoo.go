// Package yahoo fetches global equity and crypto quotes from the Yahoo
// Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quotebot/internal/quote"
)

type Config struct {
	Name string
	// Range/Interval control how much history each chart request carries.
	// The series doubles as the sparkline input for chart URLs.
	Range    string
	Interval string
}

// Fetcher adapts the chart API client to the normalized quote interface.
type Fetcher struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Fetcher {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.Range == "" {
		cfg.Range = "1d"
	}
	if cfg.Interval == "" {
		cfg.Interval = "15m"
	}
	return &Fetcher{cfg: cfg, client: client}
}

func (f *Fetcher) Name() string { return f.cfg.Name }

func (f *Fetcher) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
	out := make([]quote.Quote, 0, len(symbols))
	var firstErr error
	for _, sym := range symbols {
		q, err := f.fetchOne(ctx, sym)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", sym, err)
			}
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, symbol string) (quote.Quote, error) {
	chart, err := f.client.GetChart(ctx, Canonical(symbol), f.cfg.Range, f.cfg.Interval)
	if err != nil {
		return quote.Quote{}, err
	}
	change := chart.Price - chart.PreviousClose
	var pct float64
	if chart.PreviousClose != 0 {
		pct = change / chart.PreviousClose * 100
	}
	at := chart.MarketTime
	if at.IsZero() {
		at = time.Now().UTC()
	}
	name := chart.ShortName
	if name == "" {
		name = chart.Symbol
	}
	return quote.Quote{
		Symbol:    chart.Symbol,
		Name:      name,
		Value:     chart.Price,
		Change:    change,
		ChangePct: pct,
		Direction: quote.DirectionFromDelta(change),
		Currency:  chart.Currency,
		Source:    f.cfg.Name,
		At:        at,
	}, nil
}

// Series returns the close-price series for symbol, used to build chart URLs.
func (f *Fetcher) Series(ctx context.Context, symbol string) ([]float64, error) {
	chart, err := f.client.GetChart(ctx, Canonical(symbol), f.cfg.Range, f.cfg.Interval)
	if err != nil {
		return nil, err
	}
	return chart.Closes, nil
}

// Canonical normalizes user-supplied symbols to the provider's notation:
// uppercased, "$" cashtag prefix stripped.
func Canonical(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimPrefix(s, "$")
	return s
}
