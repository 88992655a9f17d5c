// Package gfin scrapes quotes from the Google Finance quote pages. It is the
// fallback path for the global quote source when the JSON API is unavailable
// or rate-limited.
package gfin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	"quotebot/internal/httpx"
	"quotebot/internal/quote"
)

const defaultBaseURL = "https://www.google.com/finance"

// Browser-like User-Agent: the provider serves a script-only shell to unknown
// agents.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type Config struct {
	Name    string
	BaseURL string
	// Exchanges tried in order when a bare symbol carries no exchange
	// qualifier.
	Exchanges []string
}

type Fetcher struct {
	cfg    Config
	client *httpx.Client
	group  singleflight.Group
}

func New(cfg Config, hc *httpx.Client) *Fetcher {
	if cfg.Name == "" {
		cfg.Name = "GoogleFinance"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if len(cfg.Exchanges) == 0 {
		cfg.Exchanges = []string{"NASDAQ", "NYSE", "AMEX"}
	}
	return &Fetcher{cfg: cfg, client: hc}
}

func (f *Fetcher) Name() string { return f.cfg.Name }

func (f *Fetcher) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
	out := make([]quote.Quote, 0, len(symbols))
	var firstErr error
	for _, sym := range symbols {
		q, err := f.lookup(ctx, sym)
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

// lookup tries each candidate slug for the symbol until a page yields a
// quote. Not-found pages advance to the next candidate; anything else stops
// the attempt, since an unavailable provider will not get better mid-loop.
func (f *Fetcher) lookup(ctx context.Context, symbol string) (quote.Quote, error) {
	cands := Candidates(symbol, f.cfg.Exchanges)
	for _, slug := range cands {
		q, err := f.fetchPage(ctx, slug)
		if err == nil {
			return q, nil
		}
		if errors.Is(err, quote.ErrSymbolNotFound) {
			continue
		}
		return quote.Quote{}, err
	}
	return quote.Quote{}, quote.ErrSymbolNotFound
}

// Search resolves a free-text query via the provider's quote page: the page
// served for a loose query carries a canonical link with the resolved symbol.
func (f *Fetcher) Search(ctx context.Context, text string) (quote.Quote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return quote.Quote{}, quote.ErrSymbolNotFound
	}
	return f.fetchPage(ctx, url.PathEscape(text))
}

func (f *Fetcher) fetchPage(ctx context.Context, slug string) (quote.Quote, error) {
	// Concurrent requests for the same slug share one scrape.
	v, err, _ := f.group.Do(slug, func() (any, error) {
		return f.scrape(ctx, slug)
	})
	if err != nil {
		return quote.Quote{}, err
	}
	return v.(quote.Quote), nil
}

func (f *Fetcher) scrape(ctx context.Context, slug string) (quote.Quote, error) {
	pageURL := f.cfg.BaseURL + "/quote/" + slug
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return quote.Quote{}, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return quote.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return quote.Quote{}, quote.ErrSymbolNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return quote.Quote{}, &quote.StatusError{Code: resp.StatusCode, Body: httpx.Snippet(resp.Body)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("parse html: %w", err)
	}
	ex, err := Extract(doc)
	if err != nil {
		return quote.Quote{}, err
	}
	return f.toQuote(ex), nil
}

func (f *Fetcher) toQuote(ex Extracted) quote.Quote {
	change := 0.0
	pct := 0.0
	if ex.PreviousClose != 0 {
		change = ex.Price - ex.PreviousClose
		pct = change / ex.PreviousClose * 100
	}
	sym := ex.Symbol
	if ex.Exchange != "" {
		sym = ex.Symbol + ":" + ex.Exchange
	}
	at := ex.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return quote.Quote{
		Symbol:    sym,
		Name:      ex.Name,
		Value:     ex.Price,
		Change:    change,
		ChangePct: pct,
		Direction: quote.DirectionFromDelta(change),
		Currency:  ex.Currency,
		Source:    f.cfg.Name,
		At:        at,
	}
}

// Candidates expands a user symbol into the slugs to try, in order.
// Exchange-qualified symbols ("AAPL:NASDAQ") are used as-is; bare symbols are
// tried against the configured exchanges. Crypto pairs ("BTC-USD") query the
// provider's pair notation directly.
func Candidates(symbol string, exchanges []string) []string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return nil
	}
	if strings.Contains(s, ":") {
		return []string{s}
	}
	if strings.Contains(s, "-") {
		// Crypto/FX pair notation.
		return []string{s}
	}
	out := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		out = append(out, s+":"+strings.ToUpper(ex))
	}
	return out
}
