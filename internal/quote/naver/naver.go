// Package naver fetches domestic index values and FX rates from the Naver
// Finance mobile JSON API.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quotebot/internal/httpx"
	"quotebot/internal/quote"
)

const defaultBaseURL = "https://m.stock.naver.com"

// Fluctuation codes as reported by the API. Upper/lower limit days are rare
// but still directional.
const (
	codeUpperLimit = "1"
	codeRise       = "2"
	codeEven       = "3"
	codeLowerLimit = "4"
	codeFall       = "5"
)

type Config struct {
	Name    string
	BaseURL string
}

func (c *Config) defaults(name string) {
	if c.Name == "" {
		c.Name = name
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
}

// IndexFetcher fetches domestic index quotes (KOSPI, KOSDAQ, KPI200).
type IndexFetcher struct {
	cfg    Config
	client *httpx.Client
}

func NewIndex(cfg Config, hc *httpx.Client) *IndexFetcher {
	cfg.defaults("NaverIndex")
	return &IndexFetcher{cfg: cfg, client: hc}
}

func (f *IndexFetcher) Name() string { return f.cfg.Name }

// indexBasic is the shape of /api/index/{symbol}/basic. Prices arrive as
// strings with thousands separators; the delta is an unsigned magnitude whose
// sign comes from the fluctuation code.
type indexBasic struct {
	IndexName                   string `json:"indexName"`
	ClosePrice                  string `json:"closePrice"`
	CompareToPreviousClosePrice string `json:"compareToPreviousClosePrice"`
	FluctuationsRatio           string `json:"fluctuationsRatio"`
	CompareToPreviousPrice      struct {
		Code string `json:"code"`
		Text string `json:"text"`
	} `json:"compareToPreviousPrice"`
	LocalTradedAt string `json:"localTradedAt"`
}

func (f *IndexFetcher) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
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

func (f *IndexFetcher) fetchOne(ctx context.Context, symbol string) (quote.Quote, error) {
	url := fmt.Sprintf("%s/api/index/%s/basic", f.cfg.BaseURL, strings.ToUpper(symbol))
	resp, err := f.client.Get(ctx, url)
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

	var basic indexBasic
	if err := json.NewDecoder(resp.Body).Decode(&basic); err != nil {
		return quote.Quote{}, fmt.Errorf("decode: %w", err)
	}
	if basic.ClosePrice == "" {
		return quote.Quote{}, quote.ErrSymbolNotFound
	}

	value, err := ParseNumber(basic.ClosePrice)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("close price %q: %w", basic.ClosePrice, err)
	}
	dir := directionFromCode(basic.CompareToPreviousPrice.Code)
	change, _ := ParseNumber(basic.CompareToPreviousClosePrice)
	pct, _ := ParseNumber(basic.FluctuationsRatio)
	change = applySign(change, dir)
	pct = applySign(pct, dir)

	name := basic.IndexName
	if name == "" {
		name = strings.ToUpper(symbol)
	}
	return quote.Quote{
		Symbol:    strings.ToUpper(symbol),
		Name:      name,
		Value:     value,
		Change:    change,
		ChangePct: pct,
		Direction: dir,
		Currency:  "KRW",
		Source:    f.cfg.Name,
		At:        parseTradedAt(basic.LocalTradedAt),
	}, nil
}

// FXFetcher fetches exchange rates against the won. Symbols are pairs like
// "USD/KRW", mapped to the provider's Reuters codes.
type FXFetcher struct {
	cfg    Config
	client *httpx.Client
}

func NewFX(cfg Config, hc *httpx.Client) *FXFetcher {
	cfg.defaults("NaverFX")
	return &FXFetcher{cfg: cfg, client: hc}
}

func (f *FXFetcher) Name() string { return f.cfg.Name }

type fxDetail struct {
	IsSuccess bool `json:"isSuccess"`
	Result    struct {
		Name                        string `json:"name"`
		ClosePrice                  string `json:"closePrice"`
		CompareToPreviousClosePrice string `json:"compareToPreviousClosePrice"`
		FluctuationsRatio           string `json:"fluctuationsRatio"`
		LocalTradedAt               string `json:"localTradedAt"`
	} `json:"result"`
}

func (f *FXFetcher) Fetch(ctx context.Context, symbols []string) ([]quote.Quote, error) {
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

func (f *FXFetcher) fetchOne(ctx context.Context, pair string) (quote.Quote, error) {
	code, err := ReutersCode(pair)
	if err != nil {
		return quote.Quote{}, err
	}
	url := fmt.Sprintf("%s/front-api/marketIndex/productDetail?category=exchange&reutersCode=%s", f.cfg.BaseURL, code)
	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return quote.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return quote.Quote{}, &quote.StatusError{Code: resp.StatusCode, Body: httpx.Snippet(resp.Body)}
	}

	var detail fxDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return quote.Quote{}, fmt.Errorf("decode: %w", err)
	}
	if !detail.IsSuccess || detail.Result.ClosePrice == "" {
		return quote.Quote{}, quote.ErrSymbolNotFound
	}

	value, err := ParseNumber(detail.Result.ClosePrice)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("close price %q: %w", detail.Result.ClosePrice, err)
	}
	// FX deltas arrive signed; direction comes from the sign.
	change, _ := ParseNumber(detail.Result.CompareToPreviousClosePrice)
	pct, _ := ParseNumber(detail.Result.FluctuationsRatio)

	name := detail.Result.Name
	if name == "" {
		name = pair
	}
	return quote.Quote{
		Symbol:    pair,
		Name:      name,
		Value:     value,
		Change:    change,
		ChangePct: pct,
		Direction: quote.DirectionFromDelta(change),
		Currency:  "KRW",
		Source:    f.cfg.Name,
		At:        parseTradedAt(detail.Result.LocalTradedAt),
	}, nil
}

// ReutersCode maps a currency pair to the provider's product code.
func ReutersCode(pair string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	p = strings.NewReplacer("/", "", "-", "", " ", "").Replace(p)
	if len(p) != 6 {
		return "", fmt.Errorf("bad currency pair %q: %w", pair, quote.ErrSymbolNotFound)
	}
	return "FX_" + p, nil
}

// ParseNumber parses a provider-formatted number, stripping thousands
// separators.
func ParseNumber(s string) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(clean, 64)
}

func directionFromCode(code string) quote.Direction {
	switch code {
	case codeUpperLimit, codeRise:
		return quote.Up
	case codeLowerLimit, codeFall:
		return quote.Down
	case codeEven:
		return quote.Flat
	default:
		return quote.Flat
	}
}

// applySign restores the sign the API drops from index deltas.
func applySign(magnitude float64, dir quote.Direction) float64 {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if dir == quote.Down {
		return -magnitude
	}
	if dir == quote.Flat {
		return 0
	}
	return magnitude
}

func parseTradedAt(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
