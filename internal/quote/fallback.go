package quote

import (
	"context"
	"errors"
)

// Fallback tries fetchers in order and returns the first successful result.
// It only advances down the chain when a source looks unavailable. An
// ErrSymbolNotFound stops the chain immediately: the source answered, the
// symbol just does not exist.
type Fallback struct {
	FetcherName string
	Chain       []Fetcher
}

func (f *Fallback) Name() string {
	if f.FetcherName != "" {
		return f.FetcherName
	}
	if len(f.Chain) > 0 {
		return f.Chain[0].Name()
	}
	return "fallback"
}

func (f *Fallback) Fetch(ctx context.Context, symbols []string) ([]Quote, error) {
	var lastErr error
	for _, fetcher := range f.Chain {
		qs, err := fetcher.Fetch(ctx, symbols)
		if err == nil {
			return qs, nil
		}
		if errors.Is(err, ErrSymbolNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if !Unavailable(err) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no fetchers configured")
	}
	return nil, lastErr
}
