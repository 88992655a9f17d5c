package gfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quotebot/internal/httpx"
	"quotebot/internal/quote"
)

func newFetcher(t *testing.T, handler http.HandlerFunc, exchanges ...string) (*Fetcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Exchanges: exchanges}, httpx.New(5*time.Second)), srv
}

func TestFetch_TriesExchangesInOrder(t *testing.T) {
	var paths []string
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/quote/AAPL:NYSE" {
			w.Write([]byte(attrPage))
			return
		}
		w.Write([]byte(notFoundPage))
	}, "NASDAQ", "NYSE")

	qs, err := f.Fetch(context.Background(), []string{"aapl"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, []string{"/quote/AAPL:NASDAQ", "/quote/AAPL:NYSE"}, paths)

	q := qs[0]
	require.Equal(t, "AAPL:NASDAQ", q.Symbol) // symbol comes from the page's canonical link
	require.InDelta(t, 231.50, q.Value, 1e-9)
	require.InDelta(t, 2.50, q.Change, 1e-9)
	require.Equal(t, quote.Up, q.Direction)
}

func TestFetch_AllCandidatesMissing(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(notFoundPage))
	}, "NASDAQ", "NYSE")

	_, err := f.Fetch(context.Background(), []string{"NOPE"})
	require.ErrorIs(t, err, quote.ErrSymbolNotFound)
}

func TestFetch_UpstreamErrorStopsCandidateLoop(t *testing.T) {
	var calls int
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "blocked", http.StatusTooManyRequests)
	}, "NASDAQ", "NYSE")

	_, err := f.Fetch(context.Background(), []string{"AAPL"})
	var se *quote.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusTooManyRequests, se.Code)
	require.Equal(t, 1, calls)
}

func TestSearch_ResolvesViaCanonicalLink(t *testing.T) {
	f, _ := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote/apple", r.URL.Path)
		w.Write([]byte(attrPage))
	})

	q, err := f.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Equal(t, "AAPL:NASDAQ", q.Symbol)
	require.Equal(t, "Apple Inc", q.Name)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := New(Config{BaseURL: "http://unused"}, httpx.New(time.Second))
	_, err := f.Search(context.Background(), "   ")
	require.ErrorIs(t, err, quote.ErrSymbolNotFound)
}
