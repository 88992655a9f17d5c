// Package server exposes the bot over HTTP: the chat webhook, a health
// check, and a small JSON quote API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/phuslu/log"

	"quotebot/internal/bot"
	"quotebot/internal/chat"
	"quotebot/internal/quote"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type Server struct {
	Bot *bot.Bot
	// SecretToken, when set, must match the webhook's secret header.
	SecretToken string
	Logger      log.Logger
}

// Handler builds the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/api/quotes", s.handleQuotes)
	return s.requestLog(s.recoverPanic(limitBody(mux)))
}

// handleWebhook consumes one chat update. Malformed payloads are logged and
// acknowledged with 200 anyway, so the chat platform does not redeliver them.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.SecretToken != "" && r.Header.Get(secretTokenHeader) != s.SecretToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var u chat.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.Logger.Warn().Err(err).Msg("webhook: bad payload")
	} else {
		s.Bot.HandleUpdate(r.Context(), &u)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

type quotesResponse struct {
	Quotes []quote.Quote `json:"quotes"`
}

// handleQuotes serves GET /api/quotes?symbols=kospi,usd as JSON. Symbols are
// resolved through the bot's alias table; unknown tokens go to the global
// source as raw tickers.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbols := splitCSV(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		http.Error(w, "missing symbols query param", http.StatusBadRequest)
		return
	}
	if len(symbols) > 50 {
		http.Error(w, "too many symbols (max 50)", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	type result struct {
		q   quote.Quote
		err error
	}
	ch := make(chan result, len(symbols))
	for _, sym := range symbols {
		go func() {
			in, ok := bot.LookupInstrument(sym)
			if !ok {
				in = bot.Instrument{Symbol: strings.ToUpper(sym), Source: bot.SourceGlobal}
			}
			q, err := s.Bot.Quote(ctx, in)
			ch <- result{q, err}
		}()
	}

	var all []quote.Quote
	var errs []string
	for range symbols {
		res := <-ch
		if res.err != nil {
			errs = append(errs, res.err.Error())
			continue
		}
		all = append(all, res.q)
	}
	if len(all) == 0 && len(errs) > 0 {
		http.Error(w, strings.Join(errs, "; "), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(quotesResponse{Quotes: all})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// recoverPanic protects handlers from panics.
func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Logger.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
