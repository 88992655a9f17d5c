// Command fetch resolves instruments from the command line and prints their
// quotes, either as chat-formatted lines or as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"quotebot/internal/app"
	"quotebot/internal/bot"
	"quotebot/internal/config"
	"quotebot/internal/httpx"
	"quotebot/internal/quote"
)

func main() {
	var (
		symbolsCSV string
		configPath string
		timeoutSec int
		asJSON     bool
	)
	flag.StringVar(&symbolsCSV, "symbols", "kospi,kosdaq,usd", "comma-separated instrument aliases or tickers")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.toml (optional)")
	flag.IntVar(&timeoutSec, "timeout", 15, "request timeout seconds")
	flag.BoolVar(&asJSON, "json", false, "print quotes as JSON instead of chat lines")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := app.NewLogger(cfg.Logging)

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		logger.Fatal().Msg("no symbols provided")
	}

	fs := app.BuildFetchers(cfg, httpx.New(time.Duration(timeoutSec)*time.Second))
	b := &bot.Bot{Index: fs.Index, FX: fs.FX, Global: fs.Global, Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	type result struct {
		idx   int
		label string
		q     quote.Quote
		err   error
	}
	ch := make(chan result, len(symbols))
	for i, sym := range symbols {
		go func() {
			in, ok := bot.LookupInstrument(sym)
			if !ok {
				in = bot.Instrument{Symbol: strings.ToUpper(sym), Label: sym, Source: bot.SourceGlobal}
			}
			q, err := b.Quote(ctx, in)
			ch <- result{idx: i, label: in.Label, q: q, err: err}
		}()
	}

	results := make([]result, len(symbols))
	for range symbols {
		r := <-ch
		results[r.idx] = r
	}

	var quotes []quote.Quote
	failures := 0
	for _, r := range results {
		if r.err != nil {
			logger.Error().Err(r.err).Str("symbol", symbols[r.idx]).Msg("lookup failed")
			failures++
			continue
		}
		if asJSON {
			quotes = append(quotes, r.q)
			continue
		}
		fmt.Println(bot.FormatQuote(r.label, r.q))
	}

	if asJSON && len(quotes) > 0 {
		out := struct {
			Quotes []quote.Quote `json:"quotes"`
		}{Quotes: quotes}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
	}
	if failures == len(symbols) {
		logger.Fatal().Msg("no quotes received")
	}
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
