// Command scrape bulk-resolves symbols through the HTML quote pages and
// writes the results as a JSON file. It is the debugging tool for the
// scraping fallback: slow, polite, and verbose about what each page yielded.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"quotebot/internal/config"
	"quotebot/internal/httpx"
	"quotebot/internal/quote"
	"quotebot/internal/quote/gfin"
)

func main() {
	var (
		symbolsCSV  string
		symbolsFile string
		outPath     string
		cfgPath     string
		concurrency int
		timeoutSec  int
		maxRetries  int
		rpm         int
	)
	flag.StringVar(&symbolsCSV, "symbols", "", "comma-separated symbols to scrape")
	flag.StringVar(&symbolsFile, "symbols-file", "", "file with one symbol per line")
	flag.StringVar(&outPath, "out", "scraped_quotes.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.toml (optional)")
	flag.IntVar(&concurrency, "concurrency", 2, "number of parallel page fetches")
	flag.IntVar(&timeoutSec, "timeout", 20, "HTTP timeout seconds")
	flag.IntVar(&maxRetries, "retries", 3, "max retries on 429/5xx")
	flag.IntVar(&rpm, "rpm", 30, "max requests per minute (0 = unlimited)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	symbols := collectSymbols(symbolsCSV, symbolsFile)
	if len(symbols) == 0 {
		log.Fatal().Msg("no symbols provided; use -symbols or -symbols-file")
	}
	log.Info().Int("symbols", len(symbols)).Msg("scrape starting")

	scraper := gfin.New(gfin.Config{
		BaseURL:   cfg.Scrape.BaseURL,
		Exchanges: cfg.Scrape.Exchanges,
	}, httpx.New(time.Duration(timeoutSec)*time.Second))

	outFile, err := os.Create(outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("create output file failed")
	}
	defer outFile.Close()
	bw := bufio.NewWriterSize(outFile, 1<<20)
	defer bw.Flush()

	_, _ = bw.WriteString("{\"quotes\":[")
	first := true
	var writeMu sync.Mutex

	// Gate page fetches by RPM so bulk runs stay under the provider's radar.
	var tokenCh <-chan time.Time
	if rpm > 0 {
		t := time.NewTicker(time.Minute / time.Duration(rpm))
		defer t.Stop()
		tokenCh = t.C
	}

	fetchWithRetry := func(ctx context.Context, symbol string) (quote.Quote, error) {
		attempt := 0
		for {
			if tokenCh != nil {
				<-tokenCh
			}
			qs, err := scraper.Fetch(ctx, []string{symbol})
			if err == nil && len(qs) > 0 {
				return qs[0], nil
			}
			if err == nil {
				return quote.Quote{}, quote.ErrSymbolNotFound
			}
			var se *quote.StatusError
			if errors.As(err, &se) && (se.Code == 429 || se.Code >= 500) && attempt < maxRetries {
				back := time.Duration(250*(1<<attempt)) * time.Millisecond
				time.Sleep(back)
				attempt++
				continue
			}
			return quote.Quote{}, err
		}
	}

	jobs := make(chan string, concurrency*2)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
				q, err := fetchWithRetry(ctx, symbol)
				cancel()
				if err != nil {
					log.Warn().Err(err).Str("symbol", symbol).Msg("scrape failed")
					continue
				}
				raw, err := json.Marshal(q)
				if err != nil {
					log.Warn().Err(err).Str("symbol", symbol).Msg("encode failed")
					continue
				}
				writeMu.Lock()
				if !first {
					_, _ = bw.WriteString(",")
				} else {
					first = false
				}
				_, _ = bw.Write(raw)
				writeMu.Unlock()
				log.Info().Str("symbol", symbol).Str("resolved", q.Symbol).Float64("value", q.Value).Msg("scraped")
			}
		}()
	}

	for _, s := range symbols {
		jobs <- s
	}
	close(jobs)
	wg.Wait()

	_, _ = bw.WriteString("]}")
	if err := bw.Flush(); err != nil {
		log.Fatal().Err(err).Msg("flush output failed")
	}
	log.Info().Str("out", outPath).Msg("done")
}

func collectSymbols(csv, file string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range strings.Split(csv, ",") {
		add(s)
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Msg("read symbols file failed")
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(line)
		}
	}
	return out
}
