// Package app wires configuration into the running bot: logger setup, the
// per-source fetcher decorator chains, and the bot itself.
package app

import (
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"

	"quotebot/internal/bot"
	"quotebot/internal/chat"
	"quotebot/internal/config"
	"quotebot/internal/httpx"
	"quotebot/internal/quote"
	"quotebot/internal/quote/cache"
	"quotebot/internal/quote/gfin"
	"quotebot/internal/quote/naver"
	"quotebot/internal/quote/ratelimit"
	"quotebot/internal/quote/yahoo"
)

// NewLogger builds the process logger from the logging config.
func NewLogger(cfg config.Logging) log.Logger {
	logger := log.Logger{
		Level:      log.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
	}
	if cfg.Format == "console" {
		logger.Writer = &log.ConsoleWriter{ColorOutput: true, Writer: os.Stderr}
	} else {
		logger.Writer = log.IOWriter{Writer: os.Stderr}
	}
	return logger
}

// Fetchers is the assembled per-source fetcher set.
type Fetchers struct {
	Index  quote.Fetcher
	FX     quote.Fetcher
	Global quote.Fetcher

	// Yahoo is the undecorated global client, kept for chart series.
	Yahoo *yahoo.Fetcher
	// Scraper is the HTML fallback, kept for free-text search.
	Scraper *gfin.Fetcher
}

// BuildFetchers assembles the fetcher chains: each source gets its rate
// limiter and per-symbol cache, and the global source falls back to HTML
// scraping when the JSON API is unavailable.
func BuildFetchers(cfg config.Config, hc *httpx.Client) Fetchers {
	index := decorate(naver.NewIndex(naver.Config{BaseURL: cfg.Index.BaseURL}, hc), cfg.Index.Limits)
	fx := decorate(naver.NewFX(naver.Config{BaseURL: cfg.FX.BaseURL}, hc), cfg.FX.Limits)

	yf := yahoo.New(yahoo.Config{
		Range:    cfg.Global.Range,
		Interval: cfg.Global.Interval,
	}, yahoo.NewClient(yahooOptions(cfg, hc)...))
	scraper := gfin.New(gfin.Config{
		BaseURL:   cfg.Scrape.BaseURL,
		Exchanges: cfg.Scrape.Exchanges,
	}, hc)

	global := decorate(&quote.Fallback{
		FetcherName: "Global",
		Chain:       []quote.Fetcher{yf, scraper},
	}, cfg.Global.Limits)

	return Fetchers{Index: index, FX: fx, Global: global, Yahoo: yf, Scraper: scraper}
}

func yahooOptions(cfg config.Config, hc *httpx.Client) []yahoo.ClientOption {
	opts := []yahoo.ClientOption{yahoo.WithHTTPClient(hc.HTTP)}
	if cfg.Global.BaseURL != "" {
		opts = append(opts, yahoo.WithBaseURL(cfg.Global.BaseURL))
	}
	return opts
}

// decorate applies the standard chain for one source. Prefer a token bucket
// with burst if RPM is set, otherwise fall back to min-interval; the cache
// wraps the limiter so cache hits never spend tokens.
func decorate(f quote.Fetcher, lim config.Limits) quote.Fetcher {
	if lim.MaxRequestsPerMinute > 0 {
		f = ratelimit.NewLimited(f, lim.MaxRequestsPerMinute, lim.Burst)
	} else if lim.MinRequestIntervalSec > 0 {
		f = &ratelimit.MinInterval{F: f, Interval: time.Duration(lim.MinRequestIntervalSec) * time.Second}
	}
	if lim.CacheTTLSeconds > 0 {
		f = &cache.Fetcher{F: f, TTL: time.Duration(lim.CacheTTLSeconds) * time.Second, MaxItems: lim.CacheMaxItems}
	}
	return f
}

// NewBot assembles the bot from config.
func NewBot(cfg config.Config, sender chat.Sender, logger log.Logger) *bot.Bot {
	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	fs := BuildFetchers(cfg, hc)
	return &bot.Bot{
		Index:  fs.Index,
		FX:     fs.FX,
		Global: fs.Global,
		Charts: fs.Yahoo,
		ChartCfg: bot.ChartConfig{
			BaseURL: cfg.Chart.BaseURL,
			Width:   cfg.Chart.Width,
			Height:  cfg.Chart.Height,
		},
		Search:      fs.Scraper,
		Sender:      sender,
		Logger:      logger,
		DigestTitle: cfg.Digest.Title,
		Instruments: resolveInstruments(cfg.Digest.Instruments),
	}
}

// resolveInstruments maps configured digest aliases to instruments. Unknown
// tokens become raw global tickers.
func resolveInstruments(aliases []string) []bot.Instrument {
	out := make([]bot.Instrument, 0, len(aliases))
	for _, alias := range aliases {
		if in, ok := bot.LookupInstrument(alias); ok {
			out = append(out, in)
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(alias))
		if sym == "" {
			continue
		}
		out = append(out, bot.Instrument{Symbol: sym, Label: sym, Source: bot.SourceGlobal})
	}
	return out
}
