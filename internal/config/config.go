// Package config loads the bot configuration from a TOML file with
// environment overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Server struct {
	Port              string `toml:"port"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

type Chat struct {
	Token       string  `toml:"token"`
	SecretToken string  `toml:"secret_token"`
	BaseURL     string  `toml:"base_url"`
	ChatIDs     []int64 `toml:"chat_ids"`
}

type Digest struct {
	Schedules []string `toml:"schedules"`
	Timezone  string   `toml:"timezone"`
	Title     string   `toml:"title"`
	// Instruments lists the digest's aliases or tickers; empty means the
	// built-in default set.
	Instruments []string `toml:"instruments"`
}

// Limits are the shared throttling knobs for one quote source.
type Limits struct {
	MaxRequestsPerMinute  int `toml:"max_requests_per_minute"`
	Burst                 int `toml:"burst"`
	MinRequestIntervalSec int `toml:"min_request_interval_sec"`
	CacheTTLSeconds       int `toml:"cache_ttl_seconds"`
	CacheMaxItems         int `toml:"cache_max_items"`
}

type Index struct {
	BaseURL string `toml:"base_url"`
	Limits
}

type FX struct {
	BaseURL string `toml:"base_url"`
	Limits
}

type Global struct {
	BaseURL  string `toml:"base_url"`
	Range    string `toml:"range"`
	Interval string `toml:"interval"`
	Limits
}

type Scrape struct {
	BaseURL   string   `toml:"base_url"`
	Exchanges []string `toml:"exchanges"`
}

type Chart struct {
	BaseURL string `toml:"base_url"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
	Chat    Chat    `toml:"chat"`
	Digest  Digest  `toml:"digest"`
	Index   Index   `toml:"index"`
	FX      FX      `toml:"fx"`
	Global  Global  `toml:"global"`
	Scrape  Scrape  `toml:"scrape"`
	Chart   Chart   `toml:"chart"`
}

func defaults() Config {
	return Config{
		Server:  Server{Port: "8080", RequestTimeoutSec: 10},
		Logging: Logging{Level: "info", Format: "console"},
		Digest: Digest{
			Schedules: []string{"0 9 * * 1-5", "0 18 * * 1-5"},
			Timezone:  "Asia/Seoul",
			Title:     "오늘의 시황",
		},
		Global: Global{Range: "1d", Interval: "15m"},
		Chart:  Chart{Width: 600, Height: 300},
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides. Validation failures are returned, not logged.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Server.Port, "PORT")
	setStr(&cfg.Logging.Level, "LOG_LEVEL")
	setStr(&cfg.Chat.Token, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Chat.SecretToken, "TELEGRAM_WEBHOOK_SECRET")
	setStr(&cfg.Chat.BaseURL, "TELEGRAM_API_URL")
	setStr(&cfg.Digest.Timezone, "DIGEST_TZ")
	if v := os.Getenv("DIGEST_CHAT_IDS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			cfg.Chat.ChatIDs = ids
		}
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func validate(cfg Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("config: server.port must be set")
	}
	if cfg.Server.RequestTimeoutSec <= 0 {
		return fmt.Errorf("config: server.request_timeout_sec must be positive")
	}
	for _, spec := range cfg.Digest.Schedules {
		if strings.TrimSpace(spec) == "" {
			return fmt.Errorf("config: empty digest schedule")
		}
	}
	return nil
}
