package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Digest.Timezone != "Asia/Seoul" {
		t.Fatalf("timezone = %q", cfg.Digest.Timezone)
	}
	if len(cfg.Digest.Schedules) != 2 {
		t.Fatalf("schedules = %v", cfg.Digest.Schedules)
	}
	if cfg.Global.Range != "1d" || cfg.Global.Interval != "15m" {
		t.Fatalf("global = %+v", cfg.Global)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9090"

[chat]
chat_ids = [-100123, 456]

[global]
range = "5d"
max_requests_per_minute = 30
burst = 5

[digest]
schedules = ["30 8 * * *"]
title = "아침 시황"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if len(cfg.Chat.ChatIDs) != 2 || cfg.Chat.ChatIDs[0] != -100123 {
		t.Fatalf("chat ids = %v", cfg.Chat.ChatIDs)
	}
	if cfg.Global.Range != "5d" || cfg.Global.MaxRequestsPerMinute != 30 || cfg.Global.Burst != 5 {
		t.Fatalf("global = %+v", cfg.Global)
	}
	if cfg.Digest.Title != "아침 시황" || len(cfg.Digest.Schedules) != 1 {
		t.Fatalf("digest = %+v", cfg.Digest)
	}
	// Untouched sections keep defaults.
	if cfg.Server.RequestTimeoutSec != 10 {
		t.Fatalf("timeout = %d", cfg.Server.RequestTimeoutSec)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-from-env")
	t.Setenv("PORT", "7000")
	t.Setenv("DIGEST_CHAT_IDS", "-1, 2 ,junk,3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.Token != "tok-from-env" {
		t.Fatalf("token = %q", cfg.Chat.Token)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	want := []int64{-1, 2, 3}
	if len(cfg.Chat.ChatIDs) != len(want) {
		t.Fatalf("chat ids = %v", cfg.Chat.ChatIDs)
	}
	for i, id := range want {
		if cfg.Chat.ChatIDs[i] != id {
			t.Fatalf("chat ids = %v, want %v", cfg.Chat.ChatIDs, want)
		}
	}
}

func TestLoad_BadTOML(t *testing.T) {
	path := writeConfig(t, `[server`)
	if _, err := Load(path); err == nil {
		t.Fatal("want parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Fatal("want read error")
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	path := writeConfig(t, `
[server]
request_timeout_sec = -1
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want validation error")
	}
}
