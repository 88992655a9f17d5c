package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"quotebot/internal/app"
	"quotebot/internal/chat"
	"quotebot/internal/config"
	"quotebot/internal/httpx"
	"quotebot/internal/sched"
	"quotebot/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger := app.NewLogger(cfg.Logging)
	if cfg.Chat.Token == "" {
		logger.Fatal().Msg("chat token not set; set TELEGRAM_BOT_TOKEN or chat.token")
	}

	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	var chatOpts []chat.Option
	if cfg.Chat.BaseURL != "" {
		chatOpts = append(chatOpts, chat.WithBaseURL(cfg.Chat.BaseURL))
	}
	sender := chat.NewClient(cfg.Chat.Token, hc, chatOpts...)

	b := app.NewBot(cfg, sender, logger)

	scheduler, err := sched.New(cfg.Digest.Timezone, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler setup failed")
	}
	for _, spec := range cfg.Digest.Schedules {
		if err := scheduler.Add(spec, "digest", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			b.Broadcast(ctx, cfg.Chat.ChatIDs)
		}); err != nil {
			logger.Fatal().Err(err).Str("spec", spec).Msg("bad digest schedule")
		}
	}
	if len(cfg.Chat.ChatIDs) == 0 {
		logger.Warn().Msg("no digest chat ids configured; scheduled digests will be no-ops")
	}
	scheduler.Start()

	web := &server.Server{Bot: b, SecretToken: cfg.Chat.SecretToken, Logger: logger}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           web.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
