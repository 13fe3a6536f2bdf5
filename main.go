// Package main implements a Telegram bot that tracks Steam game prices:
// users build a personal watchlist of store pages and the bot reports
// current prices, discounts, and free-to-play status by parsing the
// storefront markup.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"steamwatch/bot"
	"steamwatch/scraper"
	"steamwatch/session"
	"steamwatch/store"
	"steamwatch/telegram"
	"steamwatch/watch"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultFetchTimeout  = 15 * time.Second
	defaultPollTimeout   = 10 * time.Second
	defaultWatchSchedule = "@every 6h"
	watchSweepTimeout    = 10 * time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using process environment")
	}

	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		logger.Error("TELEGRAM_TOKEN environment variable required")
		os.Exit(1)
	}

	fetchTimeout := defaultFetchTimeout
	if raw := os.Getenv("FETCH_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("Invalid FETCH_TIMEOUT", "value", raw, "error", err)
			os.Exit(1)
		}
		fetchTimeout = d
	}

	schedule := os.Getenv("WATCH_SCHEDULE")
	if schedule == "" {
		schedule = defaultWatchSchedule
	}

	sessions := session.NewManager()
	watchlist := store.New(logger)
	pages := scraper.New(&http.Client{Timeout: fetchTimeout}, logger)

	orchestrator := bot.New(&bot.Config{
		Fetcher:  pages,
		List:     watchlist,
		Sessions: sessions,
		Logger:   logger,
	})

	transport, err := telegram.New(token, defaultPollTimeout, orchestrator, logger)
	if err != nil {
		logger.Error("Failed to initialize Telegram transport", "error", err)
		os.Exit(1)
	}

	monitor := watch.New(pages, watchlist, transport, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), watchSweepTimeout)
		defer cancel()
		if err := monitor.CheckAll(ctx); err != nil {
			logger.Error("Price sweep failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid WATCH_SCHEDULE", "schedule", schedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("Bot starting", "watch_schedule", schedule, "fetch_timeout", fetchTimeout.String())
	transport.Start()
}
