package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nervelabs/nerve/internal/apiserver"
	"github.com/nervelabs/nerve/internal/config"
	"github.com/nervelabs/nerve/internal/engine"
	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/scraper"
	"github.com/nervelabs/nerve/internal/state"
	"github.com/nervelabs/nerve/internal/stats"
	"github.com/nervelabs/nerve/internal/store"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to config file")
	flag.Parse()

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			slog.Error("failed to load config file, falling back to defaults/env",
				"path", configFile, "error", err)
		} else {
			cfg = loaded
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting NERVE engine",
		"addr", cfg.ListenAddr(), "scrape_interval", cfg.Scraper.Interval)

	// SQLite price cache (nil-safe: on failure everything runs in-memory).
	var priceCache *store.PriceCache
	if cfg.Database.Path != "" {
		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			logger.Warn("price database open failed, continuing in-memory",
				"path", cfg.Database.Path, "error", err)
		} else {
			defer db.Close()
			priceCache = store.NewPriceCache(db.RawDB())
			logger.Info("price database opened", "path", cfg.Database.Path)
		}
	}

	marketState := state.New()
	bus := events.NewBus()
	statsStore := stats.Open(cfg.Stats.Path, logger)

	scr := scraper.New(marketState, bus, priceCache, scraper.Options{
		Interval:    cfg.Scraper.Interval,
		VisionPaths: cfg.Scraper.VisionPaths,
		Logger:      logger,
	})
	scr.WarmStart()

	eng := engine.New(marketState, bus, statsStore, engine.Options{
		MinPriceReductionPct: cfg.TimeShift.MinPriceReductionPct,
		Logger:               logger,
	})

	srv := apiserver.NewServer(cfg, marketState, eng, statsStore, bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := scr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scraper stopped", "error", err)
		}
	}()

	go func() {
		logger.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
