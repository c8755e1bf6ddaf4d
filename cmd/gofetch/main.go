package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/use-agent/gofetch/api"
	"github.com/use-agent/gofetch/browser"
	"github.com/use-agent/gofetch/cache"
	"github.com/use-agent/gofetch/cleaner"
	"github.com/use-agent/gofetch/config"
	"github.com/use-agent/gofetch/engine"
	"github.com/use-agent/gofetch/logging"
	"github.com/use-agent/gofetch/store"
	"github.com/use-agent/gofetch/uploader"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	hub, closeLogs, err := logging.Setup(cfg.Log.Level, cfg.Paths.LogsDir)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLogs()

	slog.Info("gofetch starting",
		"adminPort", cfg.Server.AdminPort,
		"crawlerPort", cfg.Server.CrawlerPort,
		"poolSlots", cfg.Pool.Slots,
	)

	runtimeStore, err := config.NewRuntimeStore(cfg.Paths.DataDir, cfg.Runtime)
	if err != nil {
		return fmt.Errorf("init runtime config: %w", err)
	}
	runtime := runtimeStore.Runtime

	profiles, err := store.Open(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer profiles.Close()

	pool := browser.NewPool(cfg.Pool, runtime)
	defer pool.Disconnect()

	// Warm the pool in the background so a slow or absent remote browser
	// never delays boot; slots also connect lazily on first use.
	if runtime().BrowserlessURL != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := pool.Connect(ctx); err != nil {
				slog.Warn("browser pool warm-up incomplete", "error", err)
			}
		}()
	}

	scheduler := engine.NewScheduler([]engine.Engine{
		engine.NewFastEngine(cfg.Fetch),
		engine.NewBrowserEngine(pool),
		engine.NewStealthEngine(cfg.Fetch, runtime),
		engine.NewUnblockEngine(runtime),
	}, profiles, runtime)

	advanced := engine.NewAdvancedFetcher(pool, uploader.New(), cfg.Fetch)

	deps := api.Deps{
		Cfg:          cfg,
		RuntimeStore: runtimeStore,
		Pool:         pool,
		Profiles:     profiles,
		Hub:          hub,
		Fetcher:      scheduler,
		Advanced:     advanced,
		Cleaner:      cleaner.New(),
		Cache:        cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries),
		Active:       &atomic.Int64{},
		StartTime:    time.Now(),
	}

	crawlerSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.CrawlerPort),
		Handler: api.NewCrawlerRouter(deps),
	}
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.AdminPort),
		Handler: api.NewAdminRouter(deps),
	}

	serveErr := make(chan error, 2)
	go func() {
		slog.Info("crawler API listening", "addr", crawlerSrv.Addr)
		if err := crawlerSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("crawler server: %w", err)
		}
	}()
	go func() {
		slog.Info("admin API listening", "addr", adminSrv.Addr)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("admin server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		return err
	}

	// Give in-flight requests 5 seconds to complete on both servers.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := crawlerSrv.Shutdown(ctx); err != nil {
		slog.Error("crawler server forced shutdown", "error", err)
	}
	if err := adminSrv.Shutdown(ctx); err != nil {
		slog.Error("admin server forced shutdown", "error", err)
	}

	// pool.Disconnect and profiles.Close run via defer.
	slog.Info("gofetch stopped")
	return nil
}
