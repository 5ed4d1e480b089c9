package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmtroyer/auctioneye/config"
	"github.com/dmtroyer/auctioneye/export"
	"github.com/dmtroyer/auctioneye/notify"
	"github.com/dmtroyer/auctioneye/scraper"
	"github.com/dmtroyer/auctioneye/store"
	"github.com/dmtroyer/auctioneye/watcher"
)

func main() {
	cfg := config.FromEnv()

	baseURL := flag.String("base-url", cfg.BaseURL, "Auction site base URL")
	pages := flag.Int("pages", cfg.MaxPages, "Maximum browse pages to fetch per run")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (ignored when DATABASE_URL is set)")
	outFile := flag.String("out", cfg.OutputFile, "Append new items to this file (disabled when empty)")
	outFormat := flag.String("format", cfg.OutputFormat, "Export format: csv, jsonl, or dual")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	timeout := flag.Duration("timeout", cfg.Timeout, "Per-request timeout")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "Log the notification instead of emailing it")
	reset := flag.Bool("reset", false, "Clear every recorded id and exit")

	flag.Parse()

	cfg.BaseURL = *baseURL
	cfg.MaxPages = *pages
	cfg.DBPath = *dbPath
	cfg.OutputFile = *outFile
	cfg.OutputFormat = strings.ToLower(*outFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Timeout = *timeout
	cfg.Verbose = *verbose
	cfg.DryRun = *dryRun
	if *reset {
		// a reset run never sends mail, so SMTP credentials are not required
		cfg.DryRun = true
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, aborting after the current request")
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	if *reset {
		if err := st.Init(ctx); err != nil {
			slog.Error("init store", slog.Any("error", err))
			os.Exit(1)
		}
		if err := st.ClearAll(ctx); err != nil {
			slog.Error("clearing seen ids", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Println("Seen ids cleared.")
		return
	}

	slog.Info("starting watch",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Bool("dry_run", cfg.DryRun),
	)

	metrics := scraper.NewMetrics()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	fetcher, err := scraper.NewSiteFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}
	parser, err := scraper.NewParser(cfg.BaseURL, metrics)
	if err != nil {
		slog.Error("initialising parser", slog.Any("error", err))
		os.Exit(1)
	}
	source, err := scraper.NewWalker(fetcher, parser, cfg.MaxPages, cfg.DedupeCacheSize)
	if err != nil {
		slog.Error("initialising walker", slog.Any("error", err))
		os.Exit(1)
	}

	sender, err := newSender(cfg)
	if err != nil {
		slog.Error("initialising mail client", slog.Any("error", err))
		os.Exit(1)
	}
	notifier := notify.NewNotifier(sender)

	var sink watcher.ItemSink
	if cfg.OutputFile != "" {
		writer, err := export.New(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			slog.Error("creating export writer", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				slog.Error("close export writer", slog.Any("error", err))
			}
		}()
		sink = writer
	}

	startTime := time.Now()
	result, err := watcher.New(st, source, notifier, sink).Run(ctx)
	if err != nil {
		slog.Error("watch failed", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.SetNewItems(result.NewItems)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	slog.Info("watch complete",
		slog.Int("new_items", result.NewItems),
		slog.Int("total_items", result.TotalItems),
		slog.Duration("duration", time.Since(startTime)),
	)

	if cfg.DryRun {
		fmt.Printf("Dry run complete. New items: %d. Total items on page(s): %d.\n", result.NewItems, result.TotalItems)
	} else {
		fmt.Printf("Email sent. New items: %d. Total items on page(s): %d.\n", result.NewItems, result.TotalItems)
	}
}

// openStore picks the backend: Postgres when DATABASE_URL is set, the local
// SQLite file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.SeenStore, error) {
	if cfg.DatabaseURL != "" {
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return store.OpenSQLite(cfg.DBPath)
}

func newSender(cfg *config.Config) (notify.Sender, error) {
	if cfg.DryRun {
		return notify.LogSender{}, nil
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.EmailFrom,
		To:       cfg.EmailTo,
		Timeout:  cfg.Timeout,
	})
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
