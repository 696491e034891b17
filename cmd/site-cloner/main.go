// Package main wires together the site cloner service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-cloner/internal/api"
	"github.com/JakeFAU/site-cloner/internal/app"
	"github.com/JakeFAU/site-cloner/internal/assets"
	"github.com/JakeFAU/site-cloner/internal/clock/system"
	"github.com/JakeFAU/site-cloner/internal/config"
	"github.com/JakeFAU/site-cloner/internal/dispatcher"
	"github.com/JakeFAU/site-cloner/internal/hash/sha256"
	"github.com/JakeFAU/site-cloner/internal/id/uuid"
	"github.com/JakeFAU/site-cloner/internal/layout"
	"github.com/JakeFAU/site-cloner/internal/logging"
	"github.com/JakeFAU/site-cloner/internal/metrics"
	"github.com/JakeFAU/site-cloner/internal/progress"
	"github.com/JakeFAU/site-cloner/internal/progress/sinks"
	"github.com/JakeFAU/site-cloner/internal/scraper"
	"github.com/JakeFAU/site-cloner/internal/synth"
	"github.com/JakeFAU/site-cloner/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg, logger.Named("app"))
	if err != nil {
		logger.Error("service init failed", zap.Error(err))
		os.Exit(1)
	}
	defer services.Close()

	hasher := sha256.New()
	clock := system.New()
	idGen := uuid.New()

	scrape, err := scraper.New(scraper.Config{
		NavigationTimeout: cfg.NavTimeout(),
		SettleWait:        cfg.SettleWait(),
		ViewportWidth:     cfg.Scrape.ViewportWidth,
		ViewportHeight:    cfg.Scrape.ViewportHeight,
		MaxNodes:          cfg.Scrape.MaxNodes,
		UserAgent:         cfg.Scrape.UserAgent,
		DomainQPS:         cfg.Scrape.DomainQPS,
		MaxParallel:       cfg.Worker.Concurrency,
	}, logger.Named("scraper"))
	if err != nil {
		logger.Error("scraper init failed", zap.Error(err))
		os.Exit(1)
	}

	summarizer := layout.New(layout.Config{MaxBlocks: cfg.Layout.MaxBlocks})
	synthClient := synth.NewClient(synth.ClientConfig{
		BaseURL:   cfg.Synth.BaseURL,
		APIKey:    cfg.Synth.APIKey,
		Model:     cfg.Synth.Model,
		MaxTokens: cfg.Synth.MaxTokens,
		Timeout:   cfg.SynthTimeout(),
	})
	synthesizer := synth.New(synthClient, synth.Config{
		MaxAttempts:    cfg.Synth.MaxAttempts,
		BackoffInitial: time.Duration(cfg.Synth.BackoffInitialMs) * time.Millisecond,
		BackoffMax:     time.Duration(cfg.Synth.BackoffMaxMs) * time.Millisecond,
	}, logger.Named("synth"))
	cssFetcher := assets.NewCSSFetcher(assets.Config{
		UserAgent: cfg.Scrape.UserAgent,
	}, logger.Named("assets"))

	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		sinks.NewMetricsSink(),
	)

	workerCfg := worker.Config{
		ArtifactPrefix: cfg.Artifacts.Prefix,
		FetchCSS:       cfg.Synth.FetchCSS,
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		workers = append(workers, worker.New(
			services.Queue(),
			services.JobStore(),
			services.Artifacts(),
			services.Publisher(),
			hasher,
			clock,
			scrape,
			summarizer,
			synthesizer,
			cssFetcher,
			hub,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(services.Queue(), workers)

	apiServer := api.NewServer(
		services.JobStore(),
		services.Artifacts(),
		dispatch,
		idGen,
		clock,
		cfg,
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
