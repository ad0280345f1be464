// Package main provides the pipeline command that downloads, extracts, normalizes,
// merges and optionally loads the crop dataset, once or on a cron schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropdata/internal/config"
	"cropdata/internal/fetch"
	"cropdata/internal/logger"
	"cropdata/internal/stages"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults are used when empty)")
	envFile := flag.String("env", ".env", "Optional .env file with CROPDATA_* overrides")
	schedule := flag.String("schedule", "", "Cron expression; run on this schedule instead of once")
	replaceAll := flag.Bool("replace", false, "Rebuild every artifact even if present")
	parquet := flag.String("parquet", "", "Also export the merged table to this parquet file name")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")

	flag.Parse()

	log := logger.NewLogger("info")

	cfg, err := config.Resolve(*configPath, *envFile)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if *schedule != "" {
		cfg.Schedule = *schedule
	}

	if *parquet != "" {
		cfg.Sink.ParquetFile = *parquet
	}

	if *replaceAll {
		cfg.WDI.ReplaceDownload = true
		cfg.WDI.Replace = true
		cfg.NASA.Replace = true
		cfg.Merge.Replace = true
	}

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log.SetLevel(cfg.Logging.Level)
	log.Info("Starting crop data pipeline", "config", cfg.String())

	plan, err := stages.NewPlan(cfg)
	if err != nil {
		log.Error("Failed to build plan", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	downloader := fetch.NewDownloader(cfg.Fetch.GetTimeout(), cfg.Fetch.MaxBytes)

	run := func() error {
		start := time.Now()

		r := stages.NewRunner(downloader, log, os.Stdout)
		r.PreviewRows = cfg.Logging.PreviewRows

		if err := r.RunAll(ctx, plan); err != nil {
			r.Logger().Error("Pipeline failed", "error", err, "duration", time.Since(start))

			return err
		}

		r.Logger().Info("Pipeline complete", "output", plan.Merge.OutputPath, "duration", time.Since(start))

		return nil
	}

	if cfg.Schedule == "" {
		if err := run(); err != nil {
			os.Exit(1)
		}

		return
	}

	// A run still in progress when the next tick fires makes that tick a no-op.
	c, err := stages.NewScheduler(cfg.Schedule, log, func() { _ = run() })
	if err != nil {
		log.Error("Invalid schedule", "schedule", cfg.Schedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	log.Info(fmt.Sprintf("Scheduled pipeline with %q, waiting for signal", cfg.Schedule))

	<-ctx.Done()

	log.Info("Stopping scheduler")
	<-c.Stop().Done()
}
