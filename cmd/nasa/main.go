// Package main provides the nasa command that downloads the GISTEMP global
// temperature table and normalizes it to a (year, temp_anomaly) CSV.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"cropdata/internal/config"
	"cropdata/internal/fetch"
	"cropdata/internal/logger"
	"cropdata/internal/stages"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults are used when empty)")
	envFile := flag.String("env", ".env", "Optional .env file with CROPDATA_* overrides")
	url := flag.String("url", "", "GISTEMP CSV URL override")
	outputPath := flag.String("output", "", "Tidy CSV output path override")
	column := flag.String("column", "", "Annual mean column override (e.g. J-D, D-N)")
	flag.Bool("replace", false, "Rebuild even if the output exists (default from nasa.replace)")

	flag.Parse()

	log := logger.NewLogger("info")

	cfg, err := config.Resolve(*configPath, *envFile)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log.SetLevel(cfg.Logging.Level)

	plan, err := stages.NewPlan(cfg)
	if err != nil {
		log.Error("Failed to build plan", "error", err)
		os.Exit(1)
	}

	nasaCfg := plan.NASA
	config.OverrideBool(flag.CommandLine, "replace", &nasaCfg.Replace)

	if *url != "" {
		nasaCfg.URL = *url
	}

	if *outputPath != "" {
		nasaCfg.OutputPath = *outputPath
	}

	if *column != "" {
		nasaCfg.AnnualColumn = *column
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := stages.NewRunner(fetch.NewDownloader(cfg.Fetch.GetTimeout(), cfg.Fetch.MaxBytes), log, os.Stdout)
	r.PreviewRows = cfg.Logging.PreviewRows

	if err := r.RunNASA(ctx, nasaCfg); err != nil {
		r.Logger().Error("NASA stage failed", "error", err)
		os.Exit(1)
	}

	r.Logger().Info("NASA stage complete", "output", nasaCfg.OutputPath)
}
