// Package main provides the merge command that left-joins the tidy WDI and
// GISTEMP tables on year and optionally loads the result into a sink.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"cropdata/internal/config"
	"cropdata/internal/logger"
	"cropdata/internal/stages"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults are used when empty)")
	envFile := flag.String("env", ".env", "Optional .env file with CROPDATA_* overrides")
	wdiPath := flag.String("wdi", "", "Tidy WDI CSV path override")
	nasaPath := flag.String("nasa", "", "Tidy NASA CSV path override")
	outputPath := flag.String("output", "", "Merged CSV output path override")
	parquetPath := flag.String("parquet", "", "Also write the merged table to this parquet path")
	flag.Bool("replace", false, "Rebuild even if the output exists (default from merge.replace)")

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

	mergeCfg := plan.Merge
	config.OverrideBool(flag.CommandLine, "replace", &mergeCfg.Replace)

	if *wdiPath != "" {
		mergeCfg.WDIPath = *wdiPath
	}

	if *nasaPath != "" {
		mergeCfg.NASAPath = *nasaPath
	}

	if *outputPath != "" {
		mergeCfg.OutputPath = *outputPath
	}

	sinkCfg := plan.Sink
	if *parquetPath != "" {
		sinkCfg.ParquetPath = *parquetPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The merge stage never downloads.
	r := stages.NewRunner(nil, log, os.Stdout)
	r.PreviewRows = cfg.Logging.PreviewRows

	merged, err := r.RunMerge(ctx, mergeCfg)
	if err != nil {
		r.Logger().Error("Merge stage failed", "error", err)
		os.Exit(1)
	}

	if sinkCfg.Enabled() {
		if merged == nil {
			if merged, err = stages.LoadMerged(mergeCfg.OutputPath); err != nil {
				r.Logger().Error("Failed to load merged table", "error", err)
				os.Exit(1)
			}
		}

		if err := r.RunSinks(ctx, sinkCfg, merged); err != nil {
			r.Logger().Error("Sink failed", "error", err)
			os.Exit(1)
		}
	}

	r.Logger().Info("Merge stage complete", "output", mergeCfg.OutputPath)
}
