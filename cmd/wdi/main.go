// Package main provides the wdi command that downloads the World Bank WDI bulk
// archive and extracts the configured indicators into a tidy CSV.
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
	zipPath := flag.String("zip", "", "Archive path override; an existing archive is used as is")
	outputPath := flag.String("output", "", "Tidy CSV output path override")
	flag.Bool("replace", false, "Re-extract even if the output exists (default from wdi.replace)")
	keepZip := flag.Bool("keep-zip", false, "Keep the archive after extraction")
	downloadOnly := flag.Bool("download-only", false, "Only download the archive")

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

	wdiCfg := plan.WDI
	config.OverrideBool(flag.CommandLine, "replace", &wdiCfg.Replace)

	if *zipPath != "" {
		wdiCfg.ZipPath = *zipPath
	}

	if *outputPath != "" {
		wdiCfg.OutputPath = *outputPath
	}

	if *keepZip {
		wdiCfg.DeleteZip = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := stages.NewRunner(fetch.NewDownloader(cfg.Fetch.GetTimeout(), cfg.Fetch.MaxBytes), log, os.Stdout)
	r.PreviewRows = cfg.Logging.PreviewRows

	if *downloadOnly {
		err = r.DownloadWDI(ctx, wdiCfg)
	} else {
		err = r.RunWDI(ctx, wdiCfg)
	}

	if err != nil {
		r.Logger().Error("WDI stage failed", "error", err)
		os.Exit(1)
	}

	r.Logger().Info("WDI stage complete", "output", wdiCfg.OutputPath)
}
