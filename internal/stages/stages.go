// Package stages runs the download, extract, normalize, merge and sink steps.
// Every input and output path comes from the per-stage configuration.
package stages

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"cropdata/internal/archive"
	"cropdata/internal/cache"
	"cropdata/internal/fetch"
	"cropdata/internal/formatter"
	"cropdata/internal/logger"
	"cropdata/internal/merger"
	"cropdata/internal/models"
	"cropdata/internal/normalizer"
	"cropdata/internal/table"
	"cropdata/internal/wdi"
)

// Fetcher downloads source files.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url, path string) (fetch.Result, error)
}

// WDIConfig drives DownloadWDI, ExtractWDI and RunWDI.
type WDIConfig struct {
	URL             string
	ZipPath         string
	OutputPath      string
	MemberSuffix    string
	Catalog         models.Catalog
	Policy          wdi.DuplicatePolicy
	ReplaceDownload bool
	Replace         bool
	DeleteZip       bool
	Verify          bool
}

// NASAConfig drives RunNASA.
type NASAConfig struct {
	URL          string
	OutputPath   string
	AnnualColumn string
	SkipLines    int
	Replace      bool
	Verify       bool
}

// MergeConfig drives RunMerge.
type MergeConfig struct {
	WDIPath    string
	NASAPath   string
	OutputPath string
	Replace    bool
	Verify     bool
}

// Runner carries what every stage of one run shares.
type Runner struct {
	RunID       string
	PreviewRows int

	fetcher Fetcher
	log     *logger.Logger
	out     io.Writer
}

// NewRunner creates a runner with a fresh run id. Previews of each stage
// output are written to out; a nil out disables them.
func NewRunner(fetcher Fetcher, log *logger.Logger, out io.Writer) *Runner {
	if log == nil {
		log = logger.Discard()
	}

	if out == nil {
		out = io.Discard
	}

	runID := uuid.NewString()

	return &Runner{
		RunID:       runID,
		PreviewRows: 5,
		fetcher:     fetcher,
		log:         log.With("run_id", runID),
		out:         out,
	}
}

// Logger returns the run-scoped logger.
func (r *Runner) Logger() *logger.Logger {
	return r.log
}

func (r *Runner) guard(path string, replace, verify bool) cache.Guard {
	return cache.Guard{Path: path, Replace: replace, Verify: verify, RunID: r.RunID, Logger: r.log}
}

func (r *Runner) preview(title string, t *table.Table) {
	if r.PreviewRows <= 0 {
		return
	}

	fmt.Fprintf(r.out, "%s (%d rows)\n%s\n\n", title, t.Len(), formatter.Preview(t, r.PreviewRows))
}

// DownloadWDI fetches the WDI bulk archive unless it is already present.
func (r *Runner) DownloadWDI(ctx context.Context, cfg WDIConfig) error {
	_, err := r.guard(cfg.ZipPath, cfg.ReplaceDownload, cfg.Verify).Run(ctx, func(ctx context.Context) (int, error) {
		r.log.Info("Downloading WDI bulk archive", "url", cfg.URL)

		res, err := r.fetcher.Download(ctx, cfg.URL, cfg.ZipPath)
		if err != nil {
			return 0, err
		}

		r.log.Info("Saved WDI bulk archive", "path", cfg.ZipPath, "bytes", res.Bytes, "duration", res.Duration)

		return int(res.Bytes), nil
	})

	return err
}

// ExtractWDI reads the archive at cfg.ZipPath and writes the tidy indicator
// table. The archive is removed afterwards when cfg.DeleteZip is set.
func (r *Runner) ExtractWDI(ctx context.Context, cfg WDIConfig) error {
	_, err := r.guard(cfg.OutputPath, cfg.Replace, cfg.Verify).Run(ctx, func(context.Context) (int, error) {
		return r.extract(cfg)
	})

	return err
}

// RunWDI downloads the archive if needed and extracts it. Nothing is
// downloaded when the tidy output is present and not being replaced.
func (r *Runner) RunWDI(ctx context.Context, cfg WDIConfig) error {
	_, err := r.guard(cfg.OutputPath, cfg.Replace, cfg.Verify).Run(ctx, func(ctx context.Context) (int, error) {
		if err := r.DownloadWDI(ctx, cfg); err != nil {
			return 0, err
		}

		return r.extract(cfg)
	})
	if err != nil {
		return fmt.Errorf("wdi stage: %w", err)
	}

	return nil
}

func (r *Runner) extract(cfg WDIConfig) (int, error) {
	wide, member, err := archive.ReadDataTable(cfg.ZipPath, cfg.MemberSuffix)
	if err != nil {
		return 0, err
	}

	r.log.Info("Found data file inside archive", "member", member, "rows", wide.Len(), "columns", len(wide.Header))

	tidy, report, err := wdi.NewExtractor(cfg.Catalog, cfg.Policy).Extract(wide)
	r.logReport("WDI extraction", report)

	if err != nil {
		return 0, err
	}

	out := tidy.Table()
	if err := out.SaveFile(cfg.OutputPath); err != nil {
		return 0, err
	}

	r.log.Info("Extracted indicators", "path", cfg.OutputPath, "rows", out.Len(), "indicators", len(tidy.Indicators))
	r.preview(cfg.OutputPath, out)

	if cfg.DeleteZip {
		if err := cache.Remove(cfg.ZipPath); err != nil {
			return 0, err
		}

		r.log.Info("Deleted archive", "path", cfg.ZipPath)
	}

	return out.Len(), nil
}

// RunNASA downloads the GISTEMP table and writes the tidy anomaly series.
func (r *Runner) RunNASA(ctx context.Context, cfg NASAConfig) error {
	_, err := r.guard(cfg.OutputPath, cfg.Replace, cfg.Verify).Run(ctx, func(ctx context.Context) (int, error) {
		r.log.Info("Downloading GISTEMP temperature anomalies", "url", cfg.URL)

		body, err := r.fetcher.Fetch(ctx, cfg.URL)
		if err != nil {
			return 0, err
		}

		raw, err := table.ReadCSV(bytes.NewReader(body), table.ReadOptions{SkipLines: cfg.SkipLines})
		if err != nil {
			return 0, err
		}

		anom, report, err := normalizer.NewProcessor(cfg.AnnualColumn).Process(raw)
		r.logReport("GISTEMP normalization", report)

		if err != nil {
			return 0, err
		}

		out := anom.Table()
		if err := out.SaveFile(cfg.OutputPath); err != nil {
			return 0, err
		}

		r.log.Info("Saved temperature anomalies", "path", cfg.OutputPath, "rows", out.Len())
		r.preview(cfg.OutputPath, out)

		return out.Len(), nil
	})
	if err != nil {
		return fmt.Errorf("nasa stage: %w", err)
	}

	return nil
}

// RunMerge joins the two tidy tables and writes the merged table. It returns
// the merged table, or nil when the stage was skipped.
func (r *Runner) RunMerge(ctx context.Context, cfg MergeConfig) (*models.MergedTable, error) {
	var merged *models.MergedTable

	_, err := r.guard(cfg.OutputPath, cfg.Replace, cfg.Verify).Run(ctx, func(context.Context) (int, error) {
		ind, err := LoadIndicators(cfg.WDIPath)
		if err != nil {
			return 0, err
		}

		anom, err := LoadAnomalies(cfg.NASAPath)
		if err != nil {
			return 0, err
		}

		merged = merger.Merge(ind, anom)

		out := merged.Table()
		if err := out.SaveFile(cfg.OutputPath); err != nil {
			return 0, err
		}

		matched, unmatched := merger.Coverage(merged)
		r.log.Info("Merged datasets", "path", cfg.OutputPath, "rows", out.Len(),
			"with_anomaly", matched, "without_anomaly", unmatched)
		r.preview(cfg.OutputPath, out)

		return out.Len(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge stage: %w", err)
	}

	return merged, nil
}

func (r *Runner) logReport(stage string, report *models.Report) {
	if report == nil {
		return
	}

	r.log.Info(stage+" report", report.LogAttrs()...)

	for _, s := range report.Samples {
		r.log.Debug("Skipped", "stage", stage, "detail", s.String())
	}
}

// LoadIndicators reads a tidy indicator CSV.
func LoadIndicators(path string) (*models.IndicatorTable, error) {
	t, err := table.LoadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, err
	}

	ind, err := models.ParseIndicatorTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ind, nil
}

// LoadAnomalies reads a tidy anomaly CSV.
func LoadAnomalies(path string) (*models.AnomalyTable, error) {
	t, err := table.LoadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, err
	}

	anom, err := models.ParseAnomalyTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return anom, nil
}

// LoadMerged reads a merged CSV written by an earlier run.
func LoadMerged(path string) (*models.MergedTable, error) {
	t, err := table.LoadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, err
	}

	merged, err := models.ParseMergedTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return merged, nil
}
