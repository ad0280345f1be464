package stages

import (
	"context"

	"cropdata/internal/config"
	"cropdata/internal/wdi"
)

// Plan holds the configuration of every stage of one pipeline run.
type Plan struct {
	WDI   WDIConfig
	NASA  NASAConfig
	Merge MergeConfig
	Sink  SinkConfig
}

// NewPlan resolves file names against the data directories of cfg.
func NewPlan(cfg *config.Config) (Plan, error) {
	policy, err := wdi.ParseDuplicatePolicy(cfg.WDI.DuplicatePolicy)
	if err != nil {
		return Plan{}, err
	}

	wdiPath := cfg.RawPath(cfg.WDI.OutputFile)
	nasaPath := cfg.RawPath(cfg.NASA.OutputFile)
	mergedPath := cfg.ProcessedPath(cfg.Merge.OutputFile)

	plan := Plan{
		WDI: WDIConfig{
			URL:             cfg.WDI.URL,
			ZipPath:         cfg.RawPath(cfg.WDI.ZipFile),
			OutputPath:      wdiPath,
			MemberSuffix:    cfg.WDI.MemberSuffix,
			Catalog:         cfg.WDI.Indicators,
			Policy:          policy,
			ReplaceDownload: cfg.WDI.ReplaceDownload,
			Replace:         cfg.WDI.Replace,
			DeleteZip:       cfg.WDI.DeleteZip,
			Verify:          cfg.Cache.Verify,
		},
		NASA: NASAConfig{
			URL:          cfg.NASA.URL,
			OutputPath:   nasaPath,
			AnnualColumn: cfg.NASA.AnnualColumn,
			SkipLines:    cfg.NASA.SkipLines,
			Replace:      cfg.NASA.Replace,
			Verify:       cfg.Cache.Verify,
		},
		Merge: MergeConfig{
			WDIPath:    wdiPath,
			NASAPath:   nasaPath,
			OutputPath: mergedPath,
			Replace:    cfg.Merge.Replace,
			Verify:     cfg.Cache.Verify,
		},
		Sink: SinkConfig{
			Driver:    cfg.Sink.Driver,
			DSN:       cfg.Sink.DSN,
			Table:     cfg.Sink.Table,
			BatchSize: cfg.Sink.BatchSize,
		},
	}

	if cfg.Sink.ParquetFile != "" {
		plan.Sink.ParquetPath = cfg.ProcessedPath(cfg.Sink.ParquetFile)
	}

	return plan, nil
}

// RunAll runs the WDI, NASA and merge stages in order, then the sinks. When
// the merge is skipped the sinks read the merged CSV from disk.
func (r *Runner) RunAll(ctx context.Context, plan Plan) error {
	if err := r.RunWDI(ctx, plan.WDI); err != nil {
		return err
	}

	if err := r.RunNASA(ctx, plan.NASA); err != nil {
		return err
	}

	merged, err := r.RunMerge(ctx, plan.Merge)
	if err != nil {
		return err
	}

	if !plan.Sink.Enabled() {
		return nil
	}

	if merged == nil {
		if merged, err = LoadMerged(plan.Merge.OutputPath); err != nil {
			return err
		}
	}

	return r.RunSinks(ctx, plan.Sink, merged)
}
