package stages

import (
	"context"
	"fmt"

	"cropdata/internal/models"
	"cropdata/internal/sink"
)

// SinkConfig selects where the merged table goes besides its CSV. Both
// destinations are optional.
type SinkConfig struct {
	Driver      string
	DSN         string
	Table       string
	BatchSize   int
	ParquetPath string
}

// Enabled reports whether any destination is configured.
func (c SinkConfig) Enabled() bool {
	return c.Driver != "" || c.ParquetPath != ""
}

// RunSinks writes merged to every configured destination, tagged with the
// run id.
func (r *Runner) RunSinks(ctx context.Context, cfg SinkConfig, merged *models.MergedTable) error {
	if cfg.ParquetPath != "" {
		if err := sink.SaveParquet(cfg.ParquetPath, r.RunID, merged); err != nil {
			return fmt.Errorf("parquet sink: %w", err)
		}

		r.log.Info("Exported parquet", "path", cfg.ParquetPath, "rows", len(merged.Rows))
	}

	if cfg.Driver == "" {
		return nil
	}

	s, err := sink.OpenSQL(ctx, cfg.Driver, cfg.DSN, cfg.Table, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("sql sink: %w", err)
	}
	defer s.Close()

	n, err := s.Write(ctx, r.RunID, merged)
	if err != nil {
		return fmt.Errorf("sql sink: %w", err)
	}

	r.log.Info("Loaded merged table", "driver", cfg.Driver, "table", cfg.Table, "rows", n)

	return nil
}
