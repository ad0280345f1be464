// Package config provides configuration management for the pipeline binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"cropdata/internal/models"
	"cropdata/internal/wdi"
)

// Environment variables that override the file.
const (
	EnvSinkDSN  = "CROPDATA_SINK_DSN"
	EnvLogLevel = "CROPDATA_LOG_LEVEL"
	EnvDataDir  = "CROPDATA_DATA_DIR"
)

// Configuration validation errors.
var (
	ErrMissingDataDir      = errors.New("paths.data_dir is required")
	ErrMissingURL          = errors.New("source url is required")
	ErrMissingFile         = errors.New("output file name is required")
	ErrInvalidSkipLines    = errors.New("nasa.skip_lines must be non-negative")
	ErrMissingAnnualColumn = errors.New("nasa.annual_column is required")
	ErrInvalidTimeout      = errors.New("fetch.timeout_sec must be at least 1")
	ErrInvalidMaxBytes     = errors.New("fetch.max_bytes must be at least 1")
	ErrInvalidSinkDriver   = errors.New("sink.driver must be one of: postgres, mysql, sqlite")
	ErrMissingSinkDSN      = errors.New("sink.dsn is required when sink.driver is set")
	ErrMissingSinkTable    = errors.New("sink.table is required when sink.driver is set")
	ErrInvalidBatchSize    = errors.New("sink.batch_size must be at least 1")
	ErrInvalidPreviewRows  = errors.New("logging.preview_rows must be non-negative")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidSchedule     = errors.New("schedule is not a valid cron expression")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Paths    PathsConfig   `yaml:"paths"`
	WDI      WDIConfig     `yaml:"wdi"`
	NASA     NASAConfig    `yaml:"nasa"`
	Merge    MergeConfig   `yaml:"merge"`
	Fetch    FetchConfig   `yaml:"fetch"`
	Cache    CacheConfig   `yaml:"cache"`
	Sink     SinkConfig    `yaml:"sink"`
	Logging  LoggingConfig `yaml:"logging"`
	Schedule string        `yaml:"schedule"`
}

// PathsConfig locates the raw and processed artifact directories.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
}

// WDIConfig drives the WDI download and extraction stage.
type WDIConfig struct {
	URL             string         `yaml:"url"`
	ZipFile         string         `yaml:"zip_file"`
	OutputFile      string         `yaml:"output_file"`
	MemberSuffix    string         `yaml:"member_suffix"`
	DuplicatePolicy string         `yaml:"duplicate_policy"`
	Indicators      models.Catalog `yaml:"indicators"`
	ReplaceDownload bool           `yaml:"replace_download"`
	Replace         bool           `yaml:"replace"`
	DeleteZip       bool           `yaml:"delete_zip"`
}

// NASAConfig drives the GISTEMP download and normalization stage.
type NASAConfig struct {
	URL          string `yaml:"url"`
	OutputFile   string `yaml:"output_file"`
	AnnualColumn string `yaml:"annual_column"`
	SkipLines    int    `yaml:"skip_lines"`
	Replace      bool   `yaml:"replace"`
}

// MergeConfig drives the merge stage.
type MergeConfig struct {
	OutputFile string `yaml:"output_file"`
	Replace    bool   `yaml:"replace"`
}

// FetchConfig bounds every download.
type FetchConfig struct {
	TimeoutSec int   `yaml:"timeout_sec"`
	MaxBytes   int64 `yaml:"max_bytes"`
}

// CacheConfig controls how present artifacts are trusted.
type CacheConfig struct {
	Verify bool `yaml:"verify"`
}

// SinkConfig selects optional destinations for the merged table.
type SinkConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	Table       string `yaml:"table"`
	BatchSize   int    `yaml:"batch_size"`
	ParquetFile string `yaml:"parquet_file"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	PreviewRows int    `yaml:"preview_rows"`
}

// DefaultConfig returns the configuration the pipeline runs with when no file
// is given.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:      "data",
			RawDir:       "raw",
			ProcessedDir: "processed",
		},
		WDI: WDIConfig{
			URL:             "http://databank.worldbank.org/data/download/WDI_CSV.zip",
			ZipFile:         "WDI_CSV.zip",
			OutputFile:      "wdi_data.csv",
			MemberSuffix:    "CSV.CSV",
			DuplicatePolicy: string(wdi.PolicyFirst),
			Indicators:      models.DefaultCatalog(),
			Replace:         true,
			DeleteZip:       true,
		},
		NASA: NASAConfig{
			URL:          "https://data.giss.nasa.gov/gistemp/tabledata_v4/GLB.Ts+dSST.csv",
			OutputFile:   "nasa_data.csv",
			AnnualColumn: "J-D",
			SkipLines:    1,
		},
		Merge: MergeConfig{
			OutputFile: "wdi_nasa.csv",
			Replace:    true,
		},
		Fetch: FetchConfig{
			TimeoutSec: 600,
			MaxBytes:   1 << 30,
		},
		Sink: SinkConfig{
			Table:     "wdi_nasa",
			BatchSize: 500,
		},
		Logging: LoggingConfig{
			Level:       "info",
			PreviewRows: 5,
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Resolve loads path, or the defaults when path is empty, applies the .env
// files and environment overrides and validates the result.
func Resolve(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads the given .env files (missing ones are ignored) and lets the
// process environment override the DSN, log level and data directory.
// Variables already set in the environment win over .env values.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvSinkDSN); v != "" {
		c.Sink.DSN = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		c.Paths.DataDir = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return ErrMissingDataDir
	}

	if c.WDI.URL == "" {
		return fmt.Errorf("%w: wdi.url", ErrMissingURL)
	}

	if c.NASA.URL == "" {
		return fmt.Errorf("%w: nasa.url", ErrMissingURL)
	}

	files := []struct{ key, name string }{
		{"wdi.zip_file", c.WDI.ZipFile},
		{"wdi.output_file", c.WDI.OutputFile},
		{"nasa.output_file", c.NASA.OutputFile},
		{"merge.output_file", c.Merge.OutputFile},
	}

	for _, f := range files {
		if f.name == "" {
			return fmt.Errorf("%w: %s", ErrMissingFile, f.key)
		}
	}

	if err := c.WDI.Indicators.Validate(); err != nil {
		return fmt.Errorf("wdi.indicators: %w", err)
	}

	if _, err := wdi.ParseDuplicatePolicy(c.WDI.DuplicatePolicy); err != nil {
		return fmt.Errorf("wdi.duplicate_policy: %w", err)
	}

	if c.NASA.SkipLines < 0 {
		return ErrInvalidSkipLines
	}

	if c.NASA.AnnualColumn == "" {
		return ErrMissingAnnualColumn
	}

	if c.Fetch.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Fetch.MaxBytes < 1 {
		return ErrInvalidMaxBytes
	}

	if err := c.Sink.validate(); err != nil {
		return err
	}

	if c.Logging.PreviewRows < 0 {
		return ErrInvalidPreviewRows
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
		}
	}

	return nil
}

func (s *SinkConfig) validate() error {
	if s.Driver == "" {
		return nil
	}

	switch s.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSinkDriver, s.Driver)
	}

	if s.DSN == "" {
		return ErrMissingSinkDSN
	}

	if s.Table == "" {
		return ErrMissingSinkTable
	}

	if s.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	return nil
}

// RawPath returns the path of a file in the raw artifact directory.
func (c *Config) RawPath(name string) string {
	return filepath.Join(c.Paths.DataDir, c.Paths.RawDir, name)
}

// ProcessedPath returns the path of a file in the processed artifact directory.
func (c *Config) ProcessedPath(name string) string {
	return filepath.Join(c.Paths.DataDir, c.Paths.ProcessedDir, name)
}

// GetTimeout returns the download timeout.
func (f *FetchConfig) GetTimeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, Indicators: %d, Sink: %q, Schedule: %q}",
		c.Paths.DataDir,
		len(c.WDI.Indicators),
		c.Sink.Driver,
		c.Schedule,
	)
}
