package types

import (
	"fmt"
	"time"
)

// MatchMode selects how ClassifyState decides that a directory is already
// converted.
type MatchMode string

const (
	// MatchStems requires every source stem to have a .webp counterpart.
	MatchStems MatchMode = "stems"

	// MatchCount compares only the number of source images against the
	// number of .webp outputs. Kept for compatibility with directories
	// organized by older versions of the tool.
	MatchCount MatchMode = "count"
)

// ReportFormat selects how run and status reports are rendered.
type ReportFormat string

const (
	ReportTable ReportFormat = "table"
	ReportJSON  ReportFormat = "json"
	ReportYAML  ReportFormat = "yaml"
	ReportNone  ReportFormat = "none"
)

const (
	DefaultQuality   = 80
	DefaultOutputDir = "webp"
	DefaultEncoder   = "cwebp"
)

// ConvertConfig holds settings for the convert command.
type ConvertConfig struct {
	// Quality is the cwebp -q value, 0 to 100 (default 80).
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`

	// OutputDir is the name of the subdirectory that receives .webp files.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Encoder is the encoder binary name or path (default "cwebp").
	Encoder string `json:"encoder" yaml:"encoder" mapstructure:"encoder"`

	// Match selects the already-converted check: stems or count.
	Match MatchMode `json:"match" yaml:"match" mapstructure:"match"`

	// Timeout bounds a single encoder invocation. Zero means no limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// DryRun plans the run without converting or moving anything.
	DryRun bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`
}

// HistoryConfig holds settings for the run history ledger.
type HistoryConfig struct {
	// Enabled controls whether runs are recorded.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file. Empty selects the default under
	// the user data directory.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups all settings. It is populated from viper (flags, env,
// config file) in cmd/webpify and passed down explicitly.
type Config struct {
	Convert ConvertConfig `json:"convert" yaml:"convert" mapstructure:"convert"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	Verbose bool          `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Convert: ConvertConfig{
			Quality:   DefaultQuality,
			OutputDir: DefaultOutputDir,
			Encoder:   DefaultEncoder,
			Match:     MatchStems,
		},
		History: HistoryConfig{Enabled: true},
	}
}

// Validate checks value ranges and enums.
func (c Config) Validate() error {
	if c.Convert.Quality < 0 || c.Convert.Quality > 100 {
		return fmt.Errorf("quality must be between 0 and 100, got %d", c.Convert.Quality)
	}
	if c.Convert.OutputDir == "" {
		return fmt.Errorf("output directory name must not be empty")
	}
	if c.Convert.Encoder == "" {
		return fmt.Errorf("encoder must not be empty")
	}
	switch c.Convert.Match {
	case MatchStems, MatchCount:
	default:
		return fmt.Errorf("unknown match mode %q (want %q or %q)", c.Convert.Match, MatchStems, MatchCount)
	}
	if c.Convert.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// ParseReportFormat validates a report format name.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(s); f {
	case ReportTable, ReportJSON, ReportYAML, ReportNone:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want table, json, yaml, or none)", s)
}
