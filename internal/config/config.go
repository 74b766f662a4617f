package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

// Config is the top-level configuration struct for bugmatrix.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Repository   string         `mapstructure:"repository"`
	Variant      string         `mapstructure:"variant"`
	BugLabel     string         `mapstructure:"bug_label"`
	LookbackDays int            `mapstructure:"lookback_days"`
	MaxIssues    int            `mapstructure:"max_issues"`
	Output       OutputConfig   `mapstructure:"output"`
	Pipeline     PipelineConfig `mapstructure:"pipeline"`
	Metrics      MetricsConfig  `mapstructure:"metrics"`
	GH           GHConfig       `mapstructure:"gh"`
	Rules        RulesConfig    `mapstructure:"rules"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Markdown string `mapstructure:"markdown"`
	XLSX     string `mapstructure:"xlsx"`
	Chart    bool   `mapstructure:"chart"`
}

// PipelineConfig holds pipeline resource knobs.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// MetricsConfig holds run-metrics export settings.
type MetricsConfig struct {
	// Textfile is a Prometheus textfile path; empty disables the export.
	Textfile string `mapstructure:"textfile"`
}

// GHConfig holds gh CLI settings.
type GHConfig struct {
	Binary string `mapstructure:"binary"`
}

// RulesConfig points at an alternative heuristic rule file.
type RulesConfig struct {
	File string `mapstructure:"file"`
}

// Sentinel errors for configuration validation.
var (
	// ErrMissingRepository indicates no repository was configured.
	ErrMissingRepository = errors.New("repository must be set (owner/name)")
	// ErrInvalidVariant indicates an unknown report variant.
	ErrInvalidVariant = errors.New("variant must be one of all, open, closed")
	// ErrMissingBugLabel indicates the bug label is empty.
	ErrMissingBugLabel = errors.New("bug_label must be set")
	// ErrInvalidLookback indicates the lookback window is not positive.
	ErrInvalidLookback = errors.New("lookback_days must be positive")
	// ErrInvalidMaxIssues indicates the retrieval limit is not positive.
	ErrInvalidMaxIssues = errors.New("max_issues must be positive")
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("pipeline.workers must be non-negative")
	// ErrMissingOutputDir indicates the output directory is empty.
	ErrMissingOutputDir = errors.New("output.dir must be set")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	scopeErr := c.validateScope()
	if scopeErr != nil {
		return scopeErr
	}

	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}

	return nil
}

func (c *Config) validateScope() error {
	if c.Repository == "" {
		return ErrMissingRepository
	}

	_, variantErr := matrix.ParseVariant(c.Variant)
	if variantErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVariant, variantErr)
	}

	if c.BugLabel == "" {
		return ErrMissingBugLabel
	}

	if c.LookbackDays <= 0 {
		return ErrInvalidLookback
	}

	if c.MaxIssues <= 0 {
		return ErrInvalidMaxIssues
	}

	return nil
}

// MatrixVariant returns the parsed variant; call after Validate.
func (c *Config) MatrixVariant() matrix.Variant {
	v, err := matrix.ParseVariant(c.Variant)
	if err != nil {
		return matrix.VariantAll
	}

	return v
}

// Lookback returns the lookback window as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// Scope builds the matrix scope anchored at now.
func (c *Config) Scope(now time.Time) matrix.Scope {
	return matrix.Scope{
		Variant:  c.MatrixVariant(),
		BugLabel: c.BugLabel,
		Lookback: c.Lookback(),
		Now:      now,
	}
}
