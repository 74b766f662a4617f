// Package commands implements CLI command handlers for bugmatrix.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/bugmatrix/internal/config"
	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
	"github.com/Sumatoshi-tech/bugmatrix/internal/observability"
	"github.com/Sumatoshi-tech/bugmatrix/internal/report"
	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
	"github.com/Sumatoshi-tech/bugmatrix/internal/source"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/textutil"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/version"
)

// sourceFactory picks the issue source for a run.
type sourceFactory func(cfg *config.Config, input string, logger *slog.Logger) source.Source

// GenerateCommand holds flags and dependencies of the generate command.
type GenerateCommand struct {
	configPath string
	input      string
	noColor    bool
	verbose    bool
	overrides  config.Overrides

	sourceFn sourceFactory
	now      func() time.Time
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return newGenerateCommandWithDeps(defaultSource, time.Now)
}

func newGenerateCommandWithDeps(sourceFn sourceFactory, now func() time.Time) *cobra.Command {
	gc := &GenerateCommand{sourceFn: sourceFn, now: now}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the bug-to-test matrix",
		Long: `Fetch bug reports with the gh CLI (or from --input), filter them to the
configured scope, classify them and write the Markdown and XLSX matrix.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return gc.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&gc.configPath, "config", "", "config file (default: .bugmatrix.yaml in CWD or $HOME)")
	flags.StringVar(&gc.overrides.Repository, "repo", "", "repository in owner/name form")
	flags.StringVar(&gc.overrides.Variant, "variant", "", "report variant: all, open or closed")
	flags.StringVar(&gc.overrides.BugLabel, "bug-label", "", "label marking bug reports")
	flags.IntVar(&gc.overrides.LookbackDays, "lookback-days", 0, "creation-date window in days")
	flags.IntVar(&gc.overrides.MaxIssues, "limit", 0, "maximum issues requested from gh")
	flags.StringVar(&gc.input, "input", "", "read a saved gh issue list --json payload instead of calling gh")
	flags.StringVar(&gc.overrides.OutputDir, "output-dir", "", "directory for the generated artifacts")
	flags.IntVar(&gc.overrides.Workers, "workers", 0, "parallel row builders (0 or 1: sequential)")
	flags.BoolVar(&gc.overrides.Chart, "chart", false, "also write the HTML distribution charts")
	flags.StringVar(&gc.overrides.RulesFile, "rules", "", "alternative heuristic rule file")
	flags.StringVar(&gc.overrides.GHBinary, "gh", "", "path to the gh binary")
	flags.BoolVar(&gc.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&gc.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func (gc *GenerateCommand) run(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(gc.configPath, &gc.overrides)
	if err != nil {
		return err
	}

	if gc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	obsCfg := observability.ConfigFromEnv()
	obsCfg.Run.Mode = observability.ModeCLI
	obsCfg.Run.Version = version.Version
	obsCfg.Run.Repository = cfg.Repository
	obsCfg.Run.Variant = cfg.Variant
	obsCfg.LogOutput = cmd.ErrOrStderr()

	if gc.verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	ruleSet, err := loadRules(cfg.Rules.File)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = source.ExportBinary(cfg.GH.Binary)
	if err != nil {
		return err
	}

	issues, err := gc.sourceFn(cfg, gc.input, providers.Logger).Fetch(ctx)
	if err != nil {
		return err
	}

	now := gc.now().UTC()

	result, err := matrix.Generate(ctx, issues, matrix.Options{
		Scope:   cfg.Scope(now),
		Rules:   ruleSet,
		Workers: cfg.Pipeline.Workers,
		Tracer:  providers.Tracer,
		Logger:  providers.Logger,
	})
	if err != nil {
		return err
	}

	meta := report.Meta{
		GeneratedAt:  now,
		Repository:   cfg.Repository,
		Variant:      cfg.MatrixVariant(),
		BugLabel:     cfg.BugLabel,
		LookbackDays: cfg.LookbackDays,
	}

	artifacts, err := newWriter(cfg).Write(meta, result.Rows)
	if err != nil {
		return err
	}

	providers.Logger.Info("matrix written", "rows", len(result.Rows), "artifacts", len(artifacts))

	run := newRun(meta.Variant, result)

	metricsErr := recordRun(ctx, providers.Meter, run)
	if metricsErr != nil {
		return metricsErr
	}

	if cfg.Metrics.Textfile != "" {
		metricsErr = writeRunMetrics(ctx, cfg.Metrics.Textfile, run)
		if metricsErr != nil {
			return metricsErr
		}
	}

	report.PrintSummary(cmd.OutOrStdout(), meta, result.Rows, artifacts)

	return nil
}

func defaultSource(cfg *config.Config, input string, logger *slog.Logger) source.Source {
	if input != "" {
		return &source.FileSource{Path: input, Logger: logger}
	}

	variant := cfg.MatrixVariant()

	return &source.GHSource{
		Repository: cfg.Repository,
		State:      variant.GHState(),
		Limit:      cfg.MaxIssues,
		Classified: variant.Classified(),
		Logger:     logger,
	}
}

func loadRules(path string) (*rules.Set, error) {
	if path == "" {
		return rules.Default(), nil
	}

	return rules.LoadFile(path)
}

func newWriter(cfg *config.Config) *report.Writer {
	base := report.BaseName(cfg.Repository, cfg.MatrixVariant(), cfg.LookbackDays)

	w := &report.Writer{
		Dir:      cfg.Output.Dir,
		Markdown: textutil.FirstNonEmpty(cfg.Output.Markdown, base+".md"),
		XLSX:     textutil.FirstNonEmpty(cfg.Output.XLSX, base+".xlsx"),
	}

	if cfg.Output.Chart {
		w.Chart = base + ".html"
	}

	return w
}

// ErrMetricsExport indicates the run metrics could not be exported.
var ErrMetricsExport = errors.New("export run metrics")

func newRun(variant matrix.Variant, result *matrix.Result) observability.Run {
	verdicts := make(map[string]int)
	for _, c := range matrix.CountBy(result.Rows, verdictKey(variant)).MostCommon(0) {
		verdicts[c.Key] = c.Count
	}

	return observability.Run{
		Variant:  string(variant),
		Fetched:  result.Fetched,
		InScope:  result.InScope,
		Verdicts: verdicts,
		Stages:   maps.Clone(result.Stages),
	}
}

func recordRun(ctx context.Context, meter metric.Meter, run observability.Run) error {
	rm, err := observability.NewRunMetrics(meter)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetricsExport, err)
	}

	rm.Record(ctx, run)

	return nil
}

// writeRunMetrics records run into a private registry and writes it as a
// Prometheus textfile.
func writeRunMetrics(ctx context.Context, path string, run observability.Run) error {
	exp, err := observability.NewTextfileExporter()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetricsExport, err)
	}

	defer func() { _ = exp.Shutdown(ctx) }()

	err = recordRun(ctx, exp.Meter(), run)
	if err != nil {
		return err
	}

	err = exp.WriteFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetricsExport, err)
	}

	return nil
}

// verdictKey labels rows by verdict only when the variant shows verdicts.
func verdictKey(variant matrix.Variant) func(matrix.Row) string {
	if variant.Classified() {
		return func(r matrix.Row) string { return r.Verdict }
	}

	return func(matrix.Row) string { return "" }
}
