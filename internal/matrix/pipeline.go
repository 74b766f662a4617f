package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/bugmatrix/internal/cluster"
	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

// tracerName is the default OTel tracer name for the matrix package.
const tracerName = "bugmatrix"

// ErrNoRules is returned when Options carries no rule set.
var ErrNoRules = errors.New("matrix: rule set is required")

// Options configures one pipeline run.
type Options struct {
	Scope Scope
	Rules *rules.Set

	// Workers bounds parallel row building. Values below 2 build rows
	// sequentially.
	Workers int

	// Tracer is the OTel tracer for pipeline spans.
	// When nil, falls back to otel.Tracer("bugmatrix").
	Tracer trace.Tracer
	// Logger receives stage summaries. When nil, slog.Default() is used.
	Logger *slog.Logger
}

// Result is the output of one run.
type Result struct {
	Rows     []Row
	Fetched  int
	InScope  int
	Clusters int
	// Stages records the wall time of each pipeline stage.
	Stages map[string]time.Duration
}

// Pipeline stage names, used for spans, logs and metrics.
const (
	StageFilter  = "filter"
	StageCluster = "cluster"
	StageRows    = "rows"
	StageOrder   = "order"
)

// Generate filters the issues by scope, clusters the survivors by title,
// builds one row per issue and orders the rows. The row order depends only
// on the input, never on worker scheduling.
func Generate(ctx context.Context, issues []issue.Issue, opts Options) (*Result, error) {
	if opts.Rules == nil {
		return nil, ErrNoRules
	}

	tr := opts.Tracer
	if tr == nil {
		tr = otel.Tracer(tracerName)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, span := tr.Start(ctx, "bugmatrix.generate",
		trace.WithAttributes(
			attribute.String("matrix.variant", string(opts.Scope.Variant)),
			attribute.Int("matrix.fetched", len(issues)),
			attribute.Int("matrix.workers", opts.Workers),
		))
	defer span.End()

	res := &Result{Fetched: len(issues), Stages: make(map[string]time.Duration, 4)}

	start := time.Now()
	scoped := opts.Scope.Filter(issues)
	res.InScope = len(scoped)
	res.Stages[StageFilter] = time.Since(start)

	start = time.Now()
	idx := cluster.Build(scoped)
	res.Clusters = idx.Len()
	logger.DebugContext(ctx, "title clusters", "keys", idx.Keys())
	res.Stages[StageCluster] = time.Since(start)

	start = time.Now()

	rows, err := buildRows(ctx, NewBuilder(opts.Rules, idx), scoped, opts.Workers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("build rows: %w", err)
	}

	res.Stages[StageRows] = time.Since(start)

	start = time.Now()
	res.Rows = Order(rows)
	res.Stages[StageOrder] = time.Since(start)

	span.SetAttributes(
		attribute.Int("matrix.in_scope", res.InScope),
		attribute.Int("matrix.clusters", res.Clusters),
	)

	logger.InfoContext(ctx, "matrix generated",
		"variant", opts.Scope.Variant,
		"fetched", res.Fetched,
		"in_scope", res.InScope,
		"clusters", res.Clusters,
		"rows_duration", res.Stages[StageRows],
	)

	return res, nil
}

// buildRows writes each row at its issue's index, so parallel and
// sequential runs yield identical slices.
func buildRows(ctx context.Context, b *Builder, issues []issue.Issue, workers int) ([]Row, error) {
	rows := make([]Row, len(issues))

	if workers < 2 {
		for i, iss := range issues {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			rows[i] = b.Build(iss)
		}

		return rows, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, iss := range issues {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rows[i] = b.Build(iss)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return rows, nil
}

// CountBy tallies rows by the given key, preserving first-seen key order.
func CountBy(rows []Row, key func(Row) string) *Tally {
	t := NewTally()

	for _, row := range rows {
		t.Add(key(row))
	}

	return t
}
