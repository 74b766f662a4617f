package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricIssuesFetched = "bugmatrix.issues.fetched"
	metricIssuesInScope = "bugmatrix.issues.in_scope"
	metricRows          = "bugmatrix.rows"
	metricStageDuration = "bugmatrix.stage.duration"

	attrVariant = "variant"
	attrVerdict = "verdict"
	attrStage   = "stage"

	unclassified = "unclassified"
)

// stageBucketBoundaries covers 1ms to 60s; a run is dominated by the gh call.
var stageBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// Run summarizes one report generation.
type Run struct {
	Variant string
	Fetched int
	InScope int
	// Verdicts counts rows per validity verdict; unclassified variants use
	// the empty key.
	Verdicts map[string]int
	Stages   map[string]time.Duration
}

// RunMetrics holds the OTel instruments for report runs.
type RunMetrics struct {
	issuesFetched metric.Int64Counter
	issuesInScope metric.Int64Counter
	rows          metric.Int64Counter
	stageDuration metric.Float64Histogram
}

// NewRunMetrics creates the run instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		issuesFetched: b.counter(metricIssuesFetched, "Issues returned by the source", "{issue}"),
		issuesInScope: b.counter(metricIssuesInScope, "Issues left after the scope filter", "{issue}"),
		rows:          b.counter(metricRows, "Matrix rows by validity verdict", "{row}"),
		stageDuration: b.histogram(metricStageDuration, "Pipeline stage duration", "s", stageBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// Record adds one run to the instruments.
func (rm *RunMetrics) Record(ctx context.Context, run Run) {
	variant := metric.WithAttributes(attribute.String(attrVariant, run.Variant))

	rm.issuesFetched.Add(ctx, int64(run.Fetched), variant)
	rm.issuesInScope.Add(ctx, int64(run.InScope), variant)

	for verdict, count := range run.Verdicts {
		if verdict == "" {
			verdict = unclassified
		}

		rm.rows.Add(ctx, int64(count), metric.WithAttributes(
			attribute.String(attrVariant, run.Variant),
			attribute.String(attrVerdict, verdict),
		))
	}

	for stage, d := range run.Stages {
		rm.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String(attrVariant, run.Variant),
			attribute.String(attrStage, stage),
		))
	}
}
