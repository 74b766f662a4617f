package matrix_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bugmatrix/internal/classify"
	"github.com/Sumatoshi-tech/bugmatrix/internal/cluster"
	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
	"github.com/Sumatoshi-tech/bugmatrix/internal/rules"
	"github.com/Sumatoshi-tech/bugmatrix/pkg/issue"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return testNow.Add(-time.Duration(days) * 24 * time.Hour)
}

func newIssue(number int, title, state string, created time.Time, labels ...string) issue.Issue {
	return issue.Issue{
		Number:       number,
		Title:        title,
		State:        state,
		CreatedAt:    created,
		CreatedAtRaw: created.Format(time.RFC3339),
		Labels:       append([]string{"type-bug"}, labels...),
		URL:          fmt.Sprintf("https://github.com/acme/wallet/issues/%d", number),
	}
}

func scope(variant matrix.Variant) matrix.Scope {
	return matrix.Scope{Variant: variant, BugLabel: "type-bug", Lookback: 30 * 24 * time.Hour, Now: testNow}
}

func TestParseVariant(t *testing.T) {
	t.Parallel()

	v, err := matrix.ParseVariant(" Closed ")
	require.NoError(t, err)
	assert.Equal(t, matrix.VariantClosed, v)
	assert.True(t, v.Classified())
	assert.Equal(t, "closed", v.GHState())
	assert.Equal(t, "all", matrix.VariantAll.GHState())

	_, err = matrix.ParseVariant("merged")
	require.ErrorIs(t, err, matrix.ErrUnknownVariant)
}

func TestScope_Includes(t *testing.T) {
	t.Parallel()

	open := newIssue(1, "a", issue.StateOpen, daysAgo(2))
	closed := newIssue(2, "b", issue.StateClosed, daysAgo(2))
	old := newIssue(3, "c", issue.StateClosed, daysAgo(31))
	edge := newIssue(4, "d", issue.StateOpen, daysAgo(30))
	unlabeled := issue.Issue{Number: 5, Title: "e", State: issue.StateOpen, CreatedAt: daysAgo(1), Labels: []string{"bug"}}

	all := scope(matrix.VariantAll)
	assert.True(t, all.Includes(open))
	assert.True(t, all.Includes(closed))
	assert.False(t, all.Includes(old))
	assert.True(t, all.Includes(edge))
	assert.False(t, all.Includes(unlabeled))

	assert.False(t, scope(matrix.VariantClosed).Includes(open))
	assert.True(t, scope(matrix.VariantClosed).Includes(closed))
	assert.True(t, scope(matrix.VariantOpen).Includes(open))
	assert.False(t, scope(matrix.VariantOpen).Includes(closed))

	filtered := all.Filter([]issue.Issue{old, closed, unlabeled, open})
	require.Len(t, filtered, 2)
	assert.Equal(t, 2, filtered[0].Number)
	assert.Equal(t, 1, filtered[1].Number)
}

func TestOrder_GroupsBySeverityThenNewest(t *testing.T) {
	t.Parallel()

	rows := []matrix.Row{
		{Number: 1, SeverityRank: 99, CreatedAt: daysAgo(1)},
		{Number: 2, SeverityRank: 1, CreatedAt: daysAgo(9)},
		{Number: 3, SeverityRank: 0, CreatedAt: daysAgo(20)},
		{Number: 4, SeverityRank: 1, CreatedAt: daysAgo(3)},
	}

	ordered := matrix.Order(rows)

	numbers := make([]int, 0, len(ordered))
	for _, row := range ordered {
		numbers = append(numbers, row.Number)
	}

	assert.Equal(t, []int{3, 4, 2, 1}, numbers)

	for i := 1; i < len(ordered); i++ {
		assert.False(t, sortsBefore(ordered[i], ordered[i-1]))
	}
}

func TestOrder_StableForTies(t *testing.T) {
	t.Parallel()

	created := daysAgo(5)
	rows := []matrix.Row{
		{Number: 10, SeverityRank: 2, CreatedAt: created},
		{Number: 11, SeverityRank: 2, CreatedAt: created},
	}

	ordered := matrix.Order(rows)

	assert.Equal(t, 10, ordered[0].Number)
	assert.Equal(t, 11, ordered[1].Number)
}

func TestTally_MostCommon(t *testing.T) {
	t.Parallel()

	tally := matrix.NewTally()
	for _, key := range []string{"b", "a", "b", "c", "a", "d"} {
		tally.Add(key)
	}

	assert.Equal(t, []matrix.Count{{Key: "b", Count: 2}, {Key: "a", Count: 2}, {Key: "c", Count: 1}, {Key: "d", Count: 1}}, tally.MostCommon(0))
	assert.Equal(t, []matrix.Count{{Key: "b", Count: 2}, {Key: "a", Count: 2}}, tally.MostCommon(2))
	assert.Equal(t, 4, tally.Len())
}

func TestTeamTally(t *testing.T) {
	t.Parallel()

	rows := []matrix.Row{
		{TeamLabels: []string{"team-a", "team-b"}},
		{},
		{TeamLabels: []string{"team-b"}},
	}

	assert.Equal(t, []matrix.Count{{Key: "team-b", Count: 2}, {Key: "team-a", Count: 1}}, matrix.TeamTally(rows).MostCommon(15))
}

func TestBuilder_ClosedIssue(t *testing.T) {
	t.Parallel()

	fixed := newIssue(205, "Swap fails (iOS)", issue.StateClosed, daysAgo(4), "team-swaps", "Sev1-high")
	fixed.StateReason = issue.ReasonCompleted
	fixed.ClosingPRs = []int{9001}
	fixed.Body = "### Steps to reproduce\n1. Open swap\n2. Pick token"

	dup := newIssue(310, "Swap fails (Android)", issue.StateClosed, daysAgo(2))
	dup.StateReason = issue.ReasonNotPlanned

	batch := []issue.Issue{fixed, dup}
	b := matrix.NewBuilder(rules.Default(), cluster.Build(batch))

	fixedRow := b.Build(fixed)
	assert.Equal(t, classify.RealnessConfirmed, fixedRow.Realness)
	assert.Equal(t, classify.LayerMobile, fixedRow.ResolutionLayer)
	assert.Equal(t, classify.VerdictValid, fixedRow.Verdict)
	assert.Equal(t, classify.ConfidenceHigh, fixedRow.Confidence)
	assert.Equal(t, 205, fixedRow.CanonicalIssue)
	assert.Equal(t, []int{310}, fixedRow.ClusterSiblings)
	assert.Equal(t, "team-swaps", fixedRow.Teams())
	assert.Equal(t, "Open swap -> Pick token", fixedRow.Steps)

	dupRow := b.Build(dup)
	assert.Equal(t, classify.RealnessTrackedSibling, dupRow.Realness)
	assert.Equal(t, classify.LayerMobileViaSibling, dupRow.ResolutionLayer)
	assert.Equal(t, classify.VerdictLikely, dupRow.Verdict)
	assert.Equal(t, classify.ConfidenceMediumHigh, dupRow.Confidence)
	assert.Equal(t, 205, dupRow.CanonicalIssue)
	assert.Contains(t, dupRow.TestPlan, "canonical regression owner is #205")
	assert.Equal(t, "Unlabeled", dupRow.Severities())
	assert.Equal(t, []string{"Missing team label", "Missing severity label"}, dupRow.MetadataGaps)
}

func TestBuilder_UnclusteredIsOwnCanonical(t *testing.T) {
	t.Parallel()

	iss := newIssue(7, "!!!", issue.StateOpen, daysAgo(1))
	b := matrix.NewBuilder(rules.Default(), cluster.Build([]issue.Issue{iss}))

	row := b.Build(iss)

	assert.Equal(t, 7, row.CanonicalIssue)
	assert.Empty(t, row.ClusterSiblings)
}

func TestBuilder_CarriesUpdatedAt(t *testing.T) {
	t.Parallel()

	iss := newIssue(12, "Balance wrong (iOS)", issue.StateOpen, daysAgo(6))
	iss.UpdatedAt = daysAgo(1)

	row := matrix.NewBuilder(rules.Default(), cluster.Build([]issue.Issue{iss})).Build(iss)

	assert.True(t, row.UpdatedAt.Equal(daysAgo(1)))
	assert.True(t, row.CreatedAt.Equal(daysAgo(6)))
}

func sampleBatch() []issue.Issue {
	batch := make([]issue.Issue, 0, 40)
	titles := []string{"Balance wrong (iOS)", "Balance wrong (Android) v1.2.0", "Swap quote stale", "QR scanner crash"}
	sevs := []string{"Sev0-urgent", "Sev1-high", "Sev3-low", ""}

	for i := range 40 {
		iss := newIssue(100+i, titles[i%len(titles)], issue.StateClosed, daysAgo(i%35), "team-"+fmt.Sprint(i%3))
		if sev := sevs[i%len(sevs)]; sev != "" {
			iss.Labels = append(iss.Labels, sev)
		}

		if i%5 == 0 {
			iss.StateReason = issue.ReasonCompleted
			iss.ClosingPRs = []int{5000 + i}
		} else {
			iss.StateReason = issue.ReasonNotPlanned
		}

		iss.Body = "### Describe the bug\nThe API returns an error on the swap screen"
		batch = append(batch, iss)
	}

	return batch
}

func TestGenerate_FiltersAndOrders(t *testing.T) {
	t.Parallel()

	res, err := matrix.Generate(context.Background(), sampleBatch(), matrix.Options{
		Scope: scope(matrix.VariantClosed),
		Rules: rules.Default(),
	})
	require.NoError(t, err)

	assert.Equal(t, 40, res.Fetched)
	assert.Equal(t, len(res.Rows), res.InScope)
	assert.Less(t, res.InScope, 40)
	assert.Equal(t, 3, res.Clusters)
	assert.Contains(t, res.Stages, matrix.StageRows)

	for i := 1; i < len(res.Rows); i++ {
		assert.False(t, sortsBefore(res.Rows[i], res.Rows[i-1]), "rows %d and %d out of order", i-1, i)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	t.Parallel()

	opts := matrix.Options{Scope: scope(matrix.VariantClosed), Rules: rules.Default()}

	first, err := matrix.Generate(context.Background(), sampleBatch(), opts)
	require.NoError(t, err)

	second, err := matrix.Generate(context.Background(), sampleBatch(), opts)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Rows, second.Rows); diff != "" {
		t.Errorf("rows differ between runs (-first +second):\n%s", diff)
	}
}

func TestGenerate_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	sequential, err := matrix.Generate(context.Background(), sampleBatch(), matrix.Options{
		Scope: scope(matrix.VariantAll), Rules: rules.Default(),
	})
	require.NoError(t, err)

	parallel, err := matrix.Generate(context.Background(), sampleBatch(), matrix.Options{
		Scope: scope(matrix.VariantAll), Rules: rules.Default(), Workers: 4,
	})
	require.NoError(t, err)

	if diff := cmp.Diff(sequential.Rows, parallel.Rows); diff != "" {
		t.Errorf("parallel rows differ (-sequential +parallel):\n%s", diff)
	}
}

func TestGenerate_CanonicalInCluster(t *testing.T) {
	t.Parallel()

	batch := sampleBatch()

	res, err := matrix.Generate(context.Background(), batch, matrix.Options{
		Scope: scope(matrix.VariantAll), Rules: rules.Default(),
	})
	require.NoError(t, err)

	idx := cluster.Build(scope(matrix.VariantAll).Filter(batch))

	for _, row := range res.Rows {
		c := idx.For(row.Title)
		require.NotNil(t, c, row.Number)
		assert.Contains(t, c.Members, row.CanonicalIssue, row.Number)
	}
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	_, err := matrix.Generate(context.Background(), nil, matrix.Options{Scope: scope(matrix.VariantAll)})
	require.ErrorIs(t, err, matrix.ErrNoRules)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = matrix.Generate(ctx, sampleBatch(), matrix.Options{Scope: scope(matrix.VariantAll), Rules: rules.Default()})
	require.ErrorIs(t, err, context.Canceled)

	_, err = matrix.Generate(ctx, sampleBatch(), matrix.Options{
		Scope: scope(matrix.VariantAll), Rules: rules.Default(), Workers: 3,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCountBy(t *testing.T) {
	t.Parallel()

	rows := []matrix.Row{{Verdict: "invalid"}, {Verdict: "valid bug"}, {Verdict: "invalid"}}

	got := matrix.CountBy(rows, func(r matrix.Row) string { return r.Verdict }).MostCommon(0)

	assert.Equal(t, []matrix.Count{{Key: "invalid", Count: 2}, {Key: "valid bug", Count: 1}}, got)
}

// sortsBefore reports whether a belongs strictly before b: lower severity
// rank first, newer issues first within a rank.
func sortsBefore(a, b matrix.Row) bool {
	if a.SeverityRank != b.SeverityRank {
		return a.SeverityRank < b.SeverityRank
	}

	return a.CreatedAt.After(b.CreatedAt)
}
