package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Sumatoshi-tech/bugmatrix/internal/classify"
	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
	"github.com/Sumatoshi-tech/bugmatrix/internal/report"
)

var generatedAt = time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)

func testMeta(variant matrix.Variant) report.Meta {
	return report.Meta{
		GeneratedAt:  generatedAt,
		Repository:   "acme/wallet",
		Variant:      variant,
		BugLabel:     "type-bug",
		LookbackDays: 30,
	}
}

func testRows() []matrix.Row {
	return []matrix.Row{
		{
			Number:             12,
			URL:                "https://github.com/acme/wallet/issues/12",
			CreatedAtRaw:       "2026-10-10T10:00:00Z",
			ClosedAtRaw:        "2026-10-12T10:00:00Z",
			State:              "CLOSED",
			StateReason:        "COMPLETED",
			Title:              "Swap fails",
			TeamLabels:         []string{"team-swaps", "team-mobile"},
			SeverityLabels:     []string{"sev1-high"},
			SeverityTop:        "sev1-high",
			SeverityRank:       1,
			Summary:            "Swap | fails\nbadly",
			ComponentCandidate: "app/components/Swap/Swap.tsx",
			PrimaryTestType:    "Component View Test",
			MetadataGaps:       nil,
			Realness:           classify.RealnessConfirmed,
			ResolutionLayer:    classify.LayerMobile,
			MobileImpact:       classify.ImpactYes,
			Verdict:            classify.VerdictValid,
			Confidence:         classify.ConfidenceHigh,
			RecommendedTest:    classify.TestTypeThreeLayer,
			ClusterSiblings:    []int{14},
			CanonicalIssue:     12,
		},
		{
			Number:         14,
			URL:            "https://github.com/acme/wallet/issues/14",
			CreatedAtRaw:   "2026-10-01T10:00:00Z",
			State:          "OPEN",
			Title:          "Swap fails",
			SeverityTop:    "Unlabeled",
			SeverityRank:   99,
			MetadataGaps:   []string{"Missing team label", "Missing severity label"},
			Realness:       classify.RealnessUnclear,
			CanonicalIssue: 12,
		},
	}
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wallet-bugs-last-30-days", report.BaseName("acme/wallet", matrix.VariantAll, 30))
	assert.Equal(t, "wallet-closed-bugs-last-7-days", report.BaseName("Acme/Wallet", matrix.VariantClosed, 7))
	assert.Equal(t, "issues-open-bugs-last-30-days", report.BaseName("", matrix.VariantOpen, 30))
}

func TestMeta(t *testing.T) {
	t.Parallel()

	meta := testMeta(matrix.VariantClosed)
	assert.Equal(t, "acme/wallet bug-to-test matrix (closed, last 30 days)", meta.Title())
	assert.Equal(t, []string{"label:type-bug", "createdAt >= now-30d", "state:closed"}, meta.Filters())
	assert.Equal(t, "2026-10-19T12:30:00+00:00", meta.GeneratedAtUTC())

	all := testMeta(matrix.VariantAll)
	assert.Equal(t, "acme/wallet bug-to-test matrix (last 30 days)", all.Title())
	assert.Len(t, all.Filters(), 2)
}

func TestDistributions(t *testing.T) {
	t.Parallel()

	all := report.Distributions(testRows(), matrix.VariantAll, 1)
	require.Len(t, all, 2)
	assert.Equal(t, "Severity distribution", all[0].Title)
	assert.Equal(t, []matrix.Count{{Key: "sev1-high", Count: 1}, {Key: "Unlabeled", Count: 1}}, all[0].Counts)
	assert.Equal(t, []matrix.Count{{Key: "team-swaps", Count: 1}}, all[1].Counts)

	closed := report.Distributions(testRows(), matrix.VariantClosed, 15)
	titles := make([]string, 0, len(closed))

	for _, d := range closed {
		titles = append(titles, d.Title)
	}

	assert.Equal(t, []string{
		"Severity distribution",
		"Realness distribution",
		"Validity verdicts",
		"Resolution layers",
		"Recommended test types",
		"Top team labels in scoped bugs",
	}, titles)
}

func TestRenderMarkdown_Blueprint(t *testing.T) {
	t.Parallel()

	doc := string(report.RenderMarkdown(testMeta(matrix.VariantAll), testRows()))

	assert.True(t, strings.HasPrefix(doc, "# acme/wallet bug-to-test matrix (last 30 days)\n"))
	assert.Contains(t, doc, "- Generated at (UTC): 2026-10-19T12:30:00+00:00\n")
	assert.Contains(t, doc, "- Scope: `acme/wallet` issues\n")
	assert.Contains(t, doc, "- Filters: `label:type-bug`, `createdAt >= now-30d`\n")
	assert.Contains(t, doc, "- Total bugs in scope: **2**\n")
	assert.Contains(t, doc, "| sev1-high | 1 |")
	assert.Contains(t, doc, "## Bug-by-bug test blueprint")
	assert.Contains(t, doc, "| [#12](https://github.com/acme/wallet/issues/12) |")
	assert.Contains(t, doc, "Swap \\| fails<br/>badly")
	assert.Contains(t, doc, "| Missing team label, Missing severity label |")
	assert.NotContains(t, doc, "Realness")

	header := headerLine(t, doc, "| Issue |")
	assert.Equal(t, 13, strings.Count(header, " |"))
}

func TestRenderMarkdown_Classified(t *testing.T) {
	t.Parallel()

	doc := string(report.RenderMarkdown(testMeta(matrix.VariantClosed), testRows()))

	assert.Contains(t, doc, "`state:closed`")
	assert.Contains(t, doc, "## Realness distribution")
	assert.Contains(t, doc, "| confirmed real bug | 1 |")
	assert.Contains(t, doc, "## Bug-by-bug classification and test blueprint")
	assert.Contains(t, doc, "| #14 | #12 |")

	header := headerLine(t, doc, "| Issue |")
	assert.Equal(t, 27, strings.Count(header, " |"))
}

func TestRenderMarkdown_Empty(t *testing.T) {
	t.Parallel()

	doc := string(report.RenderMarkdown(testMeta(matrix.VariantOpen), nil))
	assert.Contains(t, doc, "- Total bugs in scope: **0**\n")
	assert.Contains(t, doc, "| Issue |")
}

func headerLine(t *testing.T, doc, prefix string) string {
	t.Helper()

	for line := range strings.SplitSeq(doc, "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}

	require.Failf(t, "header not found", "prefix %q", prefix)

	return ""
}

func TestWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	w := &report.Writer{Dir: dir, Markdown: "m.md", XLSX: "m.xlsx", Chart: "m.html"}

	artifacts, err := w.Write(testMeta(matrix.VariantAll), testRows())
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	for _, a := range artifacts {
		info, statErr := os.Stat(a.Path)
		require.NoError(t, statErr)
		assert.Equal(t, int64(a.Size), info.Size())
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "m.xlsx"))
	require.NoError(t, err)

	defer f.Close()

	assert.Equal(t, []string{report.MatrixSheet, report.SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(report.MatrixSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 14)
	assert.Equal(t, "Issue #", rows[0][0])
	assert.Equal(t, "Metadata gaps", rows[0][13])
	assert.Equal(t, "12", rows[1][0])
	assert.Equal(t, "Swap | fails\nbadly", rows[1][6])

	width, err := f.GetColWidth(report.MatrixSheet, "G")
	require.NoError(t, err)
	assert.InDelta(t, 52.0, width, 0.01)

	panes, err := f.GetPanes(report.MatrixSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)

	summary, err := f.GetRows(report.SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Generated at (UTC)", "2026-10-19T12:30:00+00:00"}, summary[0])
	assert.Equal(t, []string{"Total bugs", "2"}, summary[3])
	assert.Equal(t, []string{"Severity", "Count"}, summary[5])
	assert.Equal(t, []string{"sev1-high", "1"}, summary[6])
}

func TestRenderXLSX_Classified(t *testing.T) {
	t.Parallel()

	data, err := report.RenderXLSX(testMeta(matrix.VariantClosed), testRows())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)

	defer f.Close()

	rows, err := f.GetRows(report.MatrixSheet)
	require.NoError(t, err)
	assert.Len(t, rows[0], 28)
	assert.Equal(t, "Canonical issue", rows[0][27])
}

func TestWriter_SkipsChartAndFailsWhole(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := &report.Writer{Dir: dir, Markdown: "m.md", XLSX: "m.xlsx"}

	artifacts, err := w.Write(testMeta(matrix.VariantAll), testRows())
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	bad := &report.Writer{Dir: filepath.Join(blocker, "sub"), Markdown: "m.md", XLSX: "m.xlsx"}
	_, err = bad.Write(testMeta(matrix.VariantAll), testRows())
	require.ErrorIs(t, err, report.ErrWrite)
}

func TestWriter_FailedArtifactKeepsPreviousFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stale := filepath.Join(dir, "m.md")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o600))

	w := &report.Writer{Dir: dir, Markdown: "m.md", XLSX: filepath.Join("missing", "m.xlsx")}

	_, err := w.Write(testMeta(matrix.VariantAll), testRows())
	require.ErrorIs(t, err, report.ErrWrite)

	content, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m.md", entries[0].Name())
}

func TestRenderChart(t *testing.T) {
	t.Parallel()

	page, err := report.RenderChart(testMeta(matrix.VariantClosed), testRows())
	require.NoError(t, err)
	assert.Contains(t, string(page), "Severity distribution")
	assert.Contains(t, string(page), "Recommended test types")
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.PrintSummary(&buf, testMeta(matrix.VariantAll), testRows(), []report.Artifact{
		{Kind: report.KindMarkdown, Path: "out/m.md", Size: 2048},
	})

	out := buf.String()
	assert.Contains(t, out, "acme/wallet bug-to-test matrix")
	assert.Contains(t, out, "Bugs in scope: 2")
	assert.Contains(t, out, "out/m.md (2.0 kB)")
	assert.Contains(t, out, "sev1-high")
}
