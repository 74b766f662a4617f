// Package report renders matrix rows into the Markdown document, the XLSX
// workbook, the optional chart page and the terminal summary.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

// Meta describes the run a report belongs to.
type Meta struct {
	GeneratedAt  time.Time
	Repository   string
	Variant      matrix.Variant
	BugLabel     string
	LookbackDays int
}

// GeneratedAtUTC formats the generation time with second precision.
func (m Meta) GeneratedAtUTC() string {
	return m.GeneratedAt.UTC().Format("2006-01-02T15:04:05+00:00")
}

// Title is the document heading.
func (m Meta) Title() string {
	scope := fmt.Sprintf("last %d days", m.LookbackDays)
	if m.Variant != matrix.VariantAll && m.Variant != "" {
		scope = string(m.Variant) + ", " + scope
	}

	return fmt.Sprintf("%s bug-to-test matrix (%s)", m.Repository, scope)
}

// Filters lists the scope filters in report notation.
func (m Meta) Filters() []string {
	filters := []string{
		"label:" + m.BugLabel,
		fmt.Sprintf("createdAt >= now-%dd", m.LookbackDays),
	}

	if m.Variant == matrix.VariantOpen || m.Variant == matrix.VariantClosed {
		filters = append(filters, "state:"+string(m.Variant))
	}

	return filters
}

// BaseName derives the artifact file name, without extension, from the
// repository name, the variant and the lookback window.
func BaseName(repository string, variant matrix.Variant, lookbackDays int) string {
	name := repository
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	if name == "" {
		name = "issues"
	}

	kind := "bugs"
	if variant == matrix.VariantOpen || variant == matrix.VariantClosed {
		kind = string(variant) + "-bugs"
	}

	return fmt.Sprintf("%s-%s-last-%d-days", strings.ToLower(name), kind, lookbackDays)
}

// column is one per-issue field shared by the Markdown and XLSX writers.
type column struct {
	header string
	// width is the XLSX column width.
	width float64
	value func(r matrix.Row) any
}

func text(fn func(r matrix.Row) string) func(r matrix.Row) any {
	return func(r matrix.Row) any { return fn(r) }
}

var (
	numberColumn = column{header: "Issue #", width: 10, value: func(r matrix.Row) any { return r.Number }}
	urlColumn    = column{header: "Issue URL", width: 36, value: text(func(r matrix.Row) string { return r.URL })}
)

var blueprintColumns = []column{
	{header: "Created (UTC)", width: 22, value: text(func(r matrix.Row) string { return r.CreatedAtRaw })},
	{header: "State", width: 10, value: text(func(r matrix.Row) string { return r.State })},
	{header: "Team labels", width: 28, value: text(matrix.Row.Teams)},
	{header: "Severity labels", width: 20, value: text(matrix.Row.Severities)},
	{header: "Problem summary", width: 52, value: text(func(r matrix.Row) string { return r.Summary })},
	{header: "Primary test type", width: 38, value: text(func(r matrix.Row) string { return r.PrimaryTestType })},
	{header: "Component candidate", width: 38, value: text(func(r matrix.Row) string { return r.ComponentCandidate })},
	{header: "CVT preconditions/mocks", width: 56, value: text(func(r matrix.Row) string { return r.Mocks })},
	{header: "CVT steps", width: 42, value: text(func(r matrix.Row) string { return r.Steps })},
	{header: "CVT assertions", width: 44, value: text(func(r matrix.Row) string { return r.Assertions })},
	{header: "E2E fallback", width: 46, value: text(func(r matrix.Row) string { return r.E2EFallback })},
	{header: "Metadata gaps", width: 24, value: text(func(r matrix.Row) string {
		return strings.Join(r.MetadataGaps, ", ")
	})},
}

var classificationColumns = []column{
	{header: "Closed (UTC)", width: 22, value: text(func(r matrix.Row) string { return r.ClosedAtRaw })},
	{header: "State reason", width: 16, value: text(func(r matrix.Row) string { return r.StateReason })},
	{header: "Realness", width: 34, value: text(func(r matrix.Row) string { return string(r.Realness) })},
	{header: "Realness evidence", width: 44, value: text(func(r matrix.Row) string { return r.RealnessEvidence })},
	{header: "Resolution layer", width: 28, value: text(func(r matrix.Row) string { return string(r.ResolutionLayer) })},
	{header: "Resolution evidence", width: 44, value: text(func(r matrix.Row) string { return r.ResolutionEvidence })},
	{header: "Mobile impact", width: 16, value: text(func(r matrix.Row) string { return r.MobileImpact })},
	{header: "Validity verdict", width: 22, value: text(func(r matrix.Row) string { return r.Verdict })},
	{header: "Confidence", width: 14, value: text(func(r matrix.Row) string { return r.Confidence })},
	{header: "Validity analysis", width: 60, value: text(func(r matrix.Row) string { return r.ValidityAnalysis })},
	{header: "Recommended test type", width: 38, value: text(func(r matrix.Row) string { return r.RecommendedTest })},
	{header: "Test plan", width: 70, value: text(func(r matrix.Row) string { return r.TestPlan })},
	{header: "Cluster siblings", width: 22, value: text(func(r matrix.Row) string { return refs(r.ClusterSiblings) })},
	{header: "Canonical issue", width: 14, value: text(func(r matrix.Row) string { return "#" + strconv.Itoa(r.CanonicalIssue) })},
}

// sheetColumns lists the spreadsheet columns for a variant.
func sheetColumns(variant matrix.Variant) []column {
	cols := append([]column{numberColumn, urlColumn}, blueprintColumns...)
	if variant.Classified() {
		cols = append(cols, classificationColumns...)
	}

	return cols
}

// documentColumns lists the Markdown columns: the issue number and URL
// collapse into one link column.
func documentColumns(variant matrix.Variant) []column {
	link := column{header: "Issue", value: text(func(r matrix.Row) string {
		return fmt.Sprintf("[#%d](%s)", r.Number, r.URL)
	})}

	cols := append([]column{link}, blueprintColumns...)
	if variant.Classified() {
		cols = append(cols, classificationColumns...)
	}

	return cols
}

func refs(ids []int) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, "#"+strconv.Itoa(id))
	}

	return strings.Join(out, ", ")
}

// Distribution is one frequency table of the summary sections.
type Distribution struct {
	Title  string
	Label  string
	Counts []matrix.Count
}

// Distributions computes the frequency tables for a variant. teamLimit caps
// the team-label table.
func Distributions(rows []matrix.Row, variant matrix.Variant, teamLimit int) []Distribution {
	dists := []Distribution{
		{
			Title:  "Severity distribution",
			Label:  "Severity",
			Counts: matrix.CountBy(rows, func(r matrix.Row) string { return r.SeverityTop }).MostCommon(0),
		},
	}

	if variant.Classified() {
		dists = append(dists,
			Distribution{
				Title:  "Realness distribution",
				Label:  "Realness",
				Counts: matrix.CountBy(rows, func(r matrix.Row) string { return string(r.Realness) }).MostCommon(0),
			},
			Distribution{
				Title:  "Validity verdicts",
				Label:  "Verdict",
				Counts: matrix.CountBy(rows, func(r matrix.Row) string { return r.Verdict }).MostCommon(0),
			},
			Distribution{
				Title:  "Resolution layers",
				Label:  "Resolution layer",
				Counts: matrix.CountBy(rows, func(r matrix.Row) string { return string(r.ResolutionLayer) }).MostCommon(0),
			},
			Distribution{
				Title:  "Recommended test types",
				Label:  "Test type",
				Counts: matrix.CountBy(rows, func(r matrix.Row) string { return r.RecommendedTest }).MostCommon(0),
			},
		)
	}

	return append(dists, Distribution{
		Title:  "Top team labels in scoped bugs",
		Label:  "Team label",
		Counts: matrix.TeamTally(rows).MostCommon(teamLimit),
	})
}
