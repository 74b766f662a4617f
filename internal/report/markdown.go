package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	prettytext "github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

// MarkdownTeamLimit caps the team-label table of the Markdown document.
const MarkdownTeamLimit = 15

// RenderMarkdown renders the Markdown document. Pipes and newlines inside
// cells are escaped by the table renderer.
func RenderMarkdown(meta Meta, rows []matrix.Row) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", meta.Title())
	fmt.Fprintf(&sb, "- Generated at (UTC): %s\n", meta.GeneratedAtUTC())
	fmt.Fprintf(&sb, "- Scope: `%s` issues\n", meta.Repository)

	filters := make([]string, 0, len(meta.Filters()))
	for _, f := range meta.Filters() {
		filters = append(filters, "`"+f+"`")
	}

	fmt.Fprintf(&sb, "- Filters: %s\n", strings.Join(filters, ", "))
	fmt.Fprintf(&sb, "- Total bugs in scope: **%d**\n", len(rows))

	for _, dist := range Distributions(rows, meta.Variant, MarkdownTeamLimit) {
		fmt.Fprintf(&sb, "\n## %s\n\n", dist.Title)
		sb.WriteString(distributionTable(dist))
		sb.WriteString("\n")
	}

	heading := "Bug-by-bug test blueprint"
	if meta.Variant.Classified() {
		heading = "Bug-by-bug classification and test blueprint"
	}

	fmt.Fprintf(&sb, "\n## %s\n\n", heading)
	sb.WriteString(issueTable(documentColumns(meta.Variant), rows))
	sb.WriteString("\n")

	return []byte(sb.String())
}

func distributionTable(dist Distribution) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{dist.Label, "Count"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: prettytext.AlignRight, AlignHeader: prettytext.AlignRight},
	})

	for _, c := range dist.Counts {
		tw.AppendRow(table.Row{c.Key, c.Count})
	}

	return tw.RenderMarkdown()
}

func issueTable(cols []column, rows []matrix.Row) string {
	tw := table.NewWriter()

	header := make(table.Row, 0, len(cols))
	for _, col := range cols {
		header = append(header, col.header)
	}

	tw.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, 0, len(cols))
		for _, col := range cols {
			cells = append(cells, col.value(row))
		}

		tw.AppendRow(cells)
	}

	return tw.RenderMarkdown()
}
