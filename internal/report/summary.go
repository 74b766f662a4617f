package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	prettytext "github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

// PrintSummary writes the terminal summary: row count, artifacts and the
// severity distribution.
func PrintSummary(w io.Writer, meta Meta, rows []matrix.Row, artifacts []Artifact) {
	color.New(color.FgGreen, color.Bold).Fprintf(w, "%s\n", meta.Title())
	fmt.Fprintf(w, "  Bugs in scope: %s\n", humanize.Comma(int64(len(rows))))

	for _, a := range artifacts {
		color.New(color.FgCyan).Fprintf(w, "  %-9s %s (%s)\n", a.Kind+":", a.Path, humanize.Bytes(uint64(a.Size)))
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Severity", "Count"})
	tbl.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: prettytext.AlignRight}})

	severity := Distributions(rows, meta.Variant, MarkdownTeamLimit)[0]
	for _, c := range severity.Counts {
		tbl.AppendRow(table.Row{c.Key, c.Count})
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, tbl.Render())
}
