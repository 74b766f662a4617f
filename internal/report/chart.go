package report

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

const (
	chartWidth  = "100%"
	chartHeight = "420px"
)

// RenderChart renders an HTML page with one bar chart per distribution.
func RenderChart(meta Meta, rows []matrix.Row) ([]byte, error) {
	page := components.NewPage()
	page.SetPageTitle(meta.Title())

	for _, dist := range Distributions(rows, meta.Variant, MarkdownTeamLimit) {
		page.AddCharts(distributionChart(dist))
	}

	var buf bytes.Buffer

	renderErr := page.Render(&buf)
	if renderErr != nil {
		return nil, fmt.Errorf("render chart page: %w", renderErr)
	}

	return buf.Bytes(), nil
}

func distributionChart(dist Distribution) *charts.Bar {
	labels := make([]string, 0, len(dist.Counts))
	data := make([]opts.BarData, 0, len(dist.Counts))

	for _, c := range dist.Counts {
		labels = append(labels, c.Key)
		data = append(data, opts.BarData{Value: c.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: dist.Title}),
	)
	bar.SetXAxis(labels).AddSeries(dist.Label, data)

	return bar
}
