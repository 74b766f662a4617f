package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Sumatoshi-tech/bugmatrix/internal/matrix"
)

// Sheet names of the workbook.
const (
	MatrixSheet  = "Bug Matrix"
	SummarySheet = "Summary"
)

// WorkbookTeamLimit caps the team-label block of the Summary sheet.
const WorkbookTeamLimit = 20

const (
	headerFill = "1F4E78"
	headerFont = "FFFFFF"
)

// RenderXLSX renders the workbook into memory.
func RenderXLSX(meta Meta, rows []matrix.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, styleErr := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: headerFont},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if styleErr != nil {
		return nil, fmt.Errorf("header style: %w", styleErr)
	}

	cellStyle, styleErr := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if styleErr != nil {
		return nil, fmt.Errorf("cell style: %w", styleErr)
	}

	renameErr := f.SetSheetName(f.GetSheetName(0), MatrixSheet)
	if renameErr != nil {
		return nil, fmt.Errorf("rename sheet: %w", renameErr)
	}

	matrixErr := writeMatrixSheet(f, sheetColumns(meta.Variant), rows, headerStyle, cellStyle)
	if matrixErr != nil {
		return nil, fmt.Errorf("%s sheet: %w", MatrixSheet, matrixErr)
	}

	summaryErr := writeSummarySheet(f, meta, rows, headerStyle)
	if summaryErr != nil {
		return nil, fmt.Errorf("%s sheet: %w", SummarySheet, summaryErr)
	}

	buf, writeErr := f.WriteToBuffer()
	if writeErr != nil {
		return nil, fmt.Errorf("encode workbook: %w", writeErr)
	}

	return buf.Bytes(), nil
}

func writeMatrixSheet(f *excelize.File, cols []column, rows []matrix.Row, headerStyle, cellStyle int) error {
	header := make([]any, 0, len(cols))
	for _, col := range cols {
		header = append(header, col.header)
	}

	err := f.SetSheetRow(MatrixSheet, "A1", &header)
	if err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return err
	}

	err = f.SetCellStyle(MatrixSheet, "A1", lastCol+"1", headerStyle)
	if err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]any, 0, len(cols))
		for _, col := range cols {
			cells = append(cells, col.value(row))
		}

		cell, cellErr := excelize.CoordinatesToCellName(1, i+2)
		if cellErr != nil {
			return cellErr
		}

		err = f.SetSheetRow(MatrixSheet, cell, &cells)
		if err != nil {
			return err
		}
	}

	if len(rows) > 0 {
		err = f.SetCellStyle(MatrixSheet, "A2", fmt.Sprintf("%s%d", lastCol, len(rows)+1), cellStyle)
		if err != nil {
			return err
		}
	}

	for i, col := range cols {
		name, nameErr := excelize.ColumnNumberToName(i + 1)
		if nameErr != nil {
			return nameErr
		}

		err = f.SetColWidth(MatrixSheet, name, name, col.width)
		if err != nil {
			return err
		}
	}

	return f.SetPanes(MatrixSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummarySheet(f *excelize.File, meta Meta, rows []matrix.Row, headerStyle int) error {
	_, err := f.NewSheet(SummarySheet)
	if err != nil {
		return err
	}

	lines := [][]any{
		{"Generated at (UTC)", meta.GeneratedAtUTC()},
		{"Repository", meta.Repository},
		{"Lookback days", meta.LookbackDays},
		{"Total bugs", len(rows)},
	}

	var styled []int

	for _, dist := range Distributions(rows, meta.Variant, WorkbookTeamLimit) {
		lines = append(lines, nil, []any{dist.Label, "Count"})
		styled = append(styled, len(lines))

		for _, c := range dist.Counts {
			lines = append(lines, []any{c.Key, c.Count})
		}
	}

	for i, line := range lines {
		if line == nil {
			continue
		}

		err = f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &line)
		if err != nil {
			return err
		}
	}

	for _, rowNum := range styled {
		err = f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("B%d", rowNum), headerStyle)
		if err != nil {
			return err
		}
	}

	err = f.SetColWidth(SummarySheet, "A", "A", 28)
	if err != nil {
		return err
	}

	return f.SetColWidth(SummarySheet, "B", "B", 20)
}
