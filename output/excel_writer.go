package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const daysSheet = "Days"

// ExcelWriter writes the month grid to the first sheet and the daily
// summaries to a second one.
type ExcelWriter struct{}

func (w *ExcelWriter) Write(path string, report Report) error {
	file := excelize.NewFile()
	defer file.Close()

	grid := report.Grid
	sheet := file.GetSheetName(0)
	if !grid.Month.IsZero() {
		name := grid.Month.Format("2006-01")
		if err := file.SetSheetName(sheet, name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		sheet = name
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := gridHeader(grid)
	if err := setRow(file, sheet, 1, toAny(header)); err != nil {
		return err
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := file.SetCellStyle(sheet, "A1", lastCol, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range grid.Rows {
		values := []any{row.Task.TaskID, row.Task.Project, taskLabel(row.Task)}
		for _, hours := range row.Hours {
			values = append(values, hoursCell(hours))
		}
		values = append(values, row.Total)
		if err := setRow(file, sheet, i+2, values); err != nil {
			return err
		}
	}

	totalsRow := len(grid.Rows) + 2
	totals := []any{nil, nil, "Total"}
	for _, hours := range grid.DayTotals {
		totals = append(totals, hoursCell(hours))
	}
	totals = append(totals, grid.Total)
	if err := setRow(file, sheet, totalsRow, totals); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, totalsRow)
	last, _ := excelize.CoordinatesToCellName(len(header), totalsRow)
	if err := file.SetCellStyle(sheet, first, last, bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}

	if err := writeDaysSheet(file, report); err != nil {
		return err
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}
	return nil
}

func writeDaysSheet(file *excelize.File, report Report) error {
	if _, err := file.NewSheet(daysSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", daysSheet, err)
	}
	if err := setRow(file, daysSheet, 1, []any{"Date", "Hours", "Entries", "WorkFromHome", "WorkFromHomeStarted"}); err != nil {
		return err
	}
	for i, summary := range BuildDailySummaries(report.Entries) {
		values := []any{summary.Date, summary.Hours, summary.EntryCount, summary.WorkFromHome, nil}
		if summary.WorkFromHome {
			values[4] = summary.WorkFromHomeStarted
		}
		if err := setRow(file, daysSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func setRow(file *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("resolve row %d: %w", row, err)
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set excel row %s: %w", cell, err)
	}
	return nil
}

// hoursCell leaves empty cells blank instead of writing 0.
func hoursCell(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
