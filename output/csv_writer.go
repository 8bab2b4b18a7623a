package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVWriter writes the month grid followed by a totals row.
type CSVWriter struct{}

func (w *CSVWriter) Write(path string, report Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv output %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	grid := report.Grid

	if err := writer.Write(gridHeader(grid)); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}

	for _, row := range grid.Rows {
		record := []string{strconv.FormatInt(row.Task.TaskID, 10), row.Task.Project, taskLabel(row.Task)}
		for _, hours := range row.Hours {
			record = append(record, formatHours(hours))
		}
		record = append(record, formatHours(row.Total))
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	totals := []string{"", "", "Total"}
	for _, hours := range grid.DayTotals {
		totals = append(totals, formatHours(hours))
	}
	totals = append(totals, formatHours(grid.Total))
	if err := writer.Write(totals); err != nil {
		return fmt.Errorf("write csv totals: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}
