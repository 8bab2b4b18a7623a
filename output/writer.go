package output

import (
	"fmt"
	"strconv"
	"strings"

	"hourgrid/worklog"
)

// Report is everything an export writes.
type Report struct {
	Grid    Grid
	Entries []worklog.Entry
}

type Writer interface {
	Write(path string, report Report) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}

func gridHeader(grid Grid) []string {
	header := []string{"TaskId", "Project", "Description"}
	for _, day := range grid.Days {
		header = append(header, day.Format("02 Mon"))
	}
	return append(header, "Total")
}

func taskLabel(task worklog.Task) string {
	if task.CustRefDescription != "" {
		return task.CustRefDescription
	}
	return task.Description
}

func formatHours(value float64) string {
	if value == 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
