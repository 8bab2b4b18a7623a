package importer

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	FormatCSV    = "csv"
	FormatExcel  = "excel"
	FormatATWork = "atwork"
)

// Record is one data row of a tracker export, keyed by normalized header.
type Record struct {
	RowNumber int
	Values    map[string]string
}

// Get returns the first non-missing column among keys.
func (r Record) Get(keys ...string) string {
	for _, key := range keys {
		if value, ok := r.Values[normalizeHeader(key)]; ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

type Reader interface {
	Read(path string) ([]Record, error)
}

func ReaderForFormat(format string) (Reader, error) {
	switch normalizeHeader(format) {
	case FormatCSV:
		return &CSVReader{}, nil
	case FormatExcel, "xlsx", "xlsm", "xls":
		return &ExcelReader{}, nil
	case FormatATWork:
		return &ATWorkReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// InferFormat returns format when set, otherwise derives it from the file extension.
func InferFormat(path, format string) (string, error) {
	if strings.TrimSpace(format) != "" {
		return normalizeHeader(format), nil
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xlsm", "xls":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported file extension for %s", path)
	}
}

// buildRecords pairs data rows with the header row. firstRow is the file row
// number of rows[0].
func buildRecords(headers []string, rows [][]string, firstRow int) []Record {
	normalized := make([]string, len(headers))
	for i, header := range headers {
		normalized[i] = normalizeHeader(header)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(normalized))
		for col, header := range normalized {
			if col < len(row) {
				values[header] = row[col]
			} else {
				values[header] = ""
			}
		}
		records = append(records, Record{RowNumber: firstRow + i, Values: values})
	}
	return records
}

func normalizeHeader(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	return strings.NewReplacer("_", "", "-", "", " ", "", ".", "").Replace(trimmed)
}
