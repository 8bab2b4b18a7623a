package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ATWorkReader reads the UTF-16 tab separated export of the atwork tracker.
// Only the leading entries section is read: a title row, a header row and
// data rows up to the first row whose first column is empty or "Gesamt".
type ATWorkReader struct{}

func (r *ATWorkReader) Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open atwork file %s: %w", path, err)
	}
	defer file.Close()

	decoded := transform.NewReader(file, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read atwork section title: %w", err)
	}
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read atwork column headers: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read atwork row %d: %w", len(rows)+3, err)
		}
		if len(row) == 0 {
			break
		}
		first := strings.TrimSpace(row[0])
		if first == "" || strings.EqualFold(first, "Gesamt") {
			break
		}
		rows = append(rows, row)
	}

	return buildRecords(headers, rows, 3), nil
}
