package importer

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVReader reads comma or semicolon separated tracker exports.
type CSVReader struct {
	// Comma overrides delimiter detection when set.
	Comma rune
}

func (r *CSVReader) Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file %s: %w", path, err)
	}
	defer file.Close()

	content, err := readAllCSV(file, r.Comma)
	if err != nil {
		return nil, fmt.Errorf("read csv file %s: %w", path, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("csv file %s has no header", path)
	}

	return buildRecords(content[0], content[1:], 2), nil
}

func readAllCSV(file *os.File, comma rune) ([][]string, error) {
	if comma == 0 {
		detected, err := detectDelimiter(file)
		if err != nil {
			return nil, err
		}
		comma = detected
	}

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// detectDelimiter peeks at the header line and rewinds the file.
func detectDelimiter(file *os.File) (rune, error) {
	buf := make([]byte, 1024)
	n, err := file.Read(buf)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return 0, fmt.Errorf("rewind: %w", err)
	}

	commas, semicolons := 0, 0
	for _, b := range buf[:n] {
		if b == '\n' {
			break
		}
		switch b {
		case ',':
			commas++
		case ';':
			semicolons++
		}
	}
	if semicolons > commas {
		return ';', nil
	}
	return ',', nil
}
