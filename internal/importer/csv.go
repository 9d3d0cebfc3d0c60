package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingHeader is returned when the CSV header row is absent or unreadable.
var ErrMissingHeader = errors.New("csv header row is missing")

// ParseCSV reads a header-mapped CSV stream in a single pass and returns its rows.
// Header names are matched case-insensitively; unknown columns are ignored and
// missing columns leave the corresponding field empty. The stream is finite and
// not restartable.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingHeader, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}

		rows = append(rows, Row{
			Name:     field(record, columns, "name"),
			Age:      field(record, columns, "age"),
			Position: field(record, columns, "position"),
			Salary:   field(record, columns, "salary"),
		})
	}

	return rows, nil
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
