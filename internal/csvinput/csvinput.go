// Package csvinput tokenizes CSV event logs into header-keyed rows.
package csvinput

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cohortly/internal/events"
)

// ErrEmptyInput is returned when the input has no header line.
var ErrEmptyInput = errors.New("csv input is empty")

const utf8BOM = "\ufeff"

// Table is a tokenized CSV file.
type Table struct {
	Headers []string
	Rows    []events.RawRow
}

// Read parses a CSV stream. The first record is the header line; short records
// leave trailing columns absent and extra fields are ignored. Blank header
// cells are skipped.
func Read(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyInput
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		headers[i] = strings.TrimSpace(h)
	}

	table := Table{Rows: []events.RawRow{}}
	for _, h := range headers {
		if h != "" {
			table.Headers = append(table.Headers, h)
		}
	}
	if len(table.Headers) == 0 {
		return Table{}, ErrEmptyInput
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(events.RawRow, len(headers))
		for i, value := range record {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = value
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ReadFile opens and parses a CSV file.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Write serializes rows in header order. Missing columns are written empty.
func Write(w io.Writer, headers []string, rows []events.RawRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
