package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNotCSV        = errors.New("only CSV files are allowed")
	ErrTooFewColumns = errors.New("CSV file must have at least two columns")
)

// Delimiters are tried in order until one splits the header into at least
// two columns.
var Delimiters = []rune{',', ';', '\t'}

// MaxUploadSize bounds the bytes read from an uploaded file
const MaxUploadSize = 16 << 20

// CheckCSVName accepts only .csv file names
func CheckCSVName(filename string) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return ErrNotCSV
	}
	return nil
}

// ParseCSV reads a delimited file into one record per data row. The first
// column is renamed "label" and the second "value"; value is always numeric
// with unparseable cells as 0. Other columns keep their header, and a column
// whose every non-empty cell is numeric is returned as numbers.
func ParseCSV(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var lastErr error
	for _, delim := range Delimiters {
		records, err := readAll(data, delim)
		if err != nil {
			lastErr = err
			continue
		}
		if len(records) == 0 || len(records[0]) < 2 {
			continue
		}
		return toRows(records), nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrTooFewColumns, lastErr)
	}
	return nil, ErrTooFewColumns
}

func readAll(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func toRows(records [][]string) []map[string]any {
	header := append([]string(nil), records[0]...)
	header[0] = "label"
	header[1] = "value"
	body := records[1:]

	numeric := make([]bool, len(header))
	for col := range header {
		numeric[col] = col != 1 && isNumericColumn(body, col)
	}

	rows := make([]map[string]any, 0, len(body))
	for _, record := range body {
		if isBlank(record) {
			continue
		}
		row := make(map[string]any, len(header))
		for col, name := range header {
			cell := ""
			if col < len(record) {
				cell = strings.TrimSpace(record[col])
			}
			switch {
			case col == 1:
				row[name] = toFloat(cell)
			case cell == "":
				row[name] = nil
			case numeric[col]:
				row[name] = toNumber(cell)
			default:
				row[name] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isNumericColumn(body [][]string, col int) bool {
	seen := false
	for _, record := range body {
		if col >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func toFloat(cell string) float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func toNumber(cell string) any {
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i
	}
	return toFloat(cell)
}
