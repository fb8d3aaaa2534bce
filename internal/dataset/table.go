// Package dataset implements the tabular layer of the pipeline: CSV-backed
// tables with ordered columns, plus the CV and JD normalization stages that
// derive canonical columns from the raw ingested ones.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Row is one record of a Table, keyed by column name.
type Row map[string]string

// Float parses the named cell as a number, returning 0 for missing or
// unparseable values. Every numeric column downstream treats absence as 0.
func (r Row) Float(column string) float64 {
	v, ok := ParseFloat(r[column])
	if !ok {
		return 0
	}
	return v
}

// ParseFloat parses a cell value, reporting whether it held a valid number.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Truthy reports whether a cell value represents an active boolean flag.
// Ingested tag columns carry "True"/"" but other producers write 1/yes.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "x":
		return true
	}
	return false
}

// Table is an in-memory CSV table with a stable column order. Stages read a
// whole table, append or rewrite columns, and write the whole table back.
type Table struct {
	Columns []string
	Rows    []Row
}

// ReadCSV loads path into a Table. Short records are padded with empty cells.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading %q: empty file", path)
	}

	t := &Table{Columns: records[0]}
	for _, record := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// WriteCSV writes the table to path, creating parent-relative files with the
// column order preserved.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header to %q: %w", path, err)
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row to %q: %w", path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing %q: %w", path, err)
	}

	return nil
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// EnsureColumn appends the column with empty cells when it is missing.
func (t *Table) EnsureColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	t.Columns = append(t.Columns, name)
	for _, row := range t.Rows {
		row[name] = ""
	}
}

// ColumnsWithPrefix returns the columns starting with prefix, in table order.
func (t *Table) ColumnsWithPrefix(prefix string) []string {
	var out []string
	for _, col := range t.Columns {
		if strings.HasPrefix(col, prefix) {
			out = append(out, col)
		}
	}
	return out
}

// Index maps the id column to rows. When ids repeat, the last row wins, which
// matches the "latest ingested record is current" rule of the datasets.
func (t *Table) Index(idColumn string) map[string]Row {
	index := make(map[string]Row, len(t.Rows))
	for _, row := range t.Rows {
		if id := strings.TrimSpace(row[idColumn]); id != "" {
			index[id] = row
		}
	}
	return index
}

// FormatFloat renders a numeric cell the way the normalized tables expect:
// one decimal place for fractional columns.
func FormatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatInt renders an integer cell.
func FormatInt(v int) string {
	return strconv.Itoa(v)
}
