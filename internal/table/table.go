// Package table reads and writes rectangular tables (CSV, TSV, XLSX) and
// converts them to and from the typed records of the models package.
package table

import (
	"fmt"
	"strings"
)

// Table is a header plus rows of string cells. Rows may be shorter than the
// header; missing cells read as empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given header.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds a row. It panics if the row is wider than the header.
func (t *Table) Append(row ...string) {
	if len(row) > len(t.Columns) {
		panic(fmt.Sprintf("table: row has %d cells, header has %d", len(row), len(t.Columns)))
	}
	t.Rows = append(t.Rows, row)
}

// Index returns the position of the first column matching any of names
// (case-insensitive), or -1.
func (t *Table) Index(names ...string) int {
	for _, n := range names {
		for i, c := range t.Columns {
			if strings.EqualFold(strings.TrimSpace(c), n) {
				return i
			}
		}
	}
	return -1
}

// Cell returns row r, column c, or "" when the row is short or c < 0.
func (t *Table) Cell(r, c int) string {
	if c < 0 || r < 0 || r >= len(t.Rows) || c >= len(t.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[r][c])
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}
	t := &Table{Columns: records[0]}
	for _, row := range records[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
