package dataset

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

// ErrEmpty is returned when a CSV has no header row
var ErrEmpty = errors.New("empty csv")

// Table is a parsed CSV: one header row plus string cells.
// Rows may be shorter than the header; missing cells read as absent.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Parse reads a CSV document. Ragged rows are accepted as-is.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Columns: make([]string, len(header))}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}
	if len(t.Columns) > 0 {
		t.Columns[0] = strings.TrimPrefix(t.Columns[0], "\ufeff")
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}

	return t, nil
}

// ParseBytes is Parse over an in-memory payload
func ParseBytes(data []byte) (*Table, error) {
	return Parse(bytes.NewReader(data))
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns a table holding at most the first n rows
func (t *Table) Head(n int) *Table {
	if n > t.Len() {
		n = t.Len()
	}
	if n < 0 {
		n = 0
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// ColumnIndex returns the index of the first candidate name present.
// Candidates are tried in order by exact match, then case-insensitively.
func (t *Table) ColumnIndex(names ...string) (int, bool) {
	if t == nil {
		return -1, false
	}
	for _, name := range names {
		for i, c := range t.Columns {
			if c == name {
				return i, true
			}
		}
	}
	for _, name := range names {
		for i, c := range t.Columns {
			if strings.EqualFold(c, name) {
				return i, true
			}
		}
	}
	return -1, false
}

// Value returns the cell of row under the first matching column
func (t *Table) Value(row int, names ...string) (string, bool) {
	if row < 0 || row >= t.Len() {
		return "", false
	}
	idx, ok := t.ColumnIndex(names...)
	if !ok || idx >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// Float parses the cell of row under the first matching column
func (t *Table) Float(row int, names ...string) (float64, bool) {
	v, ok := t.Value(row, names...)
	if !ok {
		return 0, false
	}
	return parseFloat(v)
}

// FloatColumn returns every parsable value of the first matching column.
// The bool reports whether the column exists at all.
func (t *Table) FloatColumn(names ...string) ([]float64, bool) {
	idx, ok := t.ColumnIndex(names...)
	if !ok {
		return nil, false
	}

	values := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		if f, ok := parseFloat(row[idx]); ok {
			values = append(values, f)
		}
	}
	return values, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
