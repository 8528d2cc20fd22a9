package sink

import (
	"slices"
	"sort"
)

// Table is an ordered set of rows sharing a column list. Rows may omit
// columns; missing cells are written empty.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table without columns.
func NewTable() *Table {
	return &Table{}
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds rows in order. Keys not yet present become new columns, added
// after the existing ones in alphabetical order.
func (t *Table) Append(rows ...Row) {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = struct{}{}
	}

	var added []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			added = append(added, k)
		}
	}
	sort.Strings(added)

	t.Columns = append(t.Columns, added...)
	t.Rows = append(t.Rows, rows...)
}

// Concat appends other's rows, keeping this table's column order and adding
// other's unseen columns in other's order.
func (t *Table) Concat(other *Table) {
	for _, c := range other.Columns {
		if !slices.Contains(t.Columns, c) {
			t.Columns = append(t.Columns, c)
		}
	}
	t.Rows = append(t.Rows, other.Rows...)
}

// Drop removes the named columns. Names that are not present are ignored.
func (t *Table) Drop(columns []string) {
	if len(columns) == 0 {
		return
	}
	t.Columns = slices.DeleteFunc(t.Columns, func(c string) bool {
		return slices.Contains(columns, c)
	})
	for _, row := range t.Rows {
		for _, c := range columns {
			delete(row, c)
		}
	}
}

// Rename renames columns in place. Names that are not present are ignored.
// When a target name already exists, the renamed values win and the column
// keeps its first position.
func (t *Table) Rename(names map[string]string) {
	if len(names) == 0 {
		return
	}

	columns := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if to, ok := names[c]; ok {
			c = to
		}
		if !slices.Contains(columns, c) {
			columns = append(columns, c)
		}
	}
	t.Columns = columns

	for _, row := range t.Rows {
		moved := make(Row, len(names))
		for from, to := range names {
			if v, ok := row[from]; ok {
				delete(row, from)
				moved[to] = v
			}
		}
		for k, v := range moved {
			row[k] = v
		}
	}
}
