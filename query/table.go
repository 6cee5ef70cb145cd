/*

Package query builds the columnar result tables spec §4.H's public
operations return: a curated player/team/rules property resolver on top
of package entity's live World, and the top-level parse_* functions that
drive a package demo Parser end to end to answer one question.

*/
package query

import "github.com/icza/cs2replay/schema"

// Table is a columnar result set: one ordered column name list and one
// row per sample, each cell a tagged schema.Value so ragged array-valued
// columns (e.g. a weapon's ammo clip) need no separate representation.
type Table struct {
	Columns []string
	Rows    [][]schema.Value
}

// NewTable returns an empty Table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string{}, columns...)}
}

// AddRow appends one row. len(vals) must equal len(t.Columns).
func (t *Table) AddRow(vals ...schema.Value) {
	t.Rows = append(t.Rows, vals)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns every row's value at the named column, or nil if the
// table has no such column.
func (t *Table) Column(name string) []schema.Value {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]schema.Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}
