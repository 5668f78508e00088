package table

import (
	"fmt"
	"sort"

	"datalab/internal/errors"
)

// Table is an ordered set of named, equal-length columns
type Table struct {
	columns []Column
	index   map[string]int
}

// New builds a table, enforcing unique column names and equal column lengths.
// Column kinds are (re)inferred from the values.
func New(columns []Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if _, dup := t.index[col.Name]; dup {
			return nil, errors.ValidationError(fmt.Sprintf("duplicate column name %q", col.Name))
		}
		if i > 0 && len(col.Values) != len(columns[0].Values) {
			return nil, errors.ValidationError(fmt.Sprintf(
				"column %q has %d values, expected %d", col.Name, len(col.Values), len(columns[0].Values)))
		}
		col.Kind = InferKind(col.Values)
		t.columns[i] = col
		t.index[col.Name] = i
	}

	return t, nil
}

// Columns returns the columns in order
func (t *Table) Columns() []Column {
	return t.columns
}

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of rows
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Values)
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.columns[i], true
}

// Row returns the values of row i in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Records returns one map per row keyed by column name
func (t *Table) Records() []map[string]Value {
	records := make([]map[string]Value, t.Len())
	for i := range records {
		rec := make(map[string]Value, len(t.columns))
		for _, c := range t.columns {
			rec[c.Name] = c.Values[i]
		}
		records[i] = rec
	}
	return records
}

// FromRecords builds a table from row records such as a decoded JSON payload.
// Column order follows names; when names is empty the union of record keys is
// used, sorted alphabetically. Keys absent from a record become missing values.
func FromRecords(names []string, records []map[string]interface{}) (*Table, error) {
	if len(names) == 0 {
		seen := make(map[string]bool)
		for _, rec := range records {
			for k := range rec {
				if !seen[k] {
					seen[k] = true
					names = append(names, k)
				}
			}
		}
		sort.Strings(names)
	}

	columns := make([]Column, len(names))
	for j, name := range names {
		values := make([]Value, len(records))
		for i, rec := range records {
			values[i] = ValueFromAny(rec[name])
		}
		columns[j] = Column{Name: name, Values: values}
	}

	return New(columns)
}
