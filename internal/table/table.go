// Package table accumulates flattened rows for one topic into an ordered,
// in-memory table that is handed off to a format writer.
package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roslabs/bag2table/internal/flatten"
)

// SchemaDriftError reports a row that carried field paths outside the
// topic's column set. The row is still appended; the unknown cells are
// dropped since the column set is fixed for the whole table.
type SchemaDriftError struct {
	Topic   string
	Row     int
	Unknown []string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("topic %s row %d: unknown columns [%s]",
		e.Topic, e.Row, strings.Join(e.Unknown, " "))
}

// Table is the ordered per-topic accumulation of flattened rows. The column
// set is fixed at construction; rows missing a column get a nil cell.
type Table struct {
	Topic   string
	Columns []flatten.Column
	Rows    [][]interface{}

	index map[string]int
}

func New(topic string, columns []flatten.Column) *Table {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col.Path] = i
	}
	return &Table{
		Topic:   topic,
		Columns: columns,
		index:   index,
	}
}

// ColumnNames returns the column paths in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Path
	}
	return names
}

// Append adds one row. It never drops the row: unknown keys are reported
// through the returned *SchemaDriftError (nil when the row fits the column
// set exactly) and missing columns are left nil.
func (t *Table) Append(row flatten.Row) *SchemaDriftError {
	cells := make([]interface{}, len(t.Columns))
	var unknown []string

	for path, value := range row {
		idx, ok := t.index[path]
		if !ok {
			unknown = append(unknown, path)
			continue
		}
		cells[idx] = value
	}

	t.Rows = append(t.Rows, cells)
	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)
	return &SchemaDriftError{Topic: t.Topic, Row: len(t.Rows) - 1, Unknown: unknown}
}

// Len is the number of accumulated rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
