/*
Package table is the attribute table collaborator of the compiler.

The compiler reads spatial units row by row, ordered by the dimensions its
loops iterate over, and asks ad-hoc aggregate queries (COUNT, DISTINCT,
GROUP BY) to determine iteration lengths. Any backend has to offer an SQL
query surface. This package implements one on top of SQLite.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package table

import (
	"strings"

	"github.com/npillmayer/mosra"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'mosra.table'.
func tracer() tracing.Trace {
	return tracing.Select("mosra.table")
}

// Row is a row of typed values.
type Row []mosra.Value

// Table is an attribute table.
type Table interface {
	Name() string
	Columns() []string
	ColumnExists(name string) int // column index or -1
	// PrepareBulkGet starts reading columns of rows satisfying where
	// (may be empty), ordered by the orderBy columns.
	PrepareBulkGet(columns []string, where string, orderBy []string) error
	// DoBulkGet returns the next row of a bulk get; ok is false after
	// the last row.
	DoBulkGet() (row Row, ok bool, err error)
	// TableDataFetch runs an ad-hoc query.
	TableDataFetch(query string) ([]Row, error)
	Close() error
}

// Quote quotes an identifier for use in SQL.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteText quotes a string literal for use in SQL.
func QuoteText(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// QuoteAll quotes a list of identifiers and joins them with commas.
func QuoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = Quote(n)
	}
	return strings.Join(q, ", ")
}

// ReadAll collects all rows of a bulk get.
func ReadAll(t Table, columns []string, where string, orderBy []string) ([]Row, error) {
	if err := t.PrepareBulkGet(columns, where, orderBy); err != nil {
		return nil, err
	}
	var rows []Row
	for {
		row, ok, err := t.DoBulkGet()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}
