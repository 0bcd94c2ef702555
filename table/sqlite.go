package table

import (
	"fmt"
	"strings"

	"github.com/npillmayer/mosra"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLite is a table in an SQLite database.
type SQLite struct {
	conn     *sqlite.Conn
	ownsConn bool
	name     string
	columns  []string
	colIndex map[string]int
	bulk     *sqlite.Stmt
}

var _ Table = &SQLite{}

// OpenSQLite opens table tableName in the database at path.
func OpenSQLite(path string, tableName string) (*SQLite, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite)
	if err != nil {
		return nil, mosra.IOError(err, "cannot open database %s", path)
	}
	t, err := NewSQLite(conn, tableName)
	if err != nil {
		conn.Close()
		return nil, err
	}
	t.ownsConn = true
	return t, nil
}

// NewSQLite wraps table tableName of an open connection. The connection
// stays owned by the caller.
func NewSQLite(conn *sqlite.Conn, tableName string) (*SQLite, error) {
	t := &SQLite{conn: conn, name: tableName, colIndex: make(map[string]int)}
	query := fmt.Sprintf("PRAGMA table_info(%s);", Quote(tableName))
	err := sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			col := stmt.GetText("name")
			t.colIndex[col] = len(t.columns)
			t.columns = append(t.columns, col)
			return nil
		},
	})
	if err != nil {
		return nil, mosra.IOError(err, "cannot read columns of table %s", tableName)
	}
	if len(t.columns) == 0 {
		return nil, mosra.IOError(nil, "table %s does not exist or has no columns", tableName)
	}
	tracer().Debugf("table %s has %d columns", tableName, len(t.columns))
	return t, nil
}

// Memory creates an in-memory database holding a single table with the
// given column types and rows.
func Memory(tableName string, columns []string, types []mosra.ValueType, rows []Row) (*SQLite, error) {
	conn, err := sqlite.OpenConn(":memory:", sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, mosra.IOError(err, "cannot open in-memory database")
	}
	if err = CreateTable(conn, tableName, columns, types, rows); err != nil {
		conn.Close()
		return nil, err
	}
	t, err := NewSQLite(conn, tableName)
	if err != nil {
		conn.Close()
		return nil, err
	}
	t.ownsConn = true
	return t, nil
}

// CreateTable creates a table and inserts rows in a single transaction.
func CreateTable(conn *sqlite.Conn, tableName string, columns []string, types []mosra.ValueType,
	rows []Row) (err error) {
	//
	if len(columns) != len(types) {
		return mosra.IOError(nil, "table %s: %d columns, but %d types", tableName, len(columns), len(types))
	}
	defer sqlitex.Save(conn)(&err)
	decl := make([]string, len(columns))
	for i, col := range columns {
		decl[i] = Quote(col) + " " + sqlType(types[i])
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s);", Quote(tableName), strings.Join(decl, ", "))
	if err = sqlitex.ExecuteTransient(conn, create, nil); err != nil {
		return mosra.IOError(err, "cannot create table %s", tableName)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);", Quote(tableName), QuoteAll(columns), marks)
	stmt, err := conn.Prepare(insert)
	if err != nil {
		return mosra.IOError(err, "cannot prepare insert into %s", tableName)
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return mosra.IOError(nil, "table %s: row %d has %d values", tableName, r, len(row))
		}
		for i, v := range row {
			bind(stmt, i+1, v)
		}
		if _, err = stmt.Step(); err != nil {
			return mosra.IOError(err, "cannot insert row %d into %s", r, tableName)
		}
		if err = stmt.Reset(); err != nil {
			return mosra.IOError(err, "cannot insert row %d into %s", r, tableName)
		}
	}
	tracer().Debugf("created table %s with %d rows", tableName, len(rows))
	return nil
}

func sqlType(vt mosra.ValueType) string {
	switch vt {
	case mosra.IntType:
		return "INTEGER"
	case mosra.DoubleType:
		return "REAL"
	}
	return "TEXT"
}

func bind(stmt *sqlite.Stmt, param int, v mosra.Value) {
	switch x := v.(type) {
	case mosra.Int:
		stmt.BindInt64(param, int64(x))
	case mosra.Double:
		stmt.BindFloat(param, float64(x))
	case mosra.Text:
		stmt.BindText(param, string(x))
	default:
		stmt.BindNull(param)
	}
}

// Name is part of interface Table.
func (t *SQLite) Name() string {
	return t.name
}

// Columns is part of interface Table.
func (t *SQLite) Columns() []string {
	return t.columns
}

// ColumnExists is part of interface Table.
func (t *SQLite) ColumnExists(name string) int {
	if i, ok := t.colIndex[name]; ok {
		return i
	}
	return -1
}

// PrepareBulkGet is part of interface Table. A bulk get in progress is
// abandoned.
func (t *SQLite) PrepareBulkGet(columns []string, where string, orderBy []string) error {
	t.finishBulk()
	for _, col := range append(append([]string{}, columns...), orderBy...) {
		if t.ColumnExists(col) < 0 {
			return mosra.LookupError("", -1, "table %s has no column %s", t.name, col)
		}
	}
	var q strings.Builder
	fmt.Fprintf(&q, "SELECT %s FROM %s", QuoteAll(columns), Quote(t.name))
	if where != "" {
		q.WriteString(" WHERE " + where)
	}
	if len(orderBy) > 0 {
		q.WriteString(" ORDER BY " + QuoteAll(orderBy))
	}
	q.WriteString(";")
	stmt, _, err := t.conn.PrepareTransient(q.String())
	if err != nil {
		return mosra.IOError(err, "cannot prepare %s", q.String())
	}
	tracer().Debugf("bulk get: %s", q.String())
	t.bulk = stmt
	return nil
}

// DoBulkGet is part of interface Table.
func (t *SQLite) DoBulkGet() (Row, bool, error) {
	if t.bulk == nil {
		return nil, false, nil
	}
	hasRow, err := t.bulk.Step()
	if err != nil {
		t.finishBulk()
		return nil, false, mosra.IOError(err, "bulk get on %s failed", t.name)
	}
	if !hasRow {
		t.finishBulk()
		return nil, false, nil
	}
	return readRow(t.bulk), true, nil
}

func (t *SQLite) finishBulk() {
	if t.bulk != nil {
		if err := t.bulk.Finalize(); err != nil {
			tracer().Errorf("cannot finalize bulk get on %s: %v", t.name, err)
		}
		t.bulk = nil
	}
}

// TableDataFetch is part of interface Table.
func (t *SQLite) TableDataFetch(query string) ([]Row, error) {
	var rows []Row
	err := sqlitex.ExecuteTransient(t.conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, readRow(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, mosra.IOError(err, "query failed: %s", query)
	}
	tracer().Debugf("%s -> %d rows", query, len(rows))
	return rows, nil
}

// Close is part of interface Table. The connection is closed only if the
// table owns it.
func (t *SQLite) Close() error {
	t.finishBulk()
	if t.ownsConn {
		return t.conn.Close()
	}
	return nil
}

// readRow converts the current result row of a statement.
func readRow(stmt *sqlite.Stmt) Row {
	n := stmt.ColumnCount()
	row := make(Row, n)
	for i := 0; i < n; i++ {
		switch stmt.ColumnType(i) {
		case sqlite.TypeInteger:
			row[i] = mosra.Int(stmt.ColumnInt64(i))
		case sqlite.TypeFloat:
			row[i] = mosra.Double(stmt.ColumnFloat(i))
		case sqlite.TypeNull:
			row[i] = mosra.Text("")
		default:
			row[i] = mosra.Text(stmt.ColumnText(i))
		}
	}
	return row
}
