package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/fathomdata/salesdesk/internal/table"
)

// Querier executes SQL against the warehouse and returns results in the
// normalized tabular form, with column order preserved.
type Querier struct {
	db  Client
	log *slog.Logger
}

// NewQuerier creates a Querier over an existing client.
func NewQuerier(db Client, log *slog.Logger) *Querier {
	return &Querier{db: db, log: log}
}

// Query executes a SQL statement and scans every row. Column scan types come
// from the driver, so heterogeneous result shapes all land as generic cell
// values.
func (q *Querier) Query(ctx context.Context, sql string) (table.Table, error) {
	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")

	conn, err := q.db.Conn(ctx)
	if err != nil {
		return table.Table{}, fmt.Errorf("connection error: %w", err)
	}
	defer conn.Close()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns := rows.Columns()
	colTypes := rows.ColumnTypes()

	var result [][]any
	for rows.Next() {
		dest := make([]any, len(colTypes))
		for i, ct := range colTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return table.Table{}, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]any, len(dest))
		for i, v := range dest {
			row[i] = unwrapCell(v)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("error iterating rows: %w", err)
	}

	q.log.Debug("query executed", "rows", len(result), "columns", len(columns))

	return table.Table{Columns: columns, Rows: result}, nil
}

// unwrapCell dereferences the scan destination and flattens byte slices to
// strings so downstream formatting stays readable.
func unwrapCell(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	val := rv.Interface()
	if b, ok := val.([]byte); ok {
		return string(b)
	}
	return val
}
