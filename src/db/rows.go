package db

import (
	"errors"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
	"github.com/jackc/pgx/v5"
)

var ErrUnknownColumn = errors.New("column not in result")

type Rows struct {
	rows    pgx.Rows
	columns []*sqlexpr.ColumnReference
	err     error
}

func newRows(rows pgx.Rows, columns []*sqlexpr.ColumnReference) *Rows {
	return &Rows{
		rows:    rows,
		columns: columns,
	}
}

// Advances to the next row. Returns false when there are no more rows or
// something went wrong; check Err afterward.
func (r *Rows) Next() (*Row, bool) {
	if r.err != nil || !r.rows.Next() {
		return nil, false
	}

	values, err := r.rows.Values()
	if err != nil {
		r.err = oops.New(err, "failed to read row values")
		r.rows.Close()
		return nil, false
	}

	return &Row{
		values:  values,
		columns: r.columns,
	}, true
}

func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Err(); err != nil {
		return oops.New(err, "error while reading rows")
	}
	return nil
}

func (r *Rows) Close() {
	r.rows.Close()
}

// One result row, as pgx decoded it.
type Row struct {
	values  []any
	columns []*sqlexpr.ColumnReference
}

func (r *Row) index(col *sqlexpr.ColumnReference) (int, bool) {
	for i, c := range r.columns {
		if c == col {
			return i, true
		}
	}
	// Columns declared twice (e.g. a table and its alias) still match by name.
	for i, c := range r.columns {
		if c.Name == col.Name {
			return i, true
		}
	}
	return 0, false
}

// Extracts the value of col through its SQL type. SQL NULL comes back as nil.
func (r *Row) Get(col *sqlexpr.ColumnReference) (any, error) {
	i, ok := r.index(col)
	if !ok {
		return nil, oops.New(ErrUnknownColumn, "column %s was not selected", col.Name)
	}
	if col.Type == nil {
		return nil, oops.New(sqlexpr.ErrMalformedExpression, "column %s has no type", col.Name)
	}
	return col.Type.Extract(r.values, i)
}

// The raw values, in select order.
func (r *Row) Values() []any {
	return r.values
}

/*
Extracts the value of col and converts it to T. NULL becomes the zero value of T.

	title, err := db.Get[string](row, BookTitle.Expr())
*/
func Get[T any](r *Row, col *sqlexpr.ColumnReference) (T, error) {
	var zero T
	v, err := r.Get(col)
	if err != nil || v == nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, oops.New(sqltypes.ErrTypeMismatch, "column %s holds %T, not %T", col.Name, v, zero)
	}
	return typed, nil
}
