package dsl

import (
	"context"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/schema"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/utils"
)

/*
A select from one table, built up step by step:

	err := dsl.From(d, Books).
		Select(Books.ID, Books.Title).
		OrderBy(Books.CreationTimestamp.Desc()).
		Map(ctx, func(row *db.Row) error { ... })
*/
type Query struct {
	d       *db.Database
	table   *schema.Table
	name    string
	columns []*schema.Column
	where   sqlexpr.Expression
	orderBy []*sqlexpr.OrderByExpression
	limit   int
	offset  int
}

func From(d *db.Database, table schema.TableLike) *Query {
	return &Query{
		d:     d,
		table: table.Base(),
		name:  "Select",
	}
}

// With no columns, every declared column of the table is selected.
func (q *Query) Select(columns ...*schema.Column) *Query {
	q.columns = columns
	return q
}

// Conditions are ANDed with any from earlier calls.
func (q *Query) Where(conditions ...sqlexpr.Expression) *Query {
	q.where = sqlexpr.AllOf(append([]sqlexpr.Expression{q.where}, conditions...)...)
	return q
}

func (q *Query) OrderBy(orderBy ...*sqlexpr.OrderByExpression) *Query {
	q.orderBy = append(q.orderBy, orderBy...)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

func (q *Query) named(operation string) *Query {
	q.name = operation
	return q
}

func (q *Query) selected() []*schema.Column {
	if len(q.columns) > 0 {
		return q.columns
	}
	return q.table.Columns()
}

func (q *Query) Expression() *sqlexpr.SelectExpression {
	selected := q.selected()
	columns := make([]sqlexpr.Expression, len(selected))
	for i, c := range selected {
		columns[i] = c.Expr()
	}
	return &sqlexpr.SelectExpression{
		Columns:     columns,
		From:        q.table.Ref(),
		Where:       q.where,
		OrderBy:     q.orderBy,
		Limit:       q.limit,
		Offset:      q.offset,
		Annotations: named(q.name, q.table),
	}
}

// Runs the query and calls f for each row. Stops at the first error f returns.
// A panic in f is returned as an error.
func (q *Query) Map(ctx context.Context, f func(row *db.Row) error) (err error) {
	defer utils.RecoverPanicAsError(&err)

	rows, err := q.d.Query(ctx, q.Expression(), schema.Exprs(q.selected()...))
	if err != nil {
		return err
	}
	defer rows.Close()

	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		if err := f(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Runs the query and transforms every row.
func Collect[R any](ctx context.Context, q *Query, transform func(row *db.Row) (R, error)) ([]R, error) {
	var result []R
	err := q.Map(ctx, func(row *db.Row) error {
		r, err := transform(row)
		if err != nil {
			return err
		}
		result = append(result, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Selects columns (all, if none are given) from every row of table.
func Read[R any](ctx context.Context, d *db.Database, table schema.TableLike, transform func(row *db.Row) (R, error), columns ...*schema.Column) ([]R, error) {
	q := From(d, table).Select(columns...).named("Read")
	return Collect(ctx, q, transform)
}

// Selects the row whose primary key is id. Returns db.NotFound if there is none.
func Find[R any](ctx context.Context, d *db.Database, table schema.TableLike, id any, transform func(row *db.Row) (R, error), columns ...*schema.Column) (R, error) {
	var zero R

	pk := table.Base().PrimaryKey()
	if pk == nil {
		return zero, oops.New(ErrNoPrimaryKey, "cannot find a row of %s by id", table.Base().Name)
	}

	q := From(d, table).Select(columns...).Where(pk.Eq(id)).named("Find")
	results, err := Collect(ctx, q, transform)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, db.NotFound
	}
	return results[0], nil
}
