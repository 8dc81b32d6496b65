/*
Package dsl builds the everyday statements (select, update, upsert, bulk insert,
delete) from schema declarations and runs them through a db.Database.

	type BooksTable struct {
		*schema.TimestampedTable
		Title   *schema.Column
		SomeIDs *schema.Column
	}

	n, err := dsl.Update(ctx, d, Books, func(b *dsl.UpdateBuilder, t *BooksTable) {
		b.Set(t.Title, "some title")
		b.Where(t.ID.Eq(sqltypes.Id(123)))
	})

Builder blocks run synchronously inside the call. A malformed statement (for
example a nil operand) panics while the block runs; the helpers recover that and
return it as an error wrapping sqlexpr.ErrMalformedExpression.
*/
package dsl

import (
	"errors"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/schema"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
)

// An upsert needed a conflict target and the table has no primary key to default to.
var ErrNoPrimaryKey = errors.New("table has no primary key")

func named(operation string, table *schema.Table) sqlexpr.Annotations {
	return sqlexpr.Annotations{db.QueryNameAnnotation: operation + " " + table.Name}
}

// Collects column = value pairs, in the order Set is called.
type AssignmentsBuilder struct {
	assignments []*sqlexpr.AssignmentExpression
}

// Values that are not expressions are bound with the column's SQL type.
func (b *AssignmentsBuilder) Set(column *schema.Column, value any) {
	b.assignments = append(b.assignments, column.Set(value))
}

func (b *AssignmentsBuilder) Assignments() []*sqlexpr.AssignmentExpression {
	return b.assignments
}
