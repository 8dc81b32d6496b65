package dsl

import (
	"context"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/schema"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/utils"
)

type UpdateBuilder struct {
	AssignmentsBuilder
	where sqlexpr.Expression
}

// Conditions are ANDed with any from earlier calls. With no conditions at all,
// every row is updated.
func (b *UpdateBuilder) Where(conditions ...sqlexpr.Expression) {
	b.where = sqlexpr.AllOf(append([]sqlexpr.Expression{b.where}, conditions...)...)
}

// Builds an update in block, runs it, and returns the number of rows affected.
func Update[T schema.TableLike](ctx context.Context, d *db.Database, table T, block func(b *UpdateBuilder, t T)) (n int64, err error) {
	defer utils.RecoverPanicAsError(&err)

	var b UpdateBuilder
	block(&b, table)

	base := table.Base()
	return d.Exec(ctx, &sqlexpr.UpdateExpression{
		Table:       base.Ref(),
		Assignments: b.assignments,
		Where:       b.where,
		Annotations: named("Update", base),
	})
}

/*
What to do when an insert hits a unique constraint. Either call DoNothing, or Set
the columns to update. Setting nothing updates every inserted column to the value
that was proposed for insertion.
*/
type ConflictBuilder struct {
	AssignmentsBuilder
	columns   []*schema.Column
	doNothing bool
}

func (c *ConflictBuilder) DoNothing() {
	c.doNothing = true
}

type conflictClause struct {
	conflict *ConflictBuilder
}

/*
Sets the conflict target. With no columns, an update uses the table's primary
key and DO NOTHING applies to any conflict.
*/
func (c *conflictClause) OnConflict(columns ...*schema.Column) *ConflictBuilder {
	c.conflict = &ConflictBuilder{columns: columns}
	return c.conflict
}

func (c *conflictClause) build(table *schema.Table, inserted []*sqlexpr.AssignmentExpression) (*sqlexpr.OnConflictExpression, error) {
	conflict := c.conflict
	if conflict == nil {
		conflict = &ConflictBuilder{}
	}

	if conflict.doNothing {
		return &sqlexpr.OnConflictExpression{
			Columns:   schema.Exprs(conflict.columns...),
			DoNothing: true,
		}, nil
	}

	columns := conflict.columns
	if len(columns) == 0 {
		pk := table.PrimaryKey()
		if pk == nil {
			return nil, oops.New(ErrNoPrimaryKey, "no conflict target given for %s, and it has no primary key", table.Name)
		}
		columns = []*schema.Column{pk}
	}

	updates := conflict.assignments
	if len(updates) == 0 {
		for _, a := range inserted {
			updates = append(updates, sqlexpr.Assign(a.Column, sqlexpr.Column(sqlexpr.Excluded, a.Column.Name, a.Column.Type)))
		}
	}

	return &sqlexpr.OnConflictExpression{
		Columns: schema.Exprs(columns...),
		Updates: updates,
	}, nil
}

type InsertOrUpdateBuilder struct {
	AssignmentsBuilder
	conflictClause
}

func buildInsertOrUpdate[T schema.TableLike](table T, block func(b *InsertOrUpdateBuilder, t T)) (*sqlexpr.InsertExpression, error) {
	var b InsertOrUpdateBuilder
	block(&b, table)

	base := table.Base()
	onConflict, err := b.build(base, b.assignments)
	if err != nil {
		return nil, err
	}
	return &sqlexpr.InsertExpression{
		Table:       base.Ref(),
		Assignments: b.assignments,
		OnConflict:  onConflict,
	}, nil
}

/*
Inserts a row, or updates the existing one on conflict. Returns the number of rows
affected.

	n, err := dsl.InsertOrUpdate(ctx, d, Books, func(b *dsl.InsertOrUpdateBuilder, t *BooksTable) {
		b.Set(t.Title, "some title")
		b.OnConflict().DoNothing()
	})

Without a call to OnConflict, conflicts on the primary key update every inserted
column.
*/
func InsertOrUpdate[T schema.TableLike](ctx context.Context, d *db.Database, table T, block func(b *InsertOrUpdateBuilder, t T)) (n int64, err error) {
	defer utils.RecoverPanicAsError(&err)

	ins, err := buildInsertOrUpdate(table, block)
	if err != nil {
		return 0, err
	}
	ins.Annotations = named("InsertOrUpdate", table.Base())
	return d.Exec(ctx, ins)
}

/*
Like InsertOrUpdate, but returns the value of one column of the inserted or
updated row.

	bookID, err := dsl.InsertOrUpdateReturning[sqltypes.Id](ctx, d, Books, Books.ID, func(b *dsl.InsertOrUpdateBuilder, t *BooksTable) {
		b.Set(t.Title, "some title")
		b.Set(t.SomeIDs, []sqltypes.Id{1, 2})
		b.OnConflict(t.SomeIDs).Set(t.SomeIDs, []sqltypes.Id{3, 4})
	})

If the conflict action is DO NOTHING and a conflict happens, no row comes back and
the error is db.NotFound.
*/
func InsertOrUpdateReturning[C any, T schema.TableLike](ctx context.Context, d *db.Database, table T, returning *schema.Column, block func(b *InsertOrUpdateBuilder, t T)) (result C, err error) {
	defer utils.RecoverPanicAsError(&err)

	ins, err := buildInsertOrUpdate(table, block)
	if err != nil {
		return result, err
	}
	ins.Returning = schema.Exprs(returning)
	ins.Annotations = named("InsertOrUpdateReturning", table.Base())

	row, err := d.QueryOne(ctx, ins, ins.Returning)
	if err != nil {
		return result, err
	}
	return db.Get[C](row, returning.Expr())
}

// Deletes the row whose primary key is id. Returns the number of rows affected.
func Delete(ctx context.Context, d *db.Database, table schema.TableLike, id any) (n int64, err error) {
	defer utils.RecoverPanicAsError(&err)

	base := table.Base()
	pk := base.PrimaryKey()
	if pk == nil {
		return 0, oops.New(ErrNoPrimaryKey, "cannot delete a row of %s by id", base.Name)
	}
	return d.Exec(ctx, &sqlexpr.DeleteExpression{
		Table:       base.Ref(),
		Where:       pk.Eq(id),
		Annotations: named("Delete", base),
	})
}
