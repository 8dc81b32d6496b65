package dsl

import (
	"context"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/schema"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/utils"
)

// Configures the ON CONFLICT clause of BulkInsertOrUpdate.
type BulkInsertOrUpdateBuilder struct {
	conflictClause
}

func bulkRows[T schema.TableLike, M any](table T, models []M, f func(b *AssignmentsBuilder, t T, model M)) [][]*sqlexpr.AssignmentExpression {
	rows := make([][]*sqlexpr.AssignmentExpression, len(models))
	for i, model := range models {
		var b AssignmentsBuilder
		f(&b, table, model)
		rows[i] = b.assignments
	}
	return rows
}

/*
Inserts one row per model in a single multi-row INSERT. f must set the same columns,
in the same order, for every model. Returns the number of rows inserted; an empty
models list does nothing and returns 0.

	n, err := dsl.BulkInsert(ctx, d, Books, []string{"some title 1", "some title 2"},
		func(b *dsl.AssignmentsBuilder, t *BooksTable, title string) {
			b.Set(t.Title, title)
		},
	)
*/
func BulkInsert[T schema.TableLike, M any](ctx context.Context, d *db.Database, table T, models []M, f func(b *AssignmentsBuilder, t T, model M)) (n int64, err error) {
	if len(models) == 0 {
		return 0, nil
	}
	defer utils.RecoverPanicAsError(&err)

	base := table.Base()
	return d.Exec(ctx, &sqlexpr.BulkInsertExpression{
		Table:       base.Ref(),
		Rows:        bulkRows(table, models, f),
		Annotations: named("BulkInsert", base),
	})
}

/*
Like BulkInsert, with an ON CONFLICT clause configured by conf. A nil conf, or one
that never calls OnConflict, updates every inserted column on primary key
conflicts.

	n, err := dsl.BulkInsertOrUpdate(ctx, d, Books, titles,
		func(b *dsl.BulkInsertOrUpdateBuilder, t *BooksTable) {
			b.OnConflict(t.Title).DoNothing()
		},
		func(b *dsl.AssignmentsBuilder, t *BooksTable, title string) {
			b.Set(t.Title, title)
		},
	)
*/
func BulkInsertOrUpdate[T schema.TableLike, M any](
	ctx context.Context,
	d *db.Database,
	table T,
	models []M,
	conf func(b *BulkInsertOrUpdateBuilder, t T),
	f func(b *AssignmentsBuilder, t T, model M),
) (n int64, err error) {
	if len(models) == 0 {
		return 0, nil
	}
	defer utils.RecoverPanicAsError(&err)

	var b BulkInsertOrUpdateBuilder
	if conf != nil {
		conf(&b, table)
	}

	base := table.Base()
	rows := bulkRows(table, models, f)
	onConflict, err := b.build(base, rows[0])
	if err != nil {
		return 0, err
	}

	return d.Exec(ctx, &sqlexpr.BulkInsertExpression{
		Table:       base.Ref(),
		Rows:        rows,
		OnConflict:  onConflict,
		Annotations: named("BulkInsertOrUpdate", base),
	})
}
