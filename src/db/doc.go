/*
This package runs sqlexpr statements against Postgres through pgx.

A Database pairs a connection (pool, single connection, or transaction) with the
sqlfmt dialect used to render statements for it. Statements are formatted, their
parameters bound through each parameter's SQL type, and the result handed to pgx:

	d, closeDB, err := db.ConfigureDatabase(ctx, config.Config, runMigrations)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := d.Exec(ctx, &sqlexpr.DeleteExpression{
		Table: Book.Ref(),
		Where: Book.ID.Eq(sqltypes.Id(123)),
	})

Reading results

Query takes the list of columns the statement selects. Each Row can then extract a
value by column, using that column's SqlType to turn pgx's decoded value into the
Go type you expect:

	rows, err := d.Query(ctx, sel, schema.Exprs(Book.ID, BookTitle))
	if err != nil {
		return err
	}
	defer rows.Close()
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		title, err := db.Get[string](row, BookTitle.Expr())
		...
	}
	if err := rows.Err(); err != nil {
		return err
	}

Most code should go through the dsl package instead, which does all of this for
the common statement shapes.

Transactions

UseTransaction runs a function with a Database bound to a transaction. Nesting
joins the outer transaction rather than starting a savepoint.

Query names

Statements annotated with QueryNameAnnotation are sent with a leading "---- name"
comment. The tracer picks the name up for debug logging and perf blocks.
*/
package db
