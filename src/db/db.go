package db

import (
	"context"
	"errors"

	"git.handmade.network/hmn/pgdsl/src/config"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqlfmt"
)

/*
A general error to be used when no results are found. This is the error returned
by QueryOne, and can generally be used by other database helpers that fetch a single
result but find nothing.
*/
var NotFound = errors.New("not found")

// The annotation key holding a statement's query name. See GetQueryName.
const QueryNameAnnotation = "query_name"

/*
A connection plus the dialect used to format statements for it. Build one at
startup with ConfigureDatabase (or NewDatabase, if you already have a connection)
and pass it to whatever needs to talk to Postgres.
*/
type Database struct {
	Conn    ConnOrTx
	Dialect sqlfmt.Dialect
}

func NewDatabase(conn ConnOrTx, cfg config.FormatterConfig) *Database {
	d := DialectFromConfig(cfg)
	// pgx only understands numbered placeholders.
	d.Placeholder = sqlfmt.Dollar
	return &Database{
		Conn:    conn,
		Dialect: d,
	}
}

func DialectFromConfig(cfg config.FormatterConfig) sqlfmt.Dialect {
	var opts []sqlfmt.Option
	if cfg.Placeholder == "question" {
		opts = append(opts, sqlfmt.WithPlaceholder(sqlfmt.QuestionMark))
	}
	if cfg.Beautify {
		opts = append(opts, sqlfmt.WithBeautify(cfg.IndentSize))
	}
	return sqlfmt.Postgres(opts...)
}

// The same database, going through a different connection. Typically a
// transaction.
func (d *Database) WithConn(conn ConnOrTx) *Database {
	return &Database{
		Conn:    conn,
		Dialect: d.Dialect,
	}
}

// Formats a statement and binds its parameters for pgx.
func (d *Database) Format(e sqlexpr.Expression) (string, []any, error) {
	sql, params, err := d.Dialect.Format(e)
	if err != nil {
		return "", nil, err
	}
	args, err := BindParams(params)
	if err != nil {
		return "", nil, err
	}
	return nameQuery(queryName(e), sql), args, nil
}

func queryName(e sqlexpr.Expression) string {
	name, _ := e.Extra()[QueryNameAnnotation].(string)
	return name
}

// Runs a statement that returns no rows. Returns the number of rows affected.
func (d *Database) Exec(ctx context.Context, e sqlexpr.Expression) (int64, error) {
	sql, args, err := d.Format(e)
	if err != nil {
		return 0, err
	}
	tag, err := d.Conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, oops.New(err, "failed to execute %s", describe(e))
	}
	return tag.RowsAffected(), nil
}

/*
Runs a statement that returns rows. columns lists the result columns in the order
the statement selects them; Row.Get uses it to find values. The rows must be
closed after use.
*/
func (d *Database) Query(ctx context.Context, e sqlexpr.Expression, columns []*sqlexpr.ColumnReference) (*Rows, error) {
	sql, args, err := d.Format(e)
	if err != nil {
		return nil, err
	}
	rows, err := d.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.New(err, "failed to run %s", describe(e))
	}
	return newRows(rows, columns), nil
}

// Like Query, but returns only the first row, or NotFound if there was none.
func (d *Database) QueryOne(ctx context.Context, e sqlexpr.Expression, columns []*sqlexpr.ColumnReference) (*Row, error) {
	rows, err := d.Query(ctx, e, columns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	row, ok := rows.Next()
	if !ok {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, NotFound
	}
	return row, nil
}

func describe(e sqlexpr.Expression) string {
	if name := queryName(e); name != "" {
		return "query " + name
	}
	return "query"
}
