package db_test

import (
	"context"
	"errors"
	"testing"

	"git.handmade.network/hmn/pgdsl/src/config"
	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/db/dbtest"
	"git.handmade.network/hmn/pgdsl/src/schema"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqlfmt"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var book = schema.NewTimestampedTable("book")
var bookTitle = book.Varchar("title")
var bookSomeIDs = book.IdArray("some_ids").Nullable()

func TestNewDatabase(t *testing.T) {
	d := db.NewDatabase(dbtest.NewConn(), config.FormatterConfig{
		Beautify:    true,
		IndentSize:  4,
		Placeholder: "question",
	})
	assert.Equal(t, sqlfmt.Dollar, d.Dialect.Placeholder)
	assert.True(t, d.Dialect.Beautify)
	assert.Equal(t, 4, d.Dialect.IndentSize)

	assert.Equal(t, sqlfmt.QuestionMark, db.DialectFromConfig(config.FormatterConfig{Placeholder: "question"}).Placeholder)
}

func TestExec(t *testing.T) {
	d, conn := dbtest.NewDatabase()
	conn.RowsAffected = 3

	del := &sqlexpr.DeleteExpression{
		Table:       book.Ref(),
		Where:       book.ID.Eq(sqltypes.Id(123)),
		Annotations: sqlexpr.Annotations{db.QueryNameAnnotation: "Delete book"},
	}
	n, err := d.Exec(context.Background(), del)
	require.Nil(t, err)
	assert.Equal(t, int64(3), n)

	call := conn.LastCall()
	assert.Equal(t, "---- Delete book\ndelete from book where id = $1", call.SQL)
	assert.Equal(t, []any{int32(123)}, call.Args)

	name, ok := db.GetQueryName(call.SQL)
	assert.True(t, ok)
	assert.Equal(t, "Delete book", name)
}

func TestExecErrors(t *testing.T) {
	t.Run("driver error", func(t *testing.T) {
		d, conn := dbtest.NewDatabase()
		boom := errors.New("boom")
		conn.Err = boom

		_, err := d.Exec(context.Background(), &sqlexpr.DeleteExpression{Table: book.Ref()})
		assert.True(t, errors.Is(err, boom))
	})
	t.Run("bad argument never reaches the connection", func(t *testing.T) {
		d, conn := dbtest.NewDatabase()

		_, err := d.Exec(context.Background(), &sqlexpr.DeleteExpression{
			Table: book.Ref(),
			Where: book.ID.Eq("not an id"),
		})
		assert.True(t, errors.Is(err, sqltypes.ErrTypeMismatch))
		assert.Empty(t, conn.Calls())
	})
}

func TestBindParams(t *testing.T) {
	u := uuid.New()
	args, err := db.BindParams([]sqlexpr.Param{
		{Type: sqltypes.IdArray, Value: []sqltypes.Id{1, 2}},
		{Type: sqltypes.Varchar, Value: "x"},
		{Type: sqltypes.UUIDArray, Value: []uuid.UUID{u}},
		{Type: sqltypes.Int, Value: nil},
	})
	require.Nil(t, err)
	require.Len(t, args, 4)
	assert.Equal(t, []int32{1, 2}, args[0])
	assert.Equal(t, "x", args[1])
	assert.Len(t, args[2], 1)
	assert.Nil(t, args[3])

	_, err = db.BindParams([]sqlexpr.Param{{Type: sqltypes.Bool, Value: 1}})
	assert.True(t, errors.Is(err, sqltypes.ErrTypeMismatch))
	assert.Contains(t, err.Error(), "$1")

	_, err = db.BindParams([]sqlexpr.Param{{Value: 1}})
	assert.True(t, errors.Is(err, sqltypes.ErrTypeMismatch))
}

func TestQuery(t *testing.T) {
	d, conn := dbtest.NewDatabase()
	conn.QueueRows(
		[]any{int32(1), "first", []any{int32(4), nil, int32(5)}},
		[]any{int32(2), nil, nil},
	)

	columns := schema.Exprs(book.ID, bookTitle, bookSomeIDs)
	sel := &sqlexpr.SelectExpression{
		Columns: []sqlexpr.Expression{book.ID.Expr(), bookTitle.Expr(), bookSomeIDs.Expr()},
		From:    book.Ref(),
	}

	rows, err := d.Query(context.Background(), sel, columns)
	require.Nil(t, err)
	defer rows.Close()

	row, ok := rows.Next()
	require.True(t, ok)
	id, err := db.Get[sqltypes.Id](row, book.ID.Expr())
	require.Nil(t, err)
	assert.Equal(t, sqltypes.Id(1), id)
	title, err := db.Get[string](row, bookTitle.Expr())
	require.Nil(t, err)
	assert.Equal(t, "first", title)
	ids, err := db.Get[[]sqltypes.Id](row, bookSomeIDs.Expr())
	require.Nil(t, err)
	assert.Equal(t, []sqltypes.Id{4, 5}, ids)

	row, ok = rows.Next()
	require.True(t, ok)
	rawTitle, err := row.Get(bookTitle.Expr())
	require.Nil(t, err)
	assert.Nil(t, rawTitle)

	_, err = row.Get(book.CreationTimestamp.Expr())
	assert.True(t, errors.Is(err, db.ErrUnknownColumn))

	_, err = db.Get[int64](row, book.ID.Expr())
	assert.True(t, errors.Is(err, sqltypes.ErrTypeMismatch))

	_, ok = rows.Next()
	assert.False(t, ok)
	assert.Nil(t, rows.Err())

	assert.Equal(t, "select id, title, some_ids from book", conn.LastCall().SQL)
}

func TestQueryOne(t *testing.T) {
	d, conn := dbtest.NewDatabase()
	sel := &sqlexpr.SelectExpression{
		Columns: []sqlexpr.Expression{book.ID.Expr()},
		From:    book.Ref(),
		Where:   book.ID.Eq(sqltypes.Id(9)),
	}
	columns := schema.Exprs(book.ID)

	_, err := d.QueryOne(context.Background(), sel, columns)
	assert.True(t, errors.Is(err, db.NotFound))

	conn.QueueRows([]any{int32(9)})
	row, err := d.QueryOne(context.Background(), sel, columns)
	require.Nil(t, err)
	assert.Equal(t, []any{int32(9)}, row.Values())
}

func TestUseTransaction(t *testing.T) {
	ctx := context.Background()
	del := &sqlexpr.DeleteExpression{Table: book.Ref()}

	t.Run("commits", func(t *testing.T) {
		d, conn := dbtest.NewDatabase()

		n, err := db.UseTransaction(ctx, d, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx *db.Database) (int64, error) {
			assert.NotSame(t, d, tx)
			return tx.Exec(ctx, del)
		})
		require.Nil(t, err)
		assert.Equal(t, int64(1), n)

		txs := conn.Transactions()
		require.Len(t, txs, 1)
		assert.True(t, txs[0].Committed())
		assert.False(t, txs[0].RolledBack())
		assert.Equal(t, pgx.Serializable, conn.TxOptions()[0].IsoLevel)
		assert.Len(t, conn.Calls(), 1)
	})
	t.Run("rolls back on error", func(t *testing.T) {
		d, conn := dbtest.NewDatabase()
		boom := errors.New("boom")

		_, err := db.UseDefaultTransaction(ctx, d, func(tx *db.Database) (bool, error) {
			return true, boom
		})
		assert.True(t, errors.Is(err, boom))

		txs := conn.Transactions()
		require.Len(t, txs, 1)
		assert.False(t, txs[0].Committed())
		assert.True(t, txs[0].RolledBack())
	})
	t.Run("rolls back on panic", func(t *testing.T) {
		d, conn := dbtest.NewDatabase()

		assert.Panics(t, func() {
			db.UseDefaultTransaction(ctx, d, func(tx *db.Database) (bool, error) {
				panic("oh no")
			})
		})
		assert.True(t, conn.Transactions()[0].RolledBack())
	})
	t.Run("nested calls share the transaction", func(t *testing.T) {
		d, conn := dbtest.NewDatabase()

		_, err := db.UseDefaultTransaction(ctx, d, func(outer *db.Database) (bool, error) {
			return db.UseDefaultTransaction(ctx, outer, func(inner *db.Database) (bool, error) {
				assert.Same(t, outer, inner)
				_, err := inner.Exec(ctx, del)
				return true, err
			})
		})
		require.Nil(t, err)
		require.Len(t, conn.Transactions(), 1)
		assert.True(t, conn.Transactions()[0].Committed())
	})
}

func TestQueryBuilder(t *testing.T) {
	qb := db.NewQueryBuilder("Books by title")
	qb.Add("SELECT id FROM book WHERE title = $?", "a")
	err := qb.AddParams("AND some_ids @> $? AND id > $?",
		sqlexpr.Param{Type: sqltypes.IdArray, Value: []sqltypes.Id{3}},
		sqlexpr.Param{Type: sqltypes.IdType, Value: sqltypes.Id(7)},
	)
	require.Nil(t, err)

	assert.Equal(t, "---- Books by title\nSELECT id FROM book WHERE title = $1\nAND some_ids @> $2 AND id > $3\n", qb.String())
	assert.Equal(t, []any{"a", []int32{3}, int32(7)}, qb.Args())

	assert.Panics(t, func() {
		qb.Add("$? $?", 1)
	})
	err = qb.AddParams("$?", sqlexpr.Param{Type: sqltypes.IdType, Value: "nope"})
	assert.True(t, errors.Is(err, sqltypes.ErrTypeMismatch))
}
