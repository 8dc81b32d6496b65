package db

import (
	"context"

	"git.handmade.network/hmn/pgdsl/src/logging"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"github.com/jackc/pgx/v5"
)

/*
Runs f inside a transaction and commits if it returns without error. If f returns
an error or panics, the transaction is rolled back (and the panic continues).

If d is already using a transaction, f joins it: nothing is begun or committed
here, and opts is ignored. The outermost UseTransaction decides the outcome.
*/
func UseTransaction[T any](ctx context.Context, d *Database, opts pgx.TxOptions, f func(tx *Database) (T, error)) (result T, err error) {
	if _, inTx := d.Conn.(pgx.Tx); inTx {
		return f(d)
	}

	tx, err := beginTx(ctx, d.Conn, opts)
	if err != nil {
		var zero T
		return zero, oops.New(err, "failed to start transaction")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && rollbackErr != pgx.ErrTxClosed {
			logging.ExtractLogger(ctx).Error().Err(rollbackErr).Msg("failed to roll back transaction")
		}
	}()

	result, err = f(d.WithConn(tx))
	if err != nil {
		var zero T
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		var zero T
		return zero, oops.New(err, "failed to commit transaction")
	}
	committed = true

	return result, nil
}

// UseTransaction with the server's default isolation level.
func UseDefaultTransaction[T any](ctx context.Context, d *Database, f func(tx *Database) (T, error)) (T, error) {
	return UseTransaction(ctx, d, pgx.TxOptions{}, f)
}

func beginTx(ctx context.Context, conn ConnOrTx, opts pgx.TxOptions) (pgx.Tx, error) {
	if b, ok := conn.(txBeginner); ok {
		return b.BeginTx(ctx, opts)
	}
	return conn.Begin(ctx)
}
