package db

import (
	"context"
	"time"

	"git.handmade.network/hmn/pgdsl/src/config"
	"git.handmade.network/hmn/pgdsl/src/logging"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpillora/backoff"
)

// Runs once the database is reachable, before ConfigureDatabase returns. This is
// where migrations go.
type OnConfigured func(ctx context.Context, conn ConnOrTx) error

/*
Connects to the database described by cfg, retrying with exponential backoff until
it answers a ping or ctx is done. Then runs onConfigured (which may be nil) and
returns the ready-to-use Database.

The returned pool belongs to the caller; close it with Close when done.
*/
func ConfigureDatabase(ctx context.Context, cfg config.PgdslConfig, onConfigured OnConfigured) (*Database, func(), error) {
	boff := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	pool, err := retryUntilConnected(ctx, boff, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := NewConnPoolWithConfig(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, oops.New(err, "database did not answer ping")
		}
		return pool, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if onConfigured != nil {
		if err := onConfigured(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, oops.New(err, "failed to finish configuring database")
		}
	}

	return NewDatabase(pool, cfg.Formatter), pool.Close, nil
}

func retryUntilConnected[C any](ctx context.Context, boff *backoff.Backoff, connect func(ctx context.Context) (C, error)) (C, error) {
	for {
		conn, err := connect(ctx)
		if err == nil {
			if boff.Attempt() > 0 {
				logging.ExtractLogger(ctx).Info().Float64("attempts", boff.Attempt()+1).Msg("connected to database")
			}
			return conn, nil
		}

		dur := boff.Duration()
		logging.ExtractLogger(ctx).Warn().
			Err(err).
			Dur("retrying after", dur).
			Msg("failed to connect to database")

		if err := utils.SleepContext(ctx, dur); err != nil {
			var zero C
			return zero, oops.New(err, "gave up connecting to database")
		}
	}
}
