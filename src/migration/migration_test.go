package migration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"git.handmade.network/hmn/pgdsl/src/db/dbtest"
	"git.handmade.network/hmn/pgdsl/src/migration/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigration struct {
	version types.MigrationVersion
	name    string
}

func (m fakeMigration) Version() types.MigrationVersion {
	return m.version
}

func (m fakeMigration) Name() string {
	return m.name
}

func (m fakeMigration) Description() string {
	return ""
}

func (m fakeMigration) Up(ctx context.Context, tx pgx.Tx) error {
	return nil
}

func (m fakeMigration) Down(ctx context.Context, tx pgx.Tx) error {
	return nil
}

func version(day int) types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC))
}

func fakeMigrations() map[types.MigrationVersion]types.Migration {
	all := make(map[types.MigrationVersion]types.Migration)
	for i, name := range []string{"A", "B", "C"} {
		v := version(i + 1)
		all[v] = fakeMigration{version: v, name: name}
	}
	return all
}

func stepNames(steps []step) []string {
	var names []string
	for _, s := range steps {
		prefix := "down "
		if s.Up {
			prefix = "up "
		}
		names = append(names, prefix+s.Migration.Name())
	}
	return names
}

func TestPlanMigrations(t *testing.T) {
	all := fakeMigrations()

	t.Run("from scratch", func(t *testing.T) {
		steps, err := planMigrations(all, types.MigrationVersion{}, version(3))
		require.Nil(t, err)
		assert.Equal(t, []string{"up A", "up B", "up C"}, stepNames(steps))
		assert.True(t, steps[2].After.Equal(version(3)))
	})
	t.Run("partway", func(t *testing.T) {
		steps, err := planMigrations(all, version(1), version(2))
		require.Nil(t, err)
		assert.Equal(t, []string{"up B"}, stepNames(steps))
	})
	t.Run("backward", func(t *testing.T) {
		steps, err := planMigrations(all, version(3), version(1))
		require.Nil(t, err)
		assert.Equal(t, []string{"down C", "down B"}, stepNames(steps))
		assert.True(t, steps[0].After.Equal(version(2)))
		assert.True(t, steps[1].After.Equal(version(1)))
	})
	t.Run("already there", func(t *testing.T) {
		steps, err := planMigrations(all, version(2), version(2))
		require.Nil(t, err)
		assert.Empty(t, steps)
	})
	t.Run("unknown target", func(t *testing.T) {
		_, err := planMigrations(all, types.MigrationVersion{}, version(9))
		assert.ErrorIs(t, err, ErrUnknownVersion)
	})
	t.Run("unknown current", func(t *testing.T) {
		_, err := planMigrations(all, version(9), version(1))
		assert.ErrorIs(t, err, ErrUnknownVersion)
	})
}

func TestMigrate(t *testing.T) {
	conn := dbtest.NewConn()
	conn.QueueRows([]any{int64(1)})
	conn.QueueRows([]any{time.Time{}})

	err := Migrate(context.Background(), conn, types.MigrationVersion{})
	require.Nil(t, err)

	txs := conn.Transactions()
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Committed())

	sql := conn.SQL()
	require.Len(t, sql, 5)
	assert.Contains(t, sql[0], "CREATE TABLE IF NOT EXISTS pgdsl_migration")
	assert.Contains(t, sql[3], "CREATE TABLE book")
	assert.Equal(t, "UPDATE pgdsl_migration SET version = $1", sql[4])
	assert.Equal(t, time.Time(LatestVersion()), conn.LastCall().Args[0])
}

func TestMigrateRollsBackFailures(t *testing.T) {
	conn := dbtest.NewConn()
	conn.QueueRows([]any{int64(1)})
	conn.QueueRows([]any{time.Time{}})

	failing := &failingExec{Conn: conn}
	err := Migrate(context.Background(), failing, types.MigrationVersion{})
	require.NotNil(t, err)

	txs := conn.Transactions()
	require.Len(t, txs, 1)
	assert.True(t, txs[0].RolledBack())
	assert.False(t, txs[0].Committed())
}

// Fails every Exec that runs inside a transaction.
type failingExec struct {
	*dbtest.Conn
}

func (c *failingExec) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := c.Conn.Begin(ctx)
	return &failingTx{Tx: tx}, err
}

type failingTx struct {
	pgx.Tx
}

func (tx *failingTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, assert.AnError
}

func TestMakeMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 13, 45, 30, 0, time.UTC)

	path, err := MakeMigration(dir, "AddAuthor", "Adds an author column", now)
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-10-19T134530Z_AddAuthor.go"), path)

	contents, err := os.ReadFile(path)
	require.Nil(t, err)
	source := string(contents)
	assert.Contains(t, source, "registerMigration(AddAuthor{})")
	assert.Contains(t, source, "time.Date(2026, 10, 19, 13, 45, 30, 0, time.UTC)")
	assert.Contains(t, source, `return "Adds an author column"`)
	assert.False(t, strings.Contains(source, "%NAME%"))
}

func TestLatestVersion(t *testing.T) {
	latest := LatestVersion()
	for _, v := range getSortedMigrationVersions() {
		assert.False(t, latest.Before(v))
	}
}
