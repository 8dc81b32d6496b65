package migrations

import (
	"context"
	"time"

	"git.handmade.network/hmn/pgdsl/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(CreateBookTable{})
}

type CreateBookTable struct{}

func (m CreateBookTable) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
}

func (m CreateBookTable) Name() string {
	return "CreateBookTable"
}

func (m CreateBookTable) Description() string {
	return "Creates the book table used by the samples and seed commands"
}

func (m CreateBookTable) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE book (
			id SERIAL PRIMARY KEY,
			creation_timestamp TIMESTAMP NOT NULL DEFAULT now(),
			title VARCHAR(255) NOT NULL,
			some_ids INT[] NOT NULL DEFAULT '{}',
			some_uuids UUID[]
		);
		CREATE UNIQUE INDEX book_title ON book (title);
	`)
	return err
}

func (m CreateBookTable) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE book;
	`)
	return err
}
