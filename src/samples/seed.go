package samples

import (
	"context"

	"git.handmade.network/hmn/pgdsl/src/cli"
	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/dsl"
	"git.handmade.network/hmn/pgdsl/src/logging"
	"git.handmade.network/hmn/pgdsl/src/migration"
	"git.handmade.network/hmn/pgdsl/src/migration/types"
	"github.com/spf13/cobra"
)

func init() {
	var count int

	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Migrate the database and fill the book table with random books",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.Context()
			defer cancel()

			return cli.WithDatabase(ctx, migration.OnConfigured(types.MigrationVersion{}), func(ctx context.Context, d *db.Database) error {
				n, err := Seed(ctx, d, count)
				if err != nil {
					return err
				}
				logging.Info().Int64("rows", n).Msg("Seeded books")
				return nil
			})
		},
	}
	seedCommand.Flags().IntVar(&count, "count", 20, "Number of books to insert")

	cli.RootCommand.AddCommand(seedCommand)
}

// Inserts count random books in one transaction. Existing titles are updated in place.
func Seed(ctx context.Context, d *db.Database, count int) (int64, error) {
	books := RandomBooks(count)
	return db.UseDefaultTransaction(ctx, d, func(tx *db.Database) (int64, error) {
		return dsl.BulkInsertOrUpdate(ctx, tx, Books, books,
			func(b *dsl.BulkInsertOrUpdateBuilder, t *BooksTable) {
				b.OnConflict(t.Title)
			},
			SetBook,
		)
	})
}
