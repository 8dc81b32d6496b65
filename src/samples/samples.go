package samples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"git.handmade.network/hmn/pgdsl/src/cli"
	"git.handmade.network/hmn/pgdsl/src/config"
	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/db/dbtest"
	"git.handmade.network/hmn/pgdsl/src/dsl"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	var pretty bool
	var indent int
	var count int

	samplesCommand := &cobra.Command{
		Use:   "samples",
		Short: "Print the SQL and parameters of some sample statements",
		Long:  "Builds a set of sample statements against the book table and prints what would be sent to Postgres, without connecting to a database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config.Formatter
			if cmd.Flags().Changed("pretty") {
				cfg.Beautify = pretty
			}
			if cmd.Flags().Changed("indent") {
				cfg.IndentSize = indent
			}
			return Print(context.Background(), os.Stdout, cfg, count)
		},
	}
	samplesCommand.Flags().BoolVar(&pretty, "pretty", false, "Lay statements out over multiple lines")
	samplesCommand.Flags().IntVar(&indent, "indent", 2, "Indent size for --pretty")
	samplesCommand.Flags().IntVar(&count, "count", 3, "Number of books in the bulk samples")

	cli.RootCommand.AddCommand(samplesCommand)
}

type Sample struct {
	Name string
	Run  func(ctx context.Context, d *db.Database) error
}

func All(bulkCount int) []Sample {
	books := RandomBooks(bulkCount)

	return []Sample{
		{"update", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.Update(ctx, d, Books, func(b *dsl.UpdateBuilder, t *BooksTable) {
				b.Set(t.Title, "some title")
				b.Where(t.ID.Eq(sqltypes.Id(123)))
			})
			return err
		}},
		{"upsert returning", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.InsertOrUpdateReturning[sqltypes.Id](ctx, d, Books, Books.ID, func(b *dsl.InsertOrUpdateBuilder, t *BooksTable) {
				b.Set(t.Title, "some title")
				b.Set(t.SomeIDs, []sqltypes.Id{1, 2})
				b.Set(t.SomeUUIDs, []uuid.UUID{uuid.New(), uuid.New()})
				b.OnConflict(t.Title).Set(t.SomeIDs, []sqltypes.Id{3, 4})
			})
			return err
		}},
		{"upsert do nothing", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.InsertOrUpdate(ctx, d, Books, func(b *dsl.InsertOrUpdateBuilder, t *BooksTable) {
				b.Set(t.Title, "some title")
				b.OnConflict().DoNothing()
			})
			return err
		}},
		{"bulk insert", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.BulkInsert(ctx, d, Books, books, SetBook)
			return err
		}},
		{"bulk upsert", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.BulkInsertOrUpdate(ctx, d, Books, books,
				func(b *dsl.BulkInsertOrUpdateBuilder, t *BooksTable) {
					b.OnConflict(t.Title)
				},
				SetBook,
			)
			return err
		}},
		{"delete", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.Delete(ctx, d, Books, sqltypes.Id(123))
			return err
		}},
		{"find", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.Find(ctx, d, Books, sqltypes.Id(123), ReadBook)
			return err
		}},
		{"case-insensitive search", func(ctx context.Context, d *db.Database) error {
			_, err := dsl.Collect(ctx,
				dsl.From(d, Books).
					Where(Books.Title.EqIgnoreCase("Some Title")).
					OrderBy(Books.CreationTimestamp.Desc()).
					Limit(10),
				ReadBook,
			)
			return err
		}},
	}
}

/*
Runs every sample against a recording connection and writes out the statements
it received. Nothing is executed, so queries come back empty.
*/
func Print(ctx context.Context, w io.Writer, cfg config.FormatterConfig, bulkCount int) error {
	for _, sample := range All(bulkCount) {
		conn := dbtest.NewConn()
		d := &db.Database{
			Conn:    conn,
			Dialect: db.DialectFromConfig(cfg),
		}

		if err := sample.Run(ctx, d); err != nil && !errors.Is(err, db.NotFound) {
			return oops.New(err, "sample '%s' failed", sample.Name)
		}

		fmt.Fprintf(w, "-- %s\n", sample.Name)
		for _, call := range conn.Calls() {
			fmt.Fprintln(w, call.SQL)
			for i, arg := range call.Args {
				fmt.Fprintf(w, "--   $%d = %#v\n", i+1, arg)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
