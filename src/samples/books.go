package samples

import (
	"fmt"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/dsl"
	"git.handmade.network/hmn/pgdsl/src/schema"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/google/uuid"
)

// The book table created by the CreateBookTable migration.
type BooksTable struct {
	*schema.TimestampedTable
	Title     *schema.Column
	SomeIDs   *schema.Column
	SomeUUIDs *schema.Column
}

func NewBooksTable() *BooksTable {
	t := schema.NewTimestampedTable("book")
	return &BooksTable{
		TimestampedTable: t,
		Title:            t.Varchar("title"),
		SomeIDs:          t.IdArray("some_ids"),
		SomeUUIDs:        t.UUIDArray("some_uuids").Nullable(),
	}
}

var Books = NewBooksTable()

type Book struct {
	ID        sqltypes.Id
	Title     string
	SomeIDs   []sqltypes.Id
	SomeUUIDs []uuid.UUID
}

// Reads a row from a query that selected every book column.
func ReadBook(row *db.Row) (Book, error) {
	var book Book
	var err error
	if book.ID, err = db.Get[sqltypes.Id](row, Books.ID.Expr()); err != nil {
		return book, err
	}
	if book.Title, err = db.Get[string](row, Books.Title.Expr()); err != nil {
		return book, err
	}
	if book.SomeIDs, err = db.Get[[]sqltypes.Id](row, Books.SomeIDs.Expr()); err != nil {
		return book, err
	}
	if book.SomeUUIDs, err = db.Get[[]uuid.UUID](row, Books.SomeUUIDs.Expr()); err != nil {
		return book, err
	}
	return book, nil
}

func SetBook(b *dsl.AssignmentsBuilder, t *BooksTable, book Book) {
	b.Set(t.Title, book.Title)
	b.Set(t.SomeIDs, book.SomeIDs)
	b.Set(t.SomeUUIDs, book.SomeUUIDs)
}

// Books with lorem ipsum titles. Titles are unique within the batch.
func RandomBooks(n int) []Book {
	books := make([]Book, n)
	for i := range books {
		ids := make([]sqltypes.Id, 1+i%3)
		for j := range ids {
			ids[j] = sqltypes.Id(i*10 + j)
		}
		books[i] = Book{
			Title:     fmt.Sprintf("%s %d", lorem.Sentence(1, 6), i+1),
			SomeIDs:   ids,
			SomeUUIDs: []uuid.UUID{uuid.New()},
		}
	}
	return books
}
