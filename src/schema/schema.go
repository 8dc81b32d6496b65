/*
Package schema declares tables and their columns once, so that queries can refer
to them as typed expressions instead of strings.

	var Book = schema.NewTimestampedTable("book")
	var BookTitle = Book.Varchar("title")
	var BookAuthorIDs = Book.IdArray("author_ids").Nullable()

	cond := BookTitle.EqIgnoreCase("the hobbit")

Declarations are expected to happen at package init. Tables are not safe to
modify concurrently, but are safe to read from any number of goroutines once
declared.
*/
package schema

import (
	"errors"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
)

var ErrDuplicateColumn = errors.New("duplicate column")

type Table struct {
	Name   string
	Alias  string
	Schema string

	ref        *sqlexpr.TableReference
	columns    []*Column
	primaryKey *Column
}

// Anything built on a Table: Table itself, IdentifiedTable, TimestampedTable.
type TableLike interface {
	Base() *Table
}

type TableOption func(t *Table)

func InSchema(schema string) TableOption {
	return func(t *Table) {
		t.Schema = schema
	}
}

// Columns of an aliased table are qualified with the alias.
func WithAlias(alias string) TableOption {
	return func(t *Table) {
		t.Alias = alias
	}
}

func NewTable(name string, opts ...TableOption) *Table {
	t := &Table{Name: name}
	for _, opt := range opts {
		opt(t)
	}
	t.ref = &sqlexpr.TableReference{
		Name:   t.Name,
		Alias:  t.Alias,
		Schema: t.Schema,
	}
	return t
}

func (t *Table) Base() *Table {
	return t
}

// The reference shared by every column of this table.
func (t *Table) Ref() *sqlexpr.TableReference {
	return t.ref
}

// Columns in declaration order.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Nil if no column was marked as the primary key.
func (t *Table) PrimaryKey() *Column {
	return t.primaryKey
}

func (t *Table) ColumnNamed(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Declares a column of any type. The typed helpers below are shorthand for this.
func (t *Table) Column(name string, typ sqltypes.SqlType) *Column {
	if _, exists := t.ColumnNamed(name); exists {
		panic(oops.New(ErrDuplicateColumn, "table %s already has a column named %s", t.Name, name))
	}
	c := &Column{
		Table: t,
		Name:  name,
		Type:  typ,
		ref:   sqlexpr.Column(t.ref, name, typ),
	}
	t.columns = append(t.columns, c)
	return c
}

func (t *Table) Int(name string) *Column       { return t.Column(name, sqltypes.Int) }
func (t *Table) BigInt(name string) *Column    { return t.Column(name, sqltypes.BigInt) }
func (t *Table) Varchar(name string) *Column   { return t.Column(name, sqltypes.Varchar) }
func (t *Table) Bool(name string) *Column      { return t.Column(name, sqltypes.Bool) }
func (t *Table) Timestamp(name string) *Column { return t.Column(name, sqltypes.Timestamp) }
func (t *Table) UUID(name string) *Column      { return t.Column(name, sqltypes.UUID) }
func (t *Table) Id(name string) *Column        { return t.Column(name, sqltypes.IdType) }
func (t *Table) IdArray(name string) *Column   { return t.Column(name, sqltypes.IdArray) }
func (t *Table) UUIDArray(name string) *Column { return t.Column(name, sqltypes.UUIDArray) }

// A table whose primary key is an int column called id.
type IdentifiedTable struct {
	*Table
	ID *Column
}

func NewIdentifiedTable(name string, opts ...TableOption) *IdentifiedTable {
	t := NewTable(name, opts...)
	return &IdentifiedTable{
		Table: t,
		ID:    t.Id("id").PrimaryKey(),
	}
}

// An IdentifiedTable that also records when each row was created.
type TimestampedTable struct {
	*IdentifiedTable
	CreationTimestamp *Column
}

func NewTimestampedTable(name string, opts ...TableOption) *TimestampedTable {
	t := NewIdentifiedTable(name, opts...)
	return &TimestampedTable{
		IdentifiedTable:   t,
		CreationTimestamp: t.Timestamp("creation_timestamp"),
	}
}
