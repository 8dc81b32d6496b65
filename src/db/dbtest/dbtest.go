/*
Package dbtest has an in-memory stand-in for a pgx connection. It records every
statement sent to it and answers queries from result sets queued by the test.

Outside of tests, the samples command uses it to show what statements would be
sent without connecting to anything.
*/
package dbtest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/sqlfmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Call struct {
	SQL  string
	Args []any
}

type Conn struct {
	// Returned by every Exec.
	RowsAffected int64
	// If set, Exec and Query fail with it.
	Err error

	mu        sync.Mutex
	calls     []Call
	results   [][][]any
	txs       []*Tx
	beginOpts []pgx.TxOptions
}

var _ db.ConnOrTx = &Conn{}

func NewConn() *Conn {
	return &Conn{RowsAffected: 1}
}

// A Database over a fresh fake connection, formatting with the standard dialect.
func NewDatabase() (*db.Database, *Conn) {
	conn := NewConn()
	return &db.Database{Conn: conn, Dialect: sqlfmt.Postgres()}, conn
}

// Queues one result set. Each Query call consumes the oldest queued set; with
// nothing queued, queries return no rows.
func (c *Conn) QueueRows(rows ...[]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, rows)
}

func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// The SQL of every call, in order.
func (c *Conn) SQL() []string {
	var result []string
	for _, call := range c.Calls() {
		result = append(result, call.SQL)
	}
	return result
}

func (c *Conn) LastCall() Call {
	calls := c.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

// Transactions begun directly on this connection, in order.
func (c *Conn) Transactions() []*Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Tx(nil), c.txs...)
}

func (c *Conn) TxOptions() []pgx.TxOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pgx.TxOptions(nil), c.beginOpts...)
}

func (c *Conn) record(sql string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{SQL: sql, Args: args})
}

func (c *Conn) nextResult() [][]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.results) == 0 {
		return nil
	}
	result := c.results[0]
	c.results = c.results[1:]
	return result
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.record(sql, args)
	if c.Err != nil {
		return nil, c.Err
	}
	return &Rows{rows: c.nextResult()}, nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	rows, err := c.Query(ctx, sql, args...)
	return &Row{rows: rows, err: err}
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.record(sql, args)
	if c.Err != nil {
		return pgconn.CommandTag{}, c.Err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", c.RowsAffected)), nil
}

func (c *Conn) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	var n int64
	for rowSrc.Next() {
		values, err := rowSrc.Values()
		if err != nil {
			return n, err
		}
		c.record(fmt.Sprintf("COPY %s %v", tableName.Sanitize(), columnNames), values)
		n++
	}
	return n, rowSrc.Err()
}

func (c *Conn) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.BeginTx(ctx, pgx.TxOptions{})
}

func (c *Conn) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx := &Tx{conn: c}
	c.mu.Lock()
	c.txs = append(c.txs, tx)
	c.beginOpts = append(c.beginOpts, opts)
	c.mu.Unlock()
	return tx, nil
}

/*
A transaction on a fake Conn. Statements are recorded on the Conn like any other;
the Tx only remembers how it ended.
*/
type Tx struct {
	conn *Conn

	mu         sync.Mutex
	committed  bool
	rolledBack bool
	nested     []*Tx
}

var _ pgx.Tx = &Tx{}

func (tx *Tx) Committed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.committed
}

func (tx *Tx) RolledBack() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.rolledBack
}

func (tx *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	nested := &Tx{conn: tx.conn}
	tx.mu.Lock()
	tx.nested = append(tx.nested, nested)
	tx.mu.Unlock()
	return nested, nil
}

func (tx *Tx) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.committed || tx.rolledBack {
		return pgx.ErrTxClosed
	}
	tx.committed = true
	return nil
}

func (tx *Tx) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.committed || tx.rolledBack {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

func (tx *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return tx.conn.CopyFrom(ctx, tableName, columnNames, rowSrc)
}

func (tx *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("dbtest: batches are not supported")
}

func (tx *Tx) LargeObjects() pgx.LargeObjects {
	panic("dbtest: large objects are not supported")
}

func (tx *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{Name: name, SQL: sql}, nil
}

func (tx *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.conn.Exec(ctx, sql, args...)
}

func (tx *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return tx.conn.Query(ctx, sql, args...)
}

func (tx *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return tx.conn.QueryRow(ctx, sql, args...)
}

func (tx *Tx) Conn() *pgx.Conn {
	return nil
}

type Rows struct {
	rows   [][]any
	i      int
	closed bool
}

var _ pgx.Rows = &Rows{}

func (r *Rows) Close()                                       { r.closed = true }
func (r *Rows) Err() error                                   { return nil }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.rows))) }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

func (r *Rows) Next() bool {
	if r.closed || r.i >= len(r.rows) {
		r.closed = true
		return false
	}
	r.i++
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.i == 0 || r.i > len(r.rows) {
		return nil, fmt.Errorf("dbtest: no current row")
	}
	return r.rows[r.i-1], nil
}

// Copies the current row into dest, which must be pointers of matching types.
func (r *Rows) Scan(dest ...any) error {
	values, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(values) {
		return fmt.Errorf("dbtest: row has %d values but %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("dbtest: destination %d is not a pointer", i)
		}
		if values[i] == nil {
			target.Elem().Set(reflect.Zero(target.Elem().Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("dbtest: cannot scan %T into %T", values[i], d)
		}
		target.Elem().Set(v)
	}
	return nil
}

type Row struct {
	rows pgx.Rows
	err  error
}

func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}
