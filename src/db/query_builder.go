package db

import (
	"fmt"
	"strings"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
)

/*
For the odd statement the expression model can't describe. Prefer building
expressions; a QueryBuilder is plain text.
*/
type QueryBuilder struct {
	name string
	sql  strings.Builder
	args []any
}

// Names the query for logs and perf output.
func NewQueryBuilder(name string) *QueryBuilder {
	return &QueryBuilder{name: name}
}

/*
Adds the given SQL and arguments to the query. Any occurrences
of `$?` will be replaced with the correct argument number.

foo $? bar $? baz $?
foo ARG1 bar ARG2 baz $?
foo ARG1 bar ARG2 baz ARG3
*/
func (qb *QueryBuilder) Add(sql string, args ...any) {
	numPlaceholders := strings.Count(sql, "$?")
	if numPlaceholders != len(args) {
		panic(fmt.Errorf("cannot add chunk to query; expected %d arguments but got %d", numPlaceholders, len(args)))
	}

	for _, arg := range args {
		sql = strings.Replace(sql, "$?", fmt.Sprintf("$%d", len(qb.args)+1), 1)
		qb.args = append(qb.args, arg)
	}

	qb.sql.WriteString(sql)
	qb.sql.WriteString("\n")
}

// Like Add, but the arguments are bound through their SQL types first.
func (qb *QueryBuilder) AddParams(sql string, params ...sqlexpr.Param) error {
	args, err := BindParams(params)
	if err != nil {
		return oops.New(err, "failed to add chunk to query")
	}
	qb.Add(sql, args...)
	return nil
}

func (qb *QueryBuilder) String() string {
	return nameQuery(qb.name, qb.sql.String())
}

func (qb *QueryBuilder) Args() []any {
	return qb.args
}
