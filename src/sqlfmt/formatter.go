/*
Package sqlfmt turns sqlexpr trees into SQL text and a list of bind parameters.

A Dialect is an ordered chain of rule sets. For each node the formatter asks every
rule set in turn whether it can render it; the first one that can, does. If none
can, VisitUnknown fails the whole format with ErrUnsupportedExpression. The
Postgres dialect is the base rules (literals, columns, tables, statements) followed
by ExtraRules (binary operators and scalar functions).

Formatting state lives in a Formatter that exists for the duration of one Format
call, so a Dialect can be shared freely between goroutines.

Whitespace convention: every token is written with one trailing space. Rules that
close a bracket call RemoveLastBlank first, so the output reads "(a + b) * c" and
not "(a + b ) * c". Format trims the final trailing space.
*/
package sqlfmt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
)

// A node that no rule set in the dialect knows how to render. This is a bug in
// the caller (an unregistered node kind), not a data problem.
var ErrUnsupportedExpression = errors.New("unsupported expression")

type PlaceholderStyle int

const (
	// $1, $2, ... as pgx expects.
	Dollar PlaceholderStyle = iota
	// ? for every parameter.
	QuestionMark
)

type Options struct {
	Placeholder PlaceholderStyle
	// Put statement clauses on their own lines.
	Beautify   bool
	IndentSize int
}

type Option func(*Options)

func WithPlaceholder(p PlaceholderStyle) Option {
	return func(o *Options) {
		o.Placeholder = p
	}
}

func WithBeautify(indentSize int) Option {
	return func(o *Options) {
		o.Beautify = true
		o.IndentSize = indentSize
	}
}

/*
A RuleSet renders the node kinds it knows about. Visit reports handled=false,
without writing anything, for nodes it does not recognize.
*/
type RuleSet interface {
	Visit(f *Formatter, e sqlexpr.Expression) (handled bool, err error)
}

type Dialect struct {
	Rules []RuleSet
	Options
}

// The Postgres dialect: base rules, then ExtraRules.
func Postgres(opts ...Option) Dialect {
	d := Dialect{
		Rules: []RuleSet{PostgresRules{}, ExtraRules{}},
		Options: Options{
			Placeholder: Dollar,
			IndentSize:  2,
		},
	}
	for _, opt := range opts {
		opt(&d.Options)
	}
	return d
}

// Returns a copy of the dialect with more rule sets tried after the existing ones.
func (d Dialect) With(rules ...RuleSet) Dialect {
	combined := make([]RuleSet, 0, len(d.Rules)+len(rules))
	combined = append(combined, d.Rules...)
	combined = append(combined, rules...)
	d.Rules = combined
	return d
}

/*
Renders root to SQL. Parameters are listed in the same order as their placeholders
appear in the text. On error no SQL is returned.
*/
func (d Dialect) Format(root sqlexpr.Expression) (string, []sqlexpr.Param, error) {
	f := &Formatter{dialect: d}
	if err := f.Visit(root); err != nil {
		return "", nil, err
	}
	return strings.TrimRight(f.sql.String(), " \n"), f.params, nil
}

// Identical to Format, but panics if there was an error.
func (d Dialect) MustFormat(root sqlexpr.Expression) (string, []sqlexpr.Param) {
	sql, params, err := d.Format(root)
	if err != nil {
		panic(err)
	}
	return sql, params
}

// The state of one Format call. Rule sets write through it.
type Formatter struct {
	dialect Dialect
	sql     bytes.Buffer
	params  []sqlexpr.Param
	depth   int
}

func (f *Formatter) Options() Options {
	return f.dialect.Options
}

// Dispatches e to the first rule set that handles it.
func (f *Formatter) Visit(e sqlexpr.Expression) error {
	if e == nil {
		return oops.New(ErrUnsupportedExpression, "cannot format a nil expression")
	}
	for _, rules := range f.dialect.Rules {
		handled, err := rules.Visit(f, e)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return f.VisitUnknown(e)
}

// The catch-all at the end of the chain.
func (f *Formatter) VisitUnknown(e sqlexpr.Expression) error {
	return oops.New(ErrUnsupportedExpression, "no rule to format %T", e)
}

func (f *Formatter) Write(s string) {
	f.sql.WriteString(s)
}

// Keywords are written as given; we keep them lower case.
func (f *Formatter) WriteKeyword(s string) {
	f.sql.WriteString(s)
}

func (f *Formatter) RemoveLastBlank() {
	if n := f.sql.Len(); n > 0 && f.sql.Bytes()[n-1] == ' ' {
		f.sql.Truncate(n - 1)
	}
}

/*
Starts a new line at the current depth when beautifying. Otherwise the trailing
space already written by the previous token is separator enough.
*/
func (f *Formatter) NewLine() {
	if !f.dialect.Beautify {
		return
	}
	f.RemoveLastBlank()
	f.sql.WriteString("\n")
	f.sql.WriteString(strings.Repeat(" ", f.depth*f.dialect.IndentSize))
}

func (f *Formatter) Indent() {
	f.depth++
}

func (f *Formatter) Outdent() {
	if f.depth > 0 {
		f.depth--
	}
}

// Records a bind parameter and writes its placeholder.
func (f *Formatter) WriteParam(p sqlexpr.Param) {
	f.params = append(f.params, p)
	switch f.dialect.Placeholder {
	case QuestionMark:
		f.sql.WriteString("? ")
	default:
		f.sql.WriteString(fmt.Sprintf("$%d ", len(f.params)))
	}
}

// Visits each expression, separated by commas.
func (f *Formatter) VisitList(exprs []sqlexpr.Expression) error {
	for i, e := range exprs {
		if i > 0 {
			f.RemoveLastBlank()
			f.Write(", ")
		}
		if err := f.Visit(e); err != nil {
			return err
		}
	}
	return nil
}

// Visits e wrapped in parentheses unless it is bracket-free.
func (f *Formatter) VisitOperand(e sqlexpr.Expression) error {
	if RemoveBrackets(e) {
		return f.Visit(e)
	}
	f.Write("(")
	if err := f.Visit(e); err != nil {
		return err
	}
	f.RemoveLastBlank()
	f.Write(") ")
	return nil
}

/*
Whether e can appear as an operand without parentheses: leaves, and function calls,
which bring their own.
*/
func RemoveBrackets(e sqlexpr.Expression) bool {
	if e.IsLeaf() {
		return true
	}
	_, isFunction := e.(*sqlexpr.ScalarFunctionExpression)
	return isFunction
}
