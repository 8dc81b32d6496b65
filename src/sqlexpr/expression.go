/*
Package sqlexpr is the in-memory model of SQL expressions, before they are turned
into text by sqlfmt.

Nodes are plain data. They carry the type they evaluate to and whether they have
children, and nothing about how they are rendered. Trees must not be modified once
built: the same subtree may be formatted by several goroutines at once.

Any package can add node kinds by implementing Expression. The formatter refuses
nodes that none of its rule sets recognize.
*/
package sqlexpr

import (
	"errors"
	"reflect"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
)

// Returned (inside a panic) when a node is built without its required parts.
var ErrMalformedExpression = errors.New("malformed expression")

type Expression interface {
	// The SQL type this node evaluates to. Only used to bind arguments; statements
	// return nil.
	ResultType() sqltypes.SqlType
	// True if the node has no sub-expressions.
	IsLeaf() bool
	// Annotations that the formatter ignores.
	Extra() map[string]any
}

// A bind parameter: the value for one placeholder, plus the type that knows how
// to hand it to the driver.
type Param struct {
	Type  sqltypes.SqlType
	Value any
}

// Embedded in every node to satisfy Extra.
type Annotations map[string]any

func (a Annotations) Extra() map[string]any {
	return a
}

func malformed(format string, args ...any) {
	panic(oops.New(ErrMalformedExpression, format, args...))
}

// Nil, or a nil pointer hiding in a non-nil interface, like (*Argument)(nil).
func isNil(e any) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// A literal value. Always rendered as a placeholder.
type Argument struct {
	Value any
	Type  sqltypes.SqlType
	Annotations
}

func Arg(value any, t sqltypes.SqlType) *Argument {
	if t == nil {
		malformed("argument %v has no SQL type", value)
	}
	return &Argument{Value: value, Type: t}
}

func (a *Argument) ResultType() sqltypes.SqlType { return a.Type }
func (a *Argument) IsLeaf() bool                 { return true }

func (a *Argument) Param() Param {
	return Param{Type: a.Type, Value: a.Value}
}

type TableReference struct {
	Name   string
	Alias  string
	Schema string
	Annotations
}

func (t *TableReference) ResultType() sqltypes.SqlType { return nil }
func (t *TableReference) IsLeaf() bool                 { return true }

// A reference to a column. Qualified with the table alias when there is one.
type ColumnReference struct {
	Table *TableReference
	Name  string
	Type  sqltypes.SqlType
	Annotations
}

func Column(table *TableReference, name string, t sqltypes.SqlType) *ColumnReference {
	if name == "" {
		malformed("column reference has no name")
	}
	return &ColumnReference{Table: table, Name: name, Type: t}
}

func (c *ColumnReference) ResultType() sqltypes.SqlType { return c.Type }
func (c *ColumnReference) IsLeaf() bool                 { return true }

// The row proposed for insertion in an ON CONFLICT DO UPDATE clause.
var Excluded = &TableReference{Name: "excluded", Alias: "excluded"}

type BinaryOperator string

const (
	Plus      BinaryOperator = "+"
	Minus     BinaryOperator = "-"
	Times     BinaryOperator = "*"
	Div       BinaryOperator = "/"
	Rem       BinaryOperator = "%"
	Concat    BinaryOperator = "||"
	Eq        BinaryOperator = "="
	NotEq     BinaryOperator = "<>"
	Less      BinaryOperator = "<"
	LessEq    BinaryOperator = "<="
	Greater   BinaryOperator = ">"
	GreaterEq BinaryOperator = ">="
	And       BinaryOperator = "and"
	Or        BinaryOperator = "or"
	Like      BinaryOperator = "like"
	ILike     BinaryOperator = "ilike"

	// Array operators.
	Contains    BinaryOperator = "@>"
	ContainedBy BinaryOperator = "<@"
	Overlaps    BinaryOperator = "&&"
)

// Comparisons and logical operators produce booleans; everything else keeps the
// type of its left operand.
func (op BinaryOperator) resultType(left Expression) sqltypes.SqlType {
	switch op {
	case Eq, NotEq, Less, LessEq, Greater, GreaterEq, And, Or, Like, ILike, Contains, ContainedBy, Overlaps:
		return sqltypes.Bool
	case Concat:
		return sqltypes.Varchar
	}
	return left.ResultType()
}

type BinaryExpression struct {
	Left     Expression
	Operator BinaryOperator
	Right    Expression
	Type     sqltypes.SqlType
	Annotations
}

func Binary(left Expression, op BinaryOperator, right Expression) *BinaryExpression {
	if isNil(left) || isNil(right) {
		malformed("binary expression '%s' is missing an operand", op)
	}
	if op == "" {
		malformed("binary expression has no operator")
	}
	return &BinaryExpression{
		Left:     left,
		Operator: op,
		Right:    right,
		Type:     op.resultType(left),
	}
}

func (b *BinaryExpression) ResultType() sqltypes.SqlType { return b.Type }
func (b *BinaryExpression) IsLeaf() bool                 { return false }

// Joins conditions with AND. Nil conditions are skipped; returns nil if nothing is
// left.
func AllOf(conditions ...Expression) Expression {
	var result Expression
	for _, c := range conditions {
		if isNil(c) {
			continue
		}
		if result == nil {
			result = c
		} else {
			result = Binary(result, And, c)
		}
	}
	return result
}
