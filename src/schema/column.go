package schema

import (
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
)

type Column struct {
	Table *Table
	Name  string
	Type  sqltypes.SqlType

	ref        *sqlexpr.ColumnReference
	primaryKey bool
	nullable   bool
}

// Marks the column as its table's primary key. A table has at most one.
func (c *Column) PrimaryKey() *Column {
	if c.Table.primaryKey != nil && c.Table.primaryKey != c {
		panic(oops.New(sqlexpr.ErrMalformedExpression, "table %s already has primary key %s", c.Table.Name, c.Table.primaryKey.Name))
	}
	c.primaryKey = true
	c.Table.primaryKey = c
	return c
}

// Documents that the column may hold NULL. Nothing is enforced from our side.
func (c *Column) Nullable() *Column {
	c.nullable = true
	return c
}

func (c *Column) IsPrimaryKey() bool { return c.primaryKey }
func (c *Column) IsNullable() bool   { return c.nullable }

func (c *Column) Expr() *sqlexpr.ColumnReference {
	return c.ref
}

// Wraps a Go value as an argument of this column's type.
func (c *Column) Arg(value any) *sqlexpr.Argument {
	return sqlexpr.Arg(value, c.Type)
}

// column = value. Expressions are used as they are; anything else becomes an
// argument of the column's type.
func (c *Column) Set(value any) *sqlexpr.AssignmentExpression {
	return sqlexpr.Assign(c.ref, c.operand(value))
}

func (c *Column) operand(value any) sqlexpr.Expression {
	switch v := value.(type) {
	case sqlexpr.Expression:
		return v
	case *Column:
		return v.ref
	}
	return c.Arg(value)
}

func (c *Column) compare(op sqlexpr.BinaryOperator, value any) *sqlexpr.BinaryExpression {
	return sqlexpr.Binary(c.ref, op, c.operand(value))
}

func (c *Column) Eq(value any) *sqlexpr.BinaryExpression        { return c.compare(sqlexpr.Eq, value) }
func (c *Column) NotEq(value any) *sqlexpr.BinaryExpression     { return c.compare(sqlexpr.NotEq, value) }
func (c *Column) Less(value any) *sqlexpr.BinaryExpression      { return c.compare(sqlexpr.Less, value) }
func (c *Column) LessEq(value any) *sqlexpr.BinaryExpression    { return c.compare(sqlexpr.LessEq, value) }
func (c *Column) Greater(value any) *sqlexpr.BinaryExpression   { return c.compare(sqlexpr.Greater, value) }
func (c *Column) GreaterEq(value any) *sqlexpr.BinaryExpression { return c.compare(sqlexpr.GreaterEq, value) }
func (c *Column) Like(value any) *sqlexpr.BinaryExpression      { return c.compare(sqlexpr.Like, value) }
func (c *Column) ILike(value any) *sqlexpr.BinaryExpression     { return c.compare(sqlexpr.ILike, value) }

// Array operators: column @> value, column <@ value, column && value.
func (c *Column) Contains(value any) *sqlexpr.BinaryExpression    { return c.compare(sqlexpr.Contains, value) }
func (c *Column) ContainedBy(value any) *sqlexpr.BinaryExpression { return c.compare(sqlexpr.ContainedBy, value) }
func (c *Column) Overlaps(value any) *sqlexpr.BinaryExpression    { return c.compare(sqlexpr.Overlaps, value) }

// lower(column) = lower(value)
func (c *Column) EqIgnoreCase(value string) *sqlexpr.BinaryExpression {
	return sqlexpr.Binary(sqlexpr.Lower(c.ref), sqlexpr.Eq, sqlexpr.LowerValue(value))
}

func (c *Column) Asc() *sqlexpr.OrderByExpression  { return sqlexpr.Asc(c.ref) }
func (c *Column) Desc() *sqlexpr.OrderByExpression { return sqlexpr.Desc(c.ref) }

// Expression references for a list of columns, in order.
func Exprs(columns ...*Column) []*sqlexpr.ColumnReference {
	refs := make([]*sqlexpr.ColumnReference, len(columns))
	for i, c := range columns {
		refs[i] = c.ref
	}
	return refs
}

// The same column as seen from the excluded pseudo-table of ON CONFLICT DO UPDATE.
func (c *Column) Excluded() *sqlexpr.ColumnReference {
	return sqlexpr.Column(sqlexpr.Excluded, c.Name, c.Type)
}
