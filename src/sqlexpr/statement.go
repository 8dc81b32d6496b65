package sqlexpr

import "git.handmade.network/hmn/pgdsl/src/sqltypes"

// column = value, as used by INSERT, UPDATE and ON CONFLICT DO UPDATE.
type AssignmentExpression struct {
	Column *ColumnReference
	Value  Expression
	Annotations
}

func Assign(column *ColumnReference, value Expression) *AssignmentExpression {
	if column == nil || isNil(value) {
		malformed("assignment is missing its column or value")
	}
	return &AssignmentExpression{Column: column, Value: value}
}

func (a *AssignmentExpression) ResultType() sqltypes.SqlType { return nil }
func (a *AssignmentExpression) IsLeaf() bool                 { return false }

type OrderByExpression struct {
	Expression Expression
	Descending bool
	Annotations
}

func (o *OrderByExpression) ResultType() sqltypes.SqlType { return nil }
func (o *OrderByExpression) IsLeaf() bool                 { return false }

func Asc(e Expression) *OrderByExpression {
	return &OrderByExpression{Expression: e}
}

func Desc(e Expression) *OrderByExpression {
	return &OrderByExpression{Expression: e, Descending: true}
}

type SelectExpression struct {
	// Empty means *.
	Columns []Expression
	From    *TableReference
	Where   Expression
	OrderBy []*OrderByExpression
	// Zero means no limit / no offset.
	Limit  int
	Offset int
	Annotations
}

func (s *SelectExpression) ResultType() sqltypes.SqlType { return nil }
func (s *SelectExpression) IsLeaf() bool                 { return false }

/*
The ON CONFLICT clause of an insert. Either DoNothing is set, or Updates lists the
assignments for DO UPDATE SET. Columns is the conflict target; it may only be empty
for DO NOTHING.
*/
type OnConflictExpression struct {
	Columns   []*ColumnReference
	Updates   []*AssignmentExpression
	DoNothing bool
	Annotations
}

func (o *OnConflictExpression) ResultType() sqltypes.SqlType { return nil }
func (o *OnConflictExpression) IsLeaf() bool                 { return false }

type InsertExpression struct {
	Table       *TableReference
	Assignments []*AssignmentExpression
	OnConflict  *OnConflictExpression
	Returning   []*ColumnReference
	Annotations
}

func (i *InsertExpression) ResultType() sqltypes.SqlType { return nil }
func (i *InsertExpression) IsLeaf() bool                 { return false }

// A multi-row insert. Every row must assign the same columns in the same order.
type BulkInsertExpression struct {
	Table      *TableReference
	Rows       [][]*AssignmentExpression
	OnConflict *OnConflictExpression
	Returning  []*ColumnReference
	Annotations
}

func (b *BulkInsertExpression) ResultType() sqltypes.SqlType { return nil }
func (b *BulkInsertExpression) IsLeaf() bool                 { return false }

type UpdateExpression struct {
	Table       *TableReference
	Assignments []*AssignmentExpression
	Where       Expression
	Annotations
}

func (u *UpdateExpression) ResultType() sqltypes.SqlType { return nil }
func (u *UpdateExpression) IsLeaf() bool                 { return false }

type DeleteExpression struct {
	Table *TableReference
	Where Expression
	Annotations
}

func (d *DeleteExpression) ResultType() sqltypes.SqlType { return nil }
func (d *DeleteExpression) IsLeaf() bool                 { return false }
