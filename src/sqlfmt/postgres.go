package sqlfmt

import (
	"regexp"
	"strings"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
)

// The base rules: arguments, column and table references, and whole statements.
type PostgresRules struct{}

var _ RuleSet = PostgresRules{}

func (PostgresRules) Visit(f *Formatter, e sqlexpr.Expression) (bool, error) {
	switch e := e.(type) {
	case *sqlexpr.Argument:
		f.WriteParam(e.Param())
		return true, nil
	case *sqlexpr.ColumnReference:
		if e.Table != nil && e.Table.Alias != "" {
			f.Write(QuoteIdentifier(e.Table.Alias))
			f.Write(".")
		}
		f.Write(QuoteIdentifier(e.Name))
		f.Write(" ")
		return true, nil
	case *sqlexpr.TableReference:
		writeTableName(f, e)
		if e.Alias != "" {
			f.Write(QuoteIdentifier(e.Alias))
			f.Write(" ")
		}
		return true, nil
	case *sqlexpr.AssignmentExpression:
		return true, visitAssignment(f, e)
	case *sqlexpr.OrderByExpression:
		return true, visitOrderBy(f, e)
	case *sqlexpr.SelectExpression:
		return true, visitSelect(f, e)
	case *sqlexpr.InsertExpression:
		return true, visitInsert(f, e)
	case *sqlexpr.BulkInsertExpression:
		return true, visitBulkInsert(f, e)
	case *sqlexpr.OnConflictExpression:
		return true, visitOnConflict(f, e)
	case *sqlexpr.UpdateExpression:
		return true, visitUpdate(f, e)
	case *sqlexpr.DeleteExpression:
		return true, visitDelete(f, e)
	}
	return false, nil
}

// Schema-qualified name, without the alias.
func writeTableName(f *Formatter, t *sqlexpr.TableReference) {
	if t.Schema != "" {
		f.Write(QuoteIdentifier(t.Schema))
		f.Write(".")
	}
	f.Write(QuoteIdentifier(t.Name))
	f.Write(" ")
}

// The target table of an insert, update or delete. The alias has to be declared
// here, since column references elsewhere in the statement are qualified with it.
// Insert only accepts the alias after "as".
func writeTargetTable(f *Formatter, t *sqlexpr.TableReference, withAs bool) {
	writeTableName(f, t)
	if t.Alias == "" {
		return
	}
	if withAs {
		f.WriteKeyword("as ")
	}
	f.Write(QuoteIdentifier(t.Alias))
	f.Write(" ")
}

// Assignment targets are never qualified.
func writeColumnName(f *Formatter, c *sqlexpr.ColumnReference) {
	f.Write(QuoteIdentifier(c.Name))
	f.Write(" ")
}

func writeColumnNames(f *Formatter, columns []*sqlexpr.ColumnReference) {
	for i, c := range columns {
		if i > 0 {
			f.RemoveLastBlank()
			f.Write(", ")
		}
		writeColumnName(f, c)
	}
}

func visitAssignment(f *Formatter, a *sqlexpr.AssignmentExpression) error {
	writeColumnName(f, a.Column)
	f.Write("= ")
	return f.Visit(a.Value)
}

func visitAssignments(f *Formatter, assignments []*sqlexpr.AssignmentExpression) error {
	for i, a := range assignments {
		if i > 0 {
			f.RemoveLastBlank()
			f.Write(", ")
		}
		if err := f.Visit(a); err != nil {
			return err
		}
	}
	return nil
}

func visitOrderBy(f *Formatter, o *sqlexpr.OrderByExpression) error {
	if err := f.VisitOperand(o.Expression); err != nil {
		return err
	}
	if o.Descending {
		f.WriteKeyword("desc ")
	}
	return nil
}

func visitWhere(f *Formatter, where sqlexpr.Expression) error {
	if where == nil {
		return nil
	}
	f.NewLine()
	f.WriteKeyword("where ")
	return f.Visit(where)
}

func visitSelect(f *Formatter, s *sqlexpr.SelectExpression) error {
	f.WriteKeyword("select ")
	if len(s.Columns) == 0 {
		f.Write("* ")
	} else if err := f.VisitList(s.Columns); err != nil {
		return err
	}

	if s.From != nil {
		f.NewLine()
		f.WriteKeyword("from ")
		if err := f.Visit(s.From); err != nil {
			return err
		}
	}

	if err := visitWhere(f, s.Where); err != nil {
		return err
	}

	if len(s.OrderBy) > 0 {
		f.NewLine()
		f.WriteKeyword("order by ")
		orderBy := make([]sqlexpr.Expression, len(s.OrderBy))
		for i, o := range s.OrderBy {
			orderBy[i] = o
		}
		if err := f.VisitList(orderBy); err != nil {
			return err
		}
	}

	if s.Limit > 0 {
		f.NewLine()
		f.WriteKeyword("limit ")
		f.WriteParam(sqlexpr.Param{Type: sqltypes.Int, Value: s.Limit})
	}
	if s.Offset > 0 {
		f.NewLine()
		f.WriteKeyword("offset ")
		f.WriteParam(sqlexpr.Param{Type: sqltypes.Int, Value: s.Offset})
	}
	return nil
}

func visitValuesRow(f *Formatter, row []*sqlexpr.AssignmentExpression) error {
	f.Write("(")
	for i, a := range row {
		if i > 0 {
			f.RemoveLastBlank()
			f.Write(", ")
		}
		if err := f.Visit(a.Value); err != nil {
			return err
		}
	}
	f.RemoveLastBlank()
	f.Write(") ")
	return nil
}

func visitInsertTail(f *Formatter, onConflict *sqlexpr.OnConflictExpression, returning []*sqlexpr.ColumnReference) error {
	if onConflict != nil {
		f.NewLine()
		if err := f.Visit(onConflict); err != nil {
			return err
		}
	}
	if len(returning) > 0 {
		f.NewLine()
		f.WriteKeyword("returning ")
		writeColumnNames(f, returning)
	}
	return nil
}

func assignedColumns(row []*sqlexpr.AssignmentExpression) []*sqlexpr.ColumnReference {
	columns := make([]*sqlexpr.ColumnReference, len(row))
	for i, a := range row {
		columns[i] = a.Column
	}
	return columns
}

func visitInsert(f *Formatter, i *sqlexpr.InsertExpression) error {
	if i.Table == nil || len(i.Assignments) == 0 {
		return oops.New(sqlexpr.ErrMalformedExpression, "insert needs a table and at least one assignment")
	}

	f.WriteKeyword("insert into ")
	writeTargetTable(f, i.Table, true)
	f.Write("(")
	writeColumnNames(f, assignedColumns(i.Assignments))
	f.RemoveLastBlank()
	f.Write(") ")
	f.NewLine()
	f.WriteKeyword("values ")
	if err := visitValuesRow(f, i.Assignments); err != nil {
		return err
	}
	return visitInsertTail(f, i.OnConflict, i.Returning)
}

func sameColumns(a, b []*sqlexpr.AssignmentExpression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Column.Name != b[i].Column.Name {
			return false
		}
	}
	return true
}

func visitBulkInsert(f *Formatter, b *sqlexpr.BulkInsertExpression) error {
	if b.Table == nil || len(b.Rows) == 0 || len(b.Rows[0]) == 0 {
		return oops.New(sqlexpr.ErrMalformedExpression, "bulk insert needs a table and at least one non-empty row")
	}
	for i, row := range b.Rows[1:] {
		if !sameColumns(b.Rows[0], row) {
			return oops.New(sqlexpr.ErrMalformedExpression, "row %d of bulk insert assigns different columns than row 0", i+1)
		}
	}

	f.WriteKeyword("insert into ")
	writeTargetTable(f, b.Table, true)
	f.Write("(")
	writeColumnNames(f, assignedColumns(b.Rows[0]))
	f.RemoveLastBlank()
	f.Write(") ")
	f.NewLine()
	f.WriteKeyword("values ")

	f.Indent()
	for i, row := range b.Rows {
		if i > 0 {
			f.RemoveLastBlank()
			f.Write(", ")
		}
		f.NewLine()
		if err := visitValuesRow(f, row); err != nil {
			return err
		}
	}
	f.Outdent()

	return visitInsertTail(f, b.OnConflict, b.Returning)
}

func visitOnConflict(f *Formatter, o *sqlexpr.OnConflictExpression) error {
	f.WriteKeyword("on conflict ")
	if len(o.Columns) > 0 {
		f.Write("(")
		writeColumnNames(f, o.Columns)
		f.RemoveLastBlank()
		f.Write(") ")
	}

	if o.DoNothing {
		f.WriteKeyword("do nothing ")
		return nil
	}

	if len(o.Columns) == 0 || len(o.Updates) == 0 {
		return oops.New(sqlexpr.ErrMalformedExpression, "on conflict do update needs a conflict target and at least one assignment")
	}
	f.WriteKeyword("do update set ")
	return visitAssignments(f, o.Updates)
}

func visitUpdate(f *Formatter, u *sqlexpr.UpdateExpression) error {
	if u.Table == nil || len(u.Assignments) == 0 {
		return oops.New(sqlexpr.ErrMalformedExpression, "update needs a table and at least one assignment")
	}

	f.WriteKeyword("update ")
	writeTargetTable(f, u.Table, false)
	f.NewLine()
	f.WriteKeyword("set ")
	if err := visitAssignments(f, u.Assignments); err != nil {
		return err
	}
	return visitWhere(f, u.Where)
}

func visitDelete(f *Formatter, d *sqlexpr.DeleteExpression) error {
	if d.Table == nil {
		return oops.New(sqlexpr.ErrMalformedExpression, "delete needs a table")
	}

	f.WriteKeyword("delete from ")
	writeTargetTable(f, d.Table, false)
	return visitWhere(f, d.Where)
}

var reBareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Words we must quote to use as identifiers. Not the full reserved list, just the
// ones that tend to show up as column names.
var reservedWords = map[string]bool{
	"all": true, "and": true, "any": true, "array": true, "as": true, "asc": true,
	"case": true, "check": true, "column": true, "constraint": true, "default": true,
	"desc": true, "distinct": true, "do": true, "else": true, "end": true,
	"false": true, "for": true, "from": true, "group": true, "having": true,
	"in": true, "limit": true, "not": true, "null": true, "offset": true,
	"on": true, "or": true, "order": true, "references": true, "returning": true,
	"select": true, "table": true, "then": true, "to": true, "true": true,
	"union": true, "unique": true, "user": true, "using": true, "when": true,
	"where": true, "with": true,
}

// Double-quotes an identifier unless Postgres would read it back unchanged.
func QuoteIdentifier(name string) string {
	if reBareIdentifier.MatchString(name) && !reservedWords[name] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
