package sqlfmt

import (
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
)

/*
Rules for the node kinds the base rules leave alone: binary operators, with their
operands bracketed unless they are bracket-free, and single-argument functions.
Tried in that order.
*/
type ExtraRules struct{}

var _ RuleSet = ExtraRules{}

func (ExtraRules) Visit(f *Formatter, e sqlexpr.Expression) (bool, error) {
	switch e := e.(type) {
	case *sqlexpr.BinaryExpression:
		return true, visitBinary(f, e)
	case *sqlexpr.ScalarFunctionExpression:
		return true, visitScalarFunction(f, e)
	}
	return false, nil
}

func visitBinary(f *Formatter, e *sqlexpr.BinaryExpression) error {
	if err := f.VisitOperand(e.Left); err != nil {
		return err
	}
	f.WriteKeyword(string(e.Operator) + " ")
	return f.VisitOperand(e.Right)
}

func visitScalarFunction(f *Formatter, e *sqlexpr.ScalarFunctionExpression) error {
	f.Write(string(e.Kind) + "(")
	if err := f.Visit(e.Argument); err != nil {
		return err
	}
	f.RemoveLastBlank()
	f.Write(") ")
	return nil
}
