package sqlexpr

import "git.handmade.network/hmn/pgdsl/src/sqltypes"

type FunctionKind string

const (
	LowerFunction FunctionKind = "lower"
	UpperFunction FunctionKind = "upper"
)

// A single-argument function call, rendered as kind(argument).
type ScalarFunctionExpression struct {
	Kind     FunctionKind
	Argument Expression
	Type     sqltypes.SqlType
	Annotations
}

func NewScalarFunction(kind FunctionKind, argument Expression) *ScalarFunctionExpression {
	if kind == "" {
		malformed("function call has no name")
	}
	if isNil(argument) {
		malformed("%s() requires an argument", kind)
	}
	return &ScalarFunctionExpression{
		Kind:     kind,
		Argument: argument,
		Type:     kind.defaultType(argument),
	}
}

func (k FunctionKind) defaultType(argument Expression) sqltypes.SqlType {
	switch k {
	case LowerFunction, UpperFunction:
		return sqltypes.Varchar
	}
	if t := argument.ResultType(); t != nil {
		return t
	}
	return sqltypes.Varchar
}

func (f *ScalarFunctionExpression) ResultType() sqltypes.SqlType { return f.Type }
func (f *ScalarFunctionExpression) IsLeaf() bool                 { return false }

// lower(argument)
func Lower(argument Expression) *ScalarFunctionExpression {
	return NewScalarFunction(LowerFunction, argument)
}

// lower(?) with value bound as varchar.
func LowerValue(value string) *ScalarFunctionExpression {
	return Lower(Arg(value, sqltypes.Varchar))
}

// upper(argument)
func Upper(argument Expression) *ScalarFunctionExpression {
	return NewScalarFunction(UpperFunction, argument)
}
