package db

import (
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/sqlexpr"
	"git.handmade.network/hmn/pgdsl/src/sqltypes"
)

// Converts formatter parameters into pgx arguments, in order. The value for
// placeholder $N ends up at index N-1.
func BindParams(params []sqlexpr.Param) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		if p.Type == nil {
			return nil, oops.New(sqltypes.ErrTypeMismatch, "parameter $%d has no SQL type", i+1)
		}
		bound, err := p.Type.Bind(p.Value)
		if err != nil {
			return nil, oops.New(err, "failed to bind parameter $%d as %s", i+1, sqltypes.Describe(p.Type))
		}
		args[i] = bound
	}
	return args, nil
}
