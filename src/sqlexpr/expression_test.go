package sqlexpr

import (
	"errors"
	"testing"

	"git.handmade.network/hmn/pgdsl/src/sqltypes"
	"github.com/stretchr/testify/assert"
)

func assertMalformed(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if assert.True(t, ok, "expected a panic with an error, got %v", r) {
			assert.True(t, errors.Is(err, ErrMalformedExpression))
		}
	}()
	f()
}

func TestBinary(t *testing.T) {
	title := Column(nil, "title", sqltypes.Varchar)

	t.Run("comparison is boolean", func(t *testing.T) {
		b := Binary(title, Eq, Arg("some title", sqltypes.Varchar))
		assert.Equal(t, sqltypes.Bool, b.ResultType())
		assert.False(t, b.IsLeaf())
	})
	t.Run("arithmetic keeps left type", func(t *testing.T) {
		b := Binary(Arg(1, sqltypes.Int), Plus, Arg(2, sqltypes.Int))
		assert.Equal(t, sqltypes.Int, b.ResultType())
	})
	t.Run("missing operand", func(t *testing.T) {
		assertMalformed(t, func() { Binary(title, Eq, nil) })
		assertMalformed(t, func() { Binary(nil, Eq, title) })
	})
	t.Run("typed nil operand", func(t *testing.T) {
		assertMalformed(t, func() { Binary(title, Eq, (*Argument)(nil)) })
		assertMalformed(t, func() { Binary((*ColumnReference)(nil), Eq, title) })
	})
	t.Run("missing operator", func(t *testing.T) {
		assertMalformed(t, func() { Binary(title, "", title) })
	})
}

func TestScalarFunction(t *testing.T) {
	t.Run("lower defaults to varchar", func(t *testing.T) {
		f := Lower(Column(nil, "title", sqltypes.Varchar))
		assert.Equal(t, LowerFunction, f.Kind)
		assert.Equal(t, sqltypes.Varchar, f.ResultType())
	})
	t.Run("lower of a value", func(t *testing.T) {
		f := LowerValue("Some Title")
		arg, ok := f.Argument.(*Argument)
		if assert.True(t, ok) {
			assert.Equal(t, Param{Type: sqltypes.Varchar, Value: "Some Title"}, arg.Param())
		}
	})
	t.Run("missing argument", func(t *testing.T) {
		assertMalformed(t, func() { Lower(nil) })
		assertMalformed(t, func() { Lower((*ColumnReference)(nil)) })
		assertMalformed(t, func() { NewScalarFunction("", Arg(1, sqltypes.Int)) })
	})
}

func TestLeaves(t *testing.T) {
	assert.True(t, Arg(1, sqltypes.Int).IsLeaf())
	assert.True(t, Column(nil, "id", sqltypes.IdType).IsLeaf())
	assert.True(t, (&TableReference{Name: "book"}).IsLeaf())
	assertMalformed(t, func() { Arg(1, nil) })
	assertMalformed(t, func() { Column(nil, "", sqltypes.Int) })
}

func TestAssign(t *testing.T) {
	title := Column(nil, "title", sqltypes.Varchar)

	a := Assign(title, Arg("some title", sqltypes.Varchar))
	assert.Same(t, title, a.Column)
	assertMalformed(t, func() { Assign(nil, Arg("x", sqltypes.Varchar)) })
	assertMalformed(t, func() { Assign(title, nil) })
	assertMalformed(t, func() { Assign(title, (*Argument)(nil)) })
}

func TestAllOf(t *testing.T) {
	a := Binary(Column(nil, "a", sqltypes.Int), Eq, Arg(1, sqltypes.Int))
	b := Binary(Column(nil, "b", sqltypes.Int), Eq, Arg(2, sqltypes.Int))

	assert.Nil(t, AllOf())
	assert.Nil(t, AllOf(nil, nil))
	assert.Same(t, a, AllOf((*BinaryExpression)(nil), a))
	assert.Same(t, a, AllOf(nil, a))

	both, ok := AllOf(a, nil, b).(*BinaryExpression)
	if assert.True(t, ok) {
		assert.Equal(t, And, both.Operator)
		assert.Same(t, a, both.Left)
		assert.Same(t, b, both.Right)
	}
}

func TestAnnotations(t *testing.T) {
	arg := &Argument{Value: 1, Type: sqltypes.Int, Annotations: Annotations{"source": "test"}}
	assert.Equal(t, "test", arg.Extra()["source"])
	assert.Nil(t, Arg(1, sqltypes.Int).Extra())
}
