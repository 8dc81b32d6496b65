package sqltypes

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	now := time.Now()

	cases := []struct {
		name     string
		typ      SqlType
		value    any
		expected any
	}{
		{"int from int", Int, 7, int32(7)},
		{"bigint from int32", BigInt, int32(7), int64(7)},
		{"varchar", Varchar, "some title", "some title"},
		{"bool", Bool, true, true},
		{"timestamp", Timestamp, now, now},
		{"uuid", UUID, u1, pgtype.UUID{Bytes: u1, Valid: true}},
		{"id", IdType, Id(123), int32(123)},
		{"id array", IdArray, []Id{1, 2}, []int32{1, 2}},
		{"uuid array", UUIDArray, []uuid.UUID{u1, u2}, []pgtype.UUID{{Bytes: u1, Valid: true}, {Bytes: u2, Valid: true}}},
		{"null", IdArray, nil, nil},
		{"nil slice", UUIDArray, []uuid.UUID(nil), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bound, err := c.typ.Bind(c.value)
			require.Nil(t, err)
			assert.Equal(t, c.expected, bound)
		})
	}

	t.Run("mismatch", func(t *testing.T) {
		_, err := IdType.Bind(5)
		assert.True(t, errors.Is(err, ErrTypeMismatch))
		_, err = Varchar.Bind(5)
		assert.True(t, errors.Is(err, ErrTypeMismatch))
		_, err = IdArray.Bind([]int{1})
		assert.True(t, errors.Is(err, ErrTypeMismatch))
	})
	t.Run("out of int32 range", func(t *testing.T) {
		for _, c := range []struct {
			typ   SqlType
			value any
		}{
			{Int, int(3_000_000_000)},
			{Int, int64(math.MinInt32) - 1},
			{IdType, Id(1 << 32)},
			{IdArray, []Id{1, Id(math.MaxInt32) + 1}},
		} {
			bound, err := c.typ.Bind(c.value)
			assert.True(t, errors.Is(err, ErrTypeMismatch), "%s accepted %v", c.typ.Name(), c.value)
			assert.Nil(t, bound)
		}
	})
	t.Run("int32 bounds", func(t *testing.T) {
		bound, err := Int.Bind(int64(math.MaxInt32))
		require.Nil(t, err)
		assert.Equal(t, int32(math.MaxInt32), bound)
		bound, err = IdType.Bind(Id(math.MinInt32))
		require.Nil(t, err)
		assert.Equal(t, int32(math.MinInt32), bound)
	})
}

func TestExtract(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()

	t.Run("scalars", func(t *testing.T) {
		row := []any{int32(5), "title", true, nil}

		id, err := IdType.Extract(row, 0)
		require.Nil(t, err)
		assert.Equal(t, Id(5), id)

		n, err := Int.Extract(row, 0)
		require.Nil(t, err)
		assert.Equal(t, 5, n)

		s, err := Varchar.Extract(row, 1)
		require.Nil(t, err)
		assert.Equal(t, "title", s)

		b, err := Bool.Extract(row, 2)
		require.Nil(t, err)
		assert.Equal(t, true, b)

		null, err := Varchar.Extract(row, 3)
		require.Nil(t, err)
		assert.Nil(t, null)
	})
	t.Run("uuid", func(t *testing.T) {
		got, err := UUID.Extract([]any{[16]byte(u1)}, 0)
		require.Nil(t, err)
		assert.Equal(t, u1, got)
	})
	t.Run("id array drops nulls", func(t *testing.T) {
		got, err := IdArray.Extract([]any{[]any{int32(1), nil, int32(3)}}, 0)
		require.Nil(t, err)
		assert.Equal(t, []Id{1, 3}, got)
	})
	t.Run("id array from typed slice", func(t *testing.T) {
		got, err := IdArray.Extract([]any{[]int32{4, 5}}, 0)
		require.Nil(t, err)
		assert.Equal(t, []Id{4, 5}, got)
	})
	t.Run("uuid array", func(t *testing.T) {
		got, err := UUIDArray.Extract([]any{[]any{[16]byte(u1), [16]byte(u2)}}, 0)
		require.Nil(t, err)
		assert.Equal(t, []uuid.UUID{u1, u2}, got)
	})
	t.Run("uuid array rejects null elements", func(t *testing.T) {
		_, err := UUIDArray.Extract([]any{[]any{[16]byte(u1), nil}}, 0)
		assert.True(t, errors.Is(err, ErrNullElement))
	})
	t.Run("null array", func(t *testing.T) {
		got, err := UUIDArray.Extract([]any{nil}, 0)
		require.Nil(t, err)
		assert.Nil(t, got)
	})
	t.Run("wrong column count", func(t *testing.T) {
		_, err := Varchar.Extract([]any{"only one"}, 1)
		assert.True(t, errors.Is(err, ErrColumnIndex))
	})
	t.Run("wrong type in row", func(t *testing.T) {
		_, err := Bool.Extract([]any{"yes"}, 0)
		assert.True(t, errors.Is(err, ErrTypeMismatch))
	})
}
