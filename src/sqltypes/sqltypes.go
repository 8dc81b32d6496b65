/*
Package sqltypes describes how Go values cross the boundary into and out of
Postgres for each column type we know about.

Every SqlType can bind a Go value into the argument list of a query, and extract
a Go value from a result row as returned by pgx's Rows.Values. The formatter never
looks inside a SqlType; it only carries it alongside each bind parameter so that
the execution layer can do the conversion.
*/
package sqltypes

import (
	"errors"
	"fmt"
	"math"
	"time"

	"git.handmade.network/hmn/pgdsl/src/oops"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var ErrTypeMismatch = errors.New("value does not match column type")
var ErrNullElement = errors.New("array contains a NULL element")
var ErrColumnIndex = errors.New("column index out of range")

type SqlType interface {
	// The Postgres type name, e.g. "int" or "uuid[]".
	Name() string
	// Converts a Go value into the value handed to pgx for its placeholder.
	// A nil value binds SQL NULL.
	Bind(value any) (any, error)
	// Pulls the value at index out of a result row. SQL NULL comes back as nil.
	Extract(values []any, index int) (any, error)
}

// Primary key values in our schemas. Stored as int.
type Id int

var (
	Int       SqlType = intType{}
	BigInt    SqlType = bigIntType{}
	Varchar   SqlType = varcharType{}
	Bool      SqlType = boolType{}
	Timestamp SqlType = timestampType{}
	UUID      SqlType = uuidType{}
	IdType    SqlType = idType{}
	IdArray   SqlType = idArrayType{}
	UUIDArray SqlType = uuidArrayType{}
)

func mismatch(t SqlType, value any) error {
	return oops.New(ErrTypeMismatch, "cannot use %v (%T) as %s", value, value, t.Name())
}

func column(t SqlType, values []any, index int) (any, error) {
	if index < 0 || index >= len(values) {
		return nil, oops.New(ErrColumnIndex, "cannot read %s at index %d of a row with %d values", t.Name(), index, len(values))
	}
	return values[index], nil
}

// Postgres int is 32 bits. Anything that does not fit is a mismatch, never wrapped.
func fitsInt32(n int64) bool {
	return n >= math.MinInt32 && n <= math.MaxInt32
}

type intType struct{}

func (intType) Name() string { return "int" }

func (t intType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		if fitsInt32(int64(v)) {
			return int32(v), nil
		}
	case int32:
		return v, nil
	case int64:
		if fitsInt32(v) {
			return int32(v), nil
		}
	}
	return nil, mismatch(t, value)
}

func (t intType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	n, ok := asInt64(raw)
	if !ok {
		return nil, mismatch(t, raw)
	}
	return int(n), nil
}

type bigIntType struct{}

func (bigIntType) Name() string { return "bigint" }

func (t bigIntType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	}
	return nil, mismatch(t, value)
}

func (t bigIntType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	n, ok := asInt64(raw)
	if !ok {
		return nil, mismatch(t, raw)
	}
	return n, nil
}

type varcharType struct{}

func (varcharType) Name() string { return "varchar" }

func (t varcharType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	}
	return nil, mismatch(t, value)
}

func (t varcharType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	s, ok := raw.(string)
	if !ok {
		return nil, mismatch(t, raw)
	}
	return s, nil
}

type boolType struct{}

func (boolType) Name() string { return "boolean" }

func (t boolType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	}
	return nil, mismatch(t, value)
}

func (t boolType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, mismatch(t, raw)
	}
	return b, nil
}

type timestampType struct{}

func (timestampType) Name() string { return "timestamp" }

func (t timestampType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	}
	return nil, mismatch(t, value)
}

func (t timestampType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case pgtype.Timestamp:
		if !v.Valid {
			return nil, nil
		}
		return v.Time, nil
	}
	return nil, mismatch(t, raw)
}

type uuidType struct{}

func (uuidType) Name() string { return "uuid" }

func (t uuidType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return pgtype.UUID{Bytes: v, Valid: true}, nil
	}
	return nil, mismatch(t, value)
}

func (t uuidType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	u, ok, valid := asUUID(raw)
	if !ok {
		return nil, mismatch(t, raw)
	}
	if !valid {
		return nil, nil
	}
	return u, nil
}

type idType struct{}

func (idType) Name() string { return "int" }

func (t idType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Id:
		if fitsInt32(int64(v)) {
			return int32(v), nil
		}
	}
	return nil, mismatch(t, value)
}

func (t idType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}
	n, ok := asInt64(raw)
	if !ok {
		return nil, mismatch(t, raw)
	}
	return Id(n), nil
}

// int[] holding ids. NULL elements are dropped on the way out.
type idArrayType struct{}

func (idArrayType) Name() string { return "int[]" }

func (t idArrayType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []Id:
		if v == nil {
			return nil, nil
		}
		ints := make([]int32, len(v))
		for i, id := range v {
			if !fitsInt32(int64(id)) {
				return nil, oops.New(ErrTypeMismatch, "id %d at index %d does not fit in %s", id, i, t.Name())
			}
			ints[i] = int32(id)
		}
		return ints, nil
	}
	return nil, mismatch(t, value)
}

func (t idArrayType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}

	elems, ok := asAnySlice(raw)
	if !ok {
		return nil, mismatch(t, raw)
	}

	ids := make([]Id, 0, len(elems))
	for _, elem := range elems {
		if elem == nil {
			continue
		}
		n, ok := asInt64(elem)
		if !ok {
			return nil, mismatch(t, elem)
		}
		ids = append(ids, Id(n))
	}
	return ids, nil
}

// uuid[]. Unlike int[], a NULL element is an error.
type uuidArrayType struct{}

func (uuidArrayType) Name() string { return "uuid[]" }

func (t uuidArrayType) Bind(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []uuid.UUID:
		if v == nil {
			return nil, nil
		}
		pgUUIDs := make([]pgtype.UUID, len(v))
		for i, u := range v {
			pgUUIDs[i] = pgtype.UUID{Bytes: u, Valid: true}
		}
		return pgUUIDs, nil
	}
	return nil, mismatch(t, value)
}

func (t uuidArrayType) Extract(values []any, index int) (any, error) {
	raw, err := column(t, values, index)
	if err != nil || raw == nil {
		return nil, err
	}

	elems, ok := asAnySlice(raw)
	if !ok {
		return nil, mismatch(t, raw)
	}

	uuids := make([]uuid.UUID, len(elems))
	for i, elem := range elems {
		if elem == nil {
			return nil, oops.New(ErrNullElement, "element %d of uuid[] is NULL", i)
		}
		u, ok, valid := asUUID(elem)
		if !ok {
			return nil, mismatch(t, elem)
		}
		if !valid {
			return nil, oops.New(ErrNullElement, "element %d of uuid[] is NULL", i)
		}
		uuids[i] = u
	}
	return uuids, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Returns the UUID, whether v was a UUID at all, and whether it was non-NULL.
func asUUID(v any) (uuid.UUID, bool, bool) {
	switch u := v.(type) {
	case [16]byte:
		return uuid.UUID(u), true, true
	case uuid.UUID:
		return u, true, true
	case pgtype.UUID:
		return uuid.UUID(u.Bytes), true, u.Valid
	}
	return uuid.UUID{}, false, false
}

// pgx hands arrays back as []any when decoding to Go values; typed slices show
// up when a caller scanned into them first.
func asAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []int32:
		return toAny(s), true
	case []int64:
		return toAny(s), true
	case []pgtype.UUID:
		return toAny(s), true
	case [][16]byte:
		return toAny(s), true
	case []uuid.UUID:
		return toAny(s), true
	}
	return nil, false
}

func toAny[T any](s []T) []any {
	result := make([]any, len(s))
	for i, v := range s {
		result[i] = v
	}
	return result
}

// Name plus Go type, for error messages and debug output.
func Describe(t SqlType) string {
	if t == nil {
		return "<untyped>"
	}
	return fmt.Sprintf("%s (%T)", t.Name(), t)
}
