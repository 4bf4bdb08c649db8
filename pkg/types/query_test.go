package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilderIsImmutable(t *testing.T) {
	kind := newRatingKind(t, NewRegistry())

	base := NewQuery(kind).Where("app_id", OpEq, "x")
	ordered := base.OrderBy("-app_name")
	paged := ordered.Offset(5).Limit(10)
	widened := base.Where("app_name", OpGte, "m")

	assert.Len(t, base.Filters(), 1)
	assert.Empty(t, base.Order())
	assert.Len(t, widened.Filters(), 2)
	assert.Len(t, ordered.Filters(), 1)
	assert.Equal(t, []Order{{Field: "app_name", Desc: true}}, ordered.Order())

	_, ok := ordered.LimitValue()
	assert.False(t, ok)
	n, ok := paged.LimitValue()
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	n, ok = paged.OffsetValue()
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	// Mutating a returned slice does not leak into the query.
	fs := base.Filters()
	fs[0].Value = "changed"
	assert.Equal(t, "x", base.Filters()[0].Value)
}

func TestQueryRejectsUnknownFields(t *testing.T) {
	kind := newRatingKind(t, NewRegistry())

	q := NewQuery(kind).Where("nope", OpEq, 1)
	assert.ErrorIs(t, q.Err(), ErrUnknownField)

	q = NewQuery(kind).OrderBy("-nope")
	assert.ErrorIs(t, q.Err(), ErrUnknownField)

	q = NewQuery(kind).Where(IdentityName, OpGt, 3).OrderBy("-" + IdentityName)
	assert.NoError(t, q.Err())

	q = NewQuery(kind).Where("app_id", Op("LIKE"), "%x%")
	assert.ErrorIs(t, q.Err(), ErrInvalidOperator)

	q = NewQuery(kind).Limit(-1)
	assert.ErrorIs(t, q.Err(), ErrValidation)

	// The first error sticks.
	q = NewQuery(kind).Where("nope", OpEq, 1).Limit(-1)
	assert.ErrorIs(t, q.Err(), ErrUnknownField)
}

func TestQueryWhereEqSortsFields(t *testing.T) {
	kind := newRatingKind(t, NewRegistry())
	q := NewQuery(kind).WhereEq(Fields{"app_name": "y", "app_id": "x"})
	require.NoError(t, q.Err())
	assert.Equal(t, []Filter{
		{Field: "app_id", Op: OpEq, Value: "x"},
		{Field: "app_name", Op: OpEq, Value: "y"},
	}, q.Filters())
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, Order{Field: "a"}, ParseOrder("a"))
	assert.Equal(t, Order{Field: "a"}, ParseOrder("+a"))
	assert.Equal(t, Order{Field: "a", Desc: true}, ParseOrder("-a"))
	assert.Equal(t, "-a", ParseOrder("-a").String())
}

func TestParseOp(t *testing.T) {
	for _, s := range []string{"=", "==", "!=", "<", "<=", ">", ">="} {
		_, err := ParseOp(s)
		assert.NoError(t, err, s)
	}
	op, _ := ParseOp("==")
	assert.Equal(t, OpEq, op)
	_, err := ParseOp("~")
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestSerializeFilter(t *testing.T) {
	kind := newRatingKind(t, NewRegistry())

	v, err := kind.SerializeFilter(Filter{Field: "rating", Op: OpEq, Value: []any{1.0}})
	require.NoError(t, err)
	assert.Equal(t, []byte("[1.0]"), v)

	v, err = kind.SerializeFilter(Filter{Field: IdentityName, Op: OpEq, Value: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = kind.SerializeFilter(Filter{Field: "app_id", Op: OpEq, Value: 3})
	assert.ErrorIs(t, err, ErrValidation)
}
