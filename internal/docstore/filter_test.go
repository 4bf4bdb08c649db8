package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		stored any
		op     types.Op
		value  any
		want   bool
	}{
		{"b", types.OpEq, "b", true},
		{"b", types.OpLt, "c", true},
		{"b", types.OpLte, "b", true},
		{"b", types.OpGt, "a", true},
		{"b", types.OpGte, "c", false},
		{int64(3), types.OpGt, int64(2), true},
		{[]byte{1, 2}, types.OpEq, []byte{1, 2}, true},
		{[]byte{1}, types.OpLt, []byte{2}, true},
		{nil, types.OpEq, nil, true},
		{nil, types.OpEq, "x", false},
		{"x", types.OpEq, nil, false},
		{nil, types.OpLt, "x", false},
		{int64(1), types.OpLt, "a", true}, // integers sort before text
		{"a", types.OpEq, []byte("a"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, evaluate(tt.stored, tt.op, tt.value), "%v %s %v", tt.stored, tt.op, tt.value)
	}
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "Rating:42", Key{Kind: "Rating", ID: 42}.String())
	assert.Equal(t, "ns/Rating:42", Key{Namespace: "ns", Kind: "Rating", ID: 42}.String())
	assert.Equal(t, "Session:'abc'", Key{Kind: "Session", Name: "abc"}.String())
}

func TestCompareKeys(t *testing.T) {
	assert.Negative(t, compareKeys(Key{Kind: "A", ID: 2}, Key{Kind: "A", ID: 10}))
	assert.Negative(t, compareKeys(Key{Kind: "A", ID: 10}, Key{Kind: "B", ID: 1}))
	assert.Zero(t, compareKeys(Key{Kind: "A", Name: "x"}, Key{Kind: "A", Name: "x"}))
}

func TestEncodeProperty(t *testing.T) {
	p, err := encodeProperty(int32(7))
	assert.NoError(t, err)
	assert.Equal(t, tagInt, p.T)

	v, err := decodeProperty(p)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = encodeProperty(3.5)
	assert.Error(t, err)
}
