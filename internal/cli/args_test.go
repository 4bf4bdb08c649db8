package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

func testKind(t *testing.T) *types.Kind {
	t.Helper()
	kind, err := types.DefineKind("Doc").
		Field("title", types.Text()).
		Field("meta", types.JSON(types.AllowEmpty())).
		Field("body", types.Blob(types.AllowEmpty())).
		Register(types.NewRegistry())
	require.NoError(t, err)
	return kind
}

func TestParseFilter(t *testing.T) {
	kind := testKind(t)

	tests := []struct {
		expr string
		want types.Filter
	}{
		{"title=a", types.Filter{Field: "title", Op: types.OpEq, Value: "a"}},
		{"title==a", types.Filter{Field: "title", Op: types.OpEq, Value: "a"}},
		{"title!=a", types.Filter{Field: "title", Op: types.OpNe, Value: "a"}},
		{"title>=a", types.Filter{Field: "title", Op: types.OpGte, Value: "a"}},
		{"title<=a", types.Filter{Field: "title", Op: types.OpLte, Value: "a"}},
		{"title<a", types.Filter{Field: "title", Op: types.OpLt, Value: "a"}},
		{"title>a", types.Filter{Field: "title", Op: types.OpGt, Value: "a"}},
		{"title=a=b", types.Filter{Field: "title", Op: types.OpEq, Value: "a=b"}},
		{"title=", types.Filter{Field: "title", Op: types.OpEq, Value: ""}},
		{"_id>3", types.Filter{Field: "_id", Op: types.OpGt, Value: int64(3)}},
		{`meta=[1,"x"]`, types.Filter{Field: "meta", Op: types.OpEq, Value: []any{int64(1), "x"}}},
		{"body=aGk=", types.Filter{Field: "body", Op: types.OpEq, Value: []byte("hi")}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parseFilter(kind, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	kind := testKind(t)

	tests := []struct {
		expr    string
		wantErr error
	}{
		{"title", errUsage},
		{"=a", errUsage},
		{"nope=a", types.ErrUnknownField},
		{"meta={", errUsage},
		{"body=!!", errUsage},
		{"_id=x", errUsage},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := parseFilter(kind, tt.expr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseAssignments(t *testing.T) {
	kind := testKind(t)

	values, id, err := parseAssignments(kind, []string{"title=x", `meta={"a":true}`, "_id=9"})
	require.NoError(t, err)
	assert.Equal(t, types.Fields{"title": "x", "meta": map[string]any{"a": true}}, values)
	assert.Equal(t, int64(9), id)

	_, _, err = parseAssignments(kind, []string{"title"})
	assert.ErrorIs(t, err, errUsage)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, "x", formatValue("x"))
	assert.Equal(t, "aGk=", formatValue([]byte("hi")))
	assert.Equal(t, `{"a":[1,2]}`, formatValue(map[string]any{"a": []any{1, 2}}))
}
