package types

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValidate(t *testing.T) {
	tests := []struct {
		name    string
		field   *Field
		value   any
		wantErr bool
	}{
		{"text accepts string", Text(), "hello", false},
		{"text rejects int", Text(), 42, true},
		{"text rejects bytes", Text(), []byte("x"), true},
		{"blob accepts bytes", Blob(), []byte{0, 1, 2}, false},
		{"blob rejects string", Blob(), "x", true},
		{"json accepts list", JSON(), []any{1.0, "a"}, false},
		{"json accepts int64 members", JSON(), map[string]any{"n": int64(1)}, false},
		{"json accepts map", JSON(), map[string]any{"a": 1.0}, false},
		{"json rejects typed slice", JSON(), []string{"a", "b"}, true},
		{"json rejects array", JSON(), [2]int{1, 2}, true},
		{"json rejects int member", JSON(), []any{1}, true},
		{"json rejects struct member", JSON(), []any{struct{ A int }{1}}, true},
		{"json rejects NaN", JSON(), []any{math.NaN()}, true},
		{"json rejects nil list", JSON(), []any(nil), true},
		{"json rejects nested nil map", JSON(), []any{map[string]any(nil)}, true},
		{"json rejects string", JSON(), "[]", true},
		{"json rejects bytes", JSON(), []byte("[]"), true},
		{"json rejects int-keyed map", JSON(), map[int]string{1: "a"}, true},
		{"json rejects unencodable member", JSON(), []any{make(chan int)}, true},
		{"uuid accepts uuid", UUID(), "0190a4b3-7b4e-7c1a-9a55-2f1c3d4e5f60", false},
		{"uuid rejects garbage", UUID(), "not-a-uuid", true},
		{"uuid rejects uppercase", UUID(), "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", true},
		{"uuid rejects braces", UUID(), "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", true},
		{"uuid rejects urn form", UUID(), "urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{"nil always passes", Text(), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate(tt.value)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			if diff := cmp.Diff(tt.value, ve.Got, cmpopts.EquateNaNs()); diff != "" {
				t.Errorf("ValidationError.Got mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		field *Field
		value any
	}{
		{"text", Text(), "héllo wörld"},
		{"empty text", Text(), ""},
		{"blob", Blob(), []byte{0x00, 0xff, 0x10}},
		{"json list", JSON(), []any{1.0, "two", true, nil}},
		{"json int64", JSON(), map[string]any{"n": int64(1)}},
		{"json int64 beyond float precision", JSON(), []any{int64(1<<53 + 1), int64(math.MinInt64), int64(math.MaxInt64)}},
		{"json integral float", JSON(), []any{5.0, -0.5, 1e21, 0.0}},
		{"json mixed numbers", JSON(), map[string]any{"i": int64(5), "f": 5.0}},
		{"json empty list", JSON(), []any{}},
		{"json empty map", JSON(), map[string]any{}},
		{"json nested", JSON(), map[string]any{
			"votes": []any{5.0, 4.0},
			"meta":  map[string]any{"source": "web", "tags": []any{}},
		}},
		{"uuid", UUID(), "0190a4b3-7b4e-7c1a-9a55-2f1c3d4e5f60"},
		{"uuid v1", UUID(), "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.field.Validate(tt.value))
			raw, err := tt.field.Serialize(tt.value)
			require.NoError(t, err)
			got, err := tt.field.Deserialize(raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONDecodesIntegersAsInt64(t *testing.T) {
	got, err := JSON().Deserialize([]byte(`{"a":[1,2.5,9007199254740993,1e2,99999999999999999999]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": []any{int64(1), 2.5, int64(9007199254740993), 100.0, 1e20},
	}, got)
}

func TestJSONCanonicalEncoding(t *testing.T) {
	f := JSON()
	a, err := f.Serialize(map[string]any{"b": 1.0, "a": int64(2), "c": []any{"<x>"}})
	require.NoError(t, err)
	b, err := f.Serialize(map[string]any{"c": []any{"<x>"}, "a": int64(2), "b": 1.0})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, `{"a":2,"b":1.0,"c":["\u003cx\u003e"]}`, string(a.([]byte)))

	_, err = DecodeJSON([]byte(`[1] [2]`))
	assert.Error(t, err)
}

func TestTextDeserializeAcceptsBytes(t *testing.T) {
	got, err := Text().Deserialize([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestUUIDStoredUnchanged(t *testing.T) {
	f := UUID()
	for _, v := range []string{uuidV7(t), "00000000-0000-0000-0000-000000000000"} {
		raw, err := f.Serialize(v)
		require.NoError(t, err)
		assert.Equal(t, v, raw)
		got, err := f.Deserialize(raw)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func uuidV7(t *testing.T) string {
	t.Helper()
	u, err := uuid.NewV7()
	require.NoError(t, err)
	return u.String()
}

func TestBlobForcesStorageOptions(t *testing.T) {
	f := Blob(Indexed(), Unique(), Primary(), AllowEmpty())
	opts := f.Options()
	assert.False(t, opts.Index)
	assert.False(t, opts.Unique)
	assert.False(t, opts.Primary)
	assert.True(t, opts.Empty)
	assert.False(t, opts.Required())

	j := JSON(Indexed())
	assert.Equal(t, TypeJSON, j.Type())
	assert.False(t, j.Options().Index)
}

func TestFieldOptions(t *testing.T) {
	f := Text(Indexed(), Unique(), Descending(), Default("n/a"))
	opts := f.Options()
	assert.True(t, opts.Index)
	assert.True(t, opts.Unique)
	assert.True(t, opts.Desc)
	assert.True(t, opts.Required())
	assert.Equal(t, "n/a", f.Default())
	assert.Equal(t, TypeText, f.Type())
	assert.Equal(t, "", f.Name())
}

func TestValidationErrorNamesField(t *testing.T) {
	reg := NewRegistry()
	kind, err := DefineKind("App").Field("name", Text()).Register(reg)
	require.NoError(t, err)
	f, ok := kind.Field("name")
	require.True(t, ok)

	err = f.Validate(3)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "App", ve.Kind)
	assert.Equal(t, "name", ve.Field)
	assert.Contains(t, err.Error(), `"App.name"`)
}
