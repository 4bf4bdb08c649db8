package types

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRatingKind(t *testing.T, reg *Registry) *Kind {
	t.Helper()
	kind, err := DefineKind("WebAppRating").
		Field("app_id", Text(Indexed(), Unique())).
		Field("app_name", Text(Unique())).
		Field("rating", JSON(AllowEmpty())).
		Register(reg)
	require.NoError(t, err)
	return kind
}

func TestDefineKindOrdersFields(t *testing.T) {
	kind := newRatingKind(t, NewRegistry())

	var names []string
	for _, f := range kind.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"app_id", "app_name", "rating"}, names)
	assert.Equal(t, "WebAppRating", kind.Name())
	assert.False(t, kind.HasCustomIdentity())

	f, ok := kind.Field("app_name")
	require.True(t, ok)
	assert.Equal(t, "app_name", f.Name())

	_, ok = kind.Field("missing")
	assert.False(t, ok)
}

func TestDefineKindErrors(t *testing.T) {
	shared := Text()
	_, err := DefineKind("A").Field("x", shared).Register(NewRegistry())
	require.NoError(t, err)

	tests := []struct {
		name    string
		builder *KindBuilder
		wantErr error
	}{
		{"empty kind name", DefineKind("").Field("x", Text()), ErrInvalidName},
		{"empty field name", DefineKind("B").Field("", Text()), ErrInvalidName},
		{"reserved identity name", DefineKind("B").Field(IdentityName, Text()), ErrInvalidName},
		{"duplicate field", DefineKind("B").Field("x", Text()).Field("x", Text()), ErrInvalidName},
		{"field bound twice", DefineKind("B").Field("y", shared), ErrFieldBound},
		{"blob identity", DefineKind("B").Identity(Blob()), ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Register(NewRegistry())
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	first := newRatingKind(t, reg)
	second, err := DefineKind("User").Field("email", Text(Unique())).Register(reg)
	require.NoError(t, err)

	assert.Equal(t, []*Kind{first, second}, reg.Kinds())

	got, err := reg.Lookup("User")
	require.NoError(t, err)
	assert.Same(t, second, got)

	_, err = reg.Lookup("Nope")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = DefineKind("User").Field("email", Text()).Register(reg)
	assert.ErrorIs(t, err, ErrKindExists)
}

func TestMustRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	DefineKind("A").Field("x", Text()).MustRegister(reg)
	assert.Panics(t, func() {
		DefineKind("A").Field("x", Text()).MustRegister(reg)
	})
}

func TestKindNotFoundIsPerKind(t *testing.T) {
	reg := NewRegistry()
	apps := newRatingKind(t, reg)
	users := DefineKind("User").Field("email", Text()).MustRegister(reg)

	err := error(apps.ErrNotFound())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apps.ErrNotFound())
	assert.NotErrorIs(t, err, users.ErrNotFound())
	assert.True(t, apps.IsNotFound(err))
	assert.False(t, users.IsNotFound(err))
}

func TestIdentitySerialization(t *testing.T) {
	reg := NewRegistry()
	auto := DefineKind("Auto").Field("x", Text()).MustRegister(reg)
	custom := DefineKind("Custom").Identity(UUID()).Field("x", Text()).MustRegister(reg)

	id, err := auto.SerializeIdentity(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = auto.SerializeIdentity("seven")
	assert.ErrorIs(t, err, ErrValidation)

	id, err = custom.SerializeIdentity("0190a4b3-7b4e-7c1a-9a55-2f1c3d4e5f60")
	require.NoError(t, err)
	assert.Equal(t, "0190a4b3-7b4e-7c1a-9a55-2f1c3d4e5f60", id)

	_, err = custom.SerializeIdentity("0190A4B3-7B4E-7C1A-9A55-2F1C3D4E5F60")
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, custom.Identity().Options().Primary)
	assert.Equal(t, IdentityName, custom.Identity().Name())

	back, err := auto.DeserializeIdentity(int64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), back)
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in     any
		want   int64
		wantOK bool
	}{
		{int(-3), -3, true},
		{int8(-8), -8, true},
		{int32(32), 32, true},
		{int64(math.MinInt64), math.MinInt64, true},
		{uint8(8), 8, true},
		{uint32(math.MaxUint32), math.MaxUint32, true},
		{uint64(math.MaxInt64), math.MaxInt64, true},
		{uint64(math.MaxInt64) + 1, 0, false},
		{uint64(math.MaxUint64), 0, false},
		{^uint(0), 0, false},
		{1.0, 0, false},
		{"1", 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt64(tt.in)
		assert.Equal(t, tt.wantOK, ok, "%T(%v)", tt.in, tt.in)
		assert.Equal(t, tt.want, got, "%T(%v)", tt.in, tt.in)
	}
}
