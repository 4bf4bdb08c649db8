package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

func TestParseSchema_Default(t *testing.T) {
	reg, err := parseSchema([]byte(defaultSchemaYAML))
	require.NoError(t, err)

	kind, err := reg.Lookup("WebAppRating")
	require.NoError(t, err)
	assert.False(t, kind.HasCustomIdentity())

	appID, ok := kind.Field("app_id")
	require.True(t, ok)
	assert.Equal(t, types.TypeUUID, appID.Type())
	assert.True(t, appID.Options().Index)
	assert.True(t, appID.Options().Unique)

	rating, ok := kind.Field("rating")
	require.True(t, ok)
	assert.Equal(t, types.TypeJSON, rating.Type())
	assert.True(t, rating.Options().Empty)
}

func TestParseSchema_IdentityAndDefaults(t *testing.T) {
	reg, err := parseSchema([]byte(`
kinds:
  - name: Account
    identity: uuid
    fields:
      - {name: nick}
      - {name: avatar, type: blob, default: aGk=}
      - {name: tags, type: json, default: [a, b]}
      - {name: limits, type: json, default: {max: 3, ratio: 0.5, list: [1]}}
`))
	require.NoError(t, err)

	kind, err := reg.Lookup("Account")
	require.NoError(t, err)
	require.True(t, kind.HasCustomIdentity())
	assert.Equal(t, types.TypeUUID, kind.Identity().Type())

	nick, _ := kind.Field("nick")
	assert.Equal(t, types.TypeText, nick.Type())
	avatar, _ := kind.Field("avatar")
	assert.Equal(t, []byte("hi"), avatar.Default())
	tags, _ := kind.Field("tags")
	assert.Equal(t, []any{"a", "b"}, tags.Default())
	limits, _ := kind.Field("limits")
	assert.Equal(t, map[string]any{"max": int64(3), "ratio": 0.5, "list": []any{int64(1)}}, limits.Default())
}

func TestParseSchema_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "kinds: [\n"},
		{"unknown type", "kinds:\n  - name: K\n    fields:\n      - {name: f, type: int}\n"},
		{"bad identity", "kinds:\n  - name: K\n    identity: json\n    fields: []\n"},
		{"bad blob default", "kinds:\n  - name: K\n    fields:\n      - {name: f, type: blob, default: '!!'}\n"},
		{"default of wrong type", "kinds:\n  - name: K\n    fields:\n      - {name: f, type: uuid, default: nope}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSchema([]byte(tt.yaml))
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}

	_, err := parseSchema([]byte("kinds:\n  - {name: K, fields: []}\n  - {name: K, fields: []}\n"))
	assert.ErrorIs(t, err, types.ErrKindExists)
}

func TestLoadSchema_Missing(t *testing.T) {
	_, err := loadSchema(filepath.Join(t.TempDir(), "kinds.yaml"))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestWriteSchemaIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kinds.yaml")
	require.NoError(t, writeSchemaIfMissing(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, defaultSchemaYAML, string(data))

	require.NoError(t, os.WriteFile(path, []byte("kinds: []\n"), 0o644))
	require.NoError(t, writeSchemaIfMissing(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kinds: []\n", string(data))
}
