package kindstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

func counterValue(snap tally.Snapshot, name, op string) int64 {
	for _, c := range snap.Counters() {
		if c.Name() == name && c.Tags()["operation"] == op {
			return c.Value()
		}
	}
	return 0
}

func TestMetricsCountOperations(t *testing.T) {
	reg := types.NewRegistry()
	kind := ratingKind(t, reg)
	scope := tally.NewTestScope("kindstore", nil)

	conn, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, reg, WithScope(scope))
	require.NoError(t, err)
	defer conn.Close()
	m := NewManager(kind, conn)

	_, err = m.Create(types.Fields{"app_id": "a", "app_name": "A"})
	require.NoError(t, err)
	_, err = m.Create(types.Fields{"app_id": "a", "app_name": "B"})
	require.ErrorIs(t, err, types.ErrUniquenessConflict)

	found, err := m.Select().Collect()
	require.NoError(t, err)
	require.Len(t, found, 1)

	n, err := m.DeleteBy(types.Fields{"app_id": "a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	snap := scope.Snapshot()
	assert.Equal(t, int64(2), counterValue(snap, "kindstore.calls", "insert"))
	assert.Equal(t, int64(1), counterValue(snap, "kindstore.errors", "insert"))
	assert.Equal(t, int64(1), counterValue(snap, "kindstore.calls", "query"))
	assert.Equal(t, int64(1), counterValue(snap, "kindstore.entities", "query"))
	assert.Equal(t, int64(1), counterValue(snap, "kindstore.deleted", "delete_by"))

	for _, c := range snap.Counters() {
		assert.Equal(t, types.BackendSQLite, c.Tags()["backend"])
		assert.Equal(t, "WebAppRating", c.Tags()["kind"])
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(types.Config{Backend: "cassandra"}, types.NewRegistry())
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}
