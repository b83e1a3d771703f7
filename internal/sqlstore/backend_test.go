package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

var peopleColumns = []types.Column{
	{Name: "name", Type: "string"},
	{Name: "age", Type: "integer", Nullable: true},
	{Name: "score", Type: "number", Nullable: true},
	{Name: "active", Type: "boolean"},
}

// setupBackend attaches a SQLite backend in a temp dir with a "people" table.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	require.NoError(t, b.EnsureTable(context.Background(), "people", peopleColumns))
	return b
}

func TestBackendAttach(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "data")

	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}
	require.NoError(t, b.Attach(config))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(tmpDir, DatabaseFileName))
	assert.NoError(t, err, "database file should be created")
	assert.Equal(t, config, b.Config())

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackendAttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Attach(types.Config{}), types.ErrBackendEmpty)
	assert.ErrorIs(t, b.Attach(types.Config{Backend: types.BackendPostgres}), types.ErrDSNRequired)
}

func TestBackendDetach(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	_, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true})
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	for _, err := range b.Select(ctx, types.Query{Table: "people"}) {
		assert.ErrorIs(t, err, types.ErrStoreDetached)
	}

	err = b.Transact(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestDataPersistsAcrossAttach(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	require.NoError(t, b.EnsureTable(ctx, "people", peopleColumns))
	id, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(config))
	defer b2.Detach()
	require.NoError(t, b2.EnsureTable(ctx, "people", peopleColumns), "EnsureTable is idempotent")

	n, err := b2.Count(ctx, types.Query{Table: "people", Where: []types.Condition{{Column: "id", Value: id}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
