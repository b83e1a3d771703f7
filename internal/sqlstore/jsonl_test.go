package sqlstore

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

func TestExportWritesOneLinePerRow(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"Ada", "Grace"} {
		id, err := b.Insert(ctx, "people", types.Row{"name": name, "active": true})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	dir := filepath.Join(t.TempDir(), "export")
	n, err := b.Export(ctx, "people", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(filepath.Join(dir, "people.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, got, 2)
	assert.Equal(t, ids[0], got[0]["id"])
	assert.Equal(t, "Grace", got[1]["name"])
}

func TestExportOmitsColumns(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	_, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true})
	require.NoError(t, err)

	dir := t.TempDir()
	n, err := b.Export(ctx, "people", dir, "active")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(dir, "people.jsonl"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "Ada", rec["name"])
	assert.NotContains(t, rec, "active")
	assert.Contains(t, rec, "id")

	_, err = b.Export(ctx, "people", dir, "bad col")
	assert.ErrorIs(t, err, types.ErrUnknownAttribute)
}

func TestExportEmptyTable(t *testing.T) {
	b := setupBackend(t)
	dir := t.TempDir()

	n, err := b.Export(context.Background(), "people", dir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	info, err := os.Stat(filepath.Join(dir, "people.jsonl"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	leftovers, err := filepath.Glob(filepath.Join(dir, ".jsonl-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExportRejectsInvalidTable(t *testing.T) {
	b := setupBackend(t)
	_, err := b.Export(context.Background(), "../people", t.TempDir())
	assert.ErrorIs(t, err, types.ErrInvalidTable)
}
