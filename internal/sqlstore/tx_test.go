package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

func countPeople(t *testing.T, b *Backend) int64 {
	t.Helper()
	n, err := b.Count(context.Background(), types.Query{Table: "people"})
	require.NoError(t, err)
	return n
}

func TestTransactCommits(t *testing.T) {
	b := setupBackend(t)

	err := b.Transact(context.Background(), func(ctx context.Context) error {
		assert.True(t, b.InTransaction(ctx))
		for _, name := range []string{"Ada", "Grace"} {
			if _, err := b.Insert(ctx, "people", types.Row{"name": name, "active": true}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), countPeople(t, b))
}

func TestTransactRollsBackOnError(t *testing.T) {
	b := setupBackend(t)
	errBoom := errors.New("boom")

	err := b.Transact(context.Background(), func(ctx context.Context) error {
		if _, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true}); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int64(0), countPeople(t, b))
}

func TestTransactRollsBackOnPanic(t *testing.T) {
	b := setupBackend(t)

	assert.Panics(t, func() {
		_ = b.Transact(context.Background(), func(ctx context.Context) error {
			if _, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true}); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, int64(0), countPeople(t, b))
}

func TestTransactNestedJoinsOuter(t *testing.T) {
	b := setupBackend(t)
	errBoom := errors.New("boom")

	err := b.Transact(context.Background(), func(ctx context.Context) error {
		inner := b.Transact(ctx, func(ctx context.Context) error {
			_, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true})
			return err
		})
		require.NoError(t, inner)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int64(0), countPeople(t, b), "inner work is discarded with the outer transaction")
}

func TestTransactIgnoresOtherBackendsTransaction(t *testing.T) {
	a := setupBackend(t)
	b := setupBackend(t)

	err := a.Transact(context.Background(), func(ctx context.Context) error {
		assert.False(t, b.InTransaction(ctx))
		_, err := b.Insert(ctx, "people", types.Row{"name": "Ada", "active": true})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countPeople(t, b))
}
