// Package sqlstore provides the public API for the SQL store backend.
// This package exposes the factory functions while keeping implementation
// details internal.
package sqlstore

import (
	"github.com/mesh-intelligence/recordkit/internal/sqlstore"
	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Backend is a types.Store over SQLite or PostgreSQL. Beyond the Store
// methods it offers Attach, Detach, EnsureTable and Export.
type Backend = sqlstore.Backend

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlstore.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".recordkit-db",
//	})
//	defer backend.Detach()
func NewBackend() *Backend {
	return sqlstore.NewBackend()
}

// Open creates a backend and attaches it with config.
func Open(config types.Config) (*Backend, error) {
	b := sqlstore.NewBackend()
	if err := b.Attach(config); err != nil {
		return nil, err
	}
	return b, nil
}
