// Package sqlstore implements types.Store over database/sql. SQLite (via
// modernc.org/sqlite) is the default engine; PostgreSQL is reached through
// the pgx stdlib driver. Rows are addressed by table name and a UUID v7
// identity key stored in the "id" column.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// DatabaseFileName is the SQLite database file created inside DataDir.
const DatabaseFileName = "recordkit.db"

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// Backend implements types.Store. A Backend is safe for concurrent use by
// independent request contexts; cross-request consistency relies on the
// engine's own locking.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  dialect
	db       *sql.DB
}

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens the database described by config. For SQLite it creates
// DataDir if it does not exist.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	d := dialectFor(config.Backend)
	dsn := config.DSN
	if config.Backend == types.BackendSQLite {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dsn = sqliteDSN(filepath.Join(dataDir, DatabaseFileName))
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return fmt.Errorf("opening %s database: %w", config.Backend, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s database: %w", config.Backend, err)
	}

	b.db = db
	b.config = config
	b.dialect = d
	b.attached = true
	return nil
}

// Detach releases the database connection. After Detach, all operations
// return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction bound to ctx by Transact, or the shared pool.
func (b *Backend) conn(ctx context.Context) (querier, dialect, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, dialect{}, types.ErrStoreDetached
	}
	if st := txFrom(ctx); st != nil && st.backend == b {
		return st.tx, b.dialect, nil
	}
	return b.db, b.dialect, nil
}

// newID generates a UUID v7 string. V7 keys sort in creation order, which
// makes the identity key a stable default ordering.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}
