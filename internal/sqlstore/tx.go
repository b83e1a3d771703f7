package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/mesh-intelligence/recordkit/internal/ctxlog"
	"github.com/mesh-intelligence/recordkit/pkg/types"
)

type txKey struct{}

// txState binds an open transaction to the backend that started it, so a
// context carrying one backend's transaction is never used by another.
type txState struct {
	backend *Backend
	tx      *sql.Tx
}

func txFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// InTransaction reports whether ctx carries a transaction of this backend.
func (b *Backend) InTransaction(ctx context.Context) bool {
	st := txFrom(ctx)
	return st != nil && st.backend == b
}

// Transact runs fn in a transaction. Store calls made with the context passed
// to fn use that transaction. The transaction commits when fn returns nil
// and is rolled back otherwise, including when fn panics. A Transact call
// nested inside fn joins the outer transaction.
func (b *Backend) Transact(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if b.InTransaction(ctx) {
		return fn(ctx)
	}

	b.mu.RLock()
	attached, db, backend := b.attached, b.db, b.config.Backend
	b.mu.RUnlock()
	if !attached {
		return types.ErrStoreDetached
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		ctxlog.FromContext(ctx).Debug("transaction rolled back", "backend", backend)
	}()

	if err = fn(context.WithValue(ctx, txKey{}, &txState{backend: b, tx: tx})); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
