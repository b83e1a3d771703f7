package sqlstore

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Compile-time interface check: Backend can bootstrap model tables.
var _ types.TableCreator = (*Backend)(nil)

// EnsureTable creates table with an identity key column followed by cols
// when it does not already exist. An existing table is left as it is.
func (b *Backend) EnsureTable(ctx context.Context, table string, cols []types.Column) error {
	q, d, err := b.conn(ctx)
	if err != nil {
		return err
	}
	ddl, err := d.compileCreateTable(table, cols)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}
