package types

import (
	"context"
	"iter"
	"maps"
	"slices"
)

// IDColumn is the identity key column present on every persisted table.
const IDColumn = "id"

// Row is a single stored row keyed by column name. Values are store scalars:
// string, int64, float64, bool, or nil.
type Row map[string]any

// Filter is an equality conjunction over attribute names. An empty filter
// matches every row.
type Filter map[string]any

// Clone returns a shallow copy of the filter so later mutation by the caller
// cannot change a query already described.
func (f Filter) Clone() Filter {
	if f == nil {
		return Filter{}
	}
	return maps.Clone(f)
}

// Keys returns the filter keys in sorted order.
func (f Filter) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// Condition is one equality term of a Query. A nil Value matches NULL.
type Condition struct {
	Column string
	Value  any
}

// Query describes a lookup against a single table. The identity key is
// always selected and always used as the ordering key.
type Query struct {
	Table   string
	Columns []string
	Where   []Condition
	Limit   int
}

// Column declares a stored column for table bootstrap. Type is one of the
// attribute type names (string, integer, number, boolean, date, json).
// Unique columns get a UNIQUE constraint; NULLs do not collide.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Unique   bool
}

// Store provides relational CRUD addressed by table name, identity key and
// column/value pairs. Every call is a single synchronous round trip unless the
// caller wraps several calls in Transact.
type Store interface {
	// Insert stores a new row and returns the generated identity key.
	Insert(ctx context.Context, table string, row Row) (string, error)

	// Update writes the given columns of the row with identity id.
	// Returns ErrNotFound if no row has that identity.
	Update(ctx context.Context, table, id string, changes Row) error

	// Delete removes the row with identity id.
	// Returns ErrNotFound if no row has that identity.
	Delete(ctx context.Context, table, id string) error

	// Select streams rows matching q, ordered by identity key ascending.
	// Each iteration of the returned sequence runs the query again.
	Select(ctx context.Context, q Query) iter.Seq2[Row, error]

	// Count returns the number of rows matching q.
	Count(ctx context.Context, q Query) (int64, error)

	// Transact runs fn inside a transaction bound to the context passed to
	// fn. The transaction commits when fn returns nil and rolls back
	// otherwise. Calls nested inside fn join the outer transaction.
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// TableCreator is implemented by stores that can bootstrap a table for a
// model. Existing tables are left untouched.
type TableCreator interface {
	EnsureTable(ctx context.Context, table string, cols []Column) error
}
