package record

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

// All streams every record of the model in identity key order.
func (m *Model) All(ctx context.Context) iter.Seq2[*Record, error] {
	return m.Where(ctx, nil)
}

// Where streams the records matching filter, an equality conjunction over
// attribute names. The key "id" matches the identity key and a nil value
// matches NULL. filter is copied, so later changes by the caller do not
// affect the sequence. Each range over the sequence runs the query again;
// stopping early closes the cursor.
func (m *Model) Where(ctx context.Context, filter types.Filter) iter.Seq2[*Record, error] {
	q, qerr := m.query(filter.Clone(), 0)
	return func(yield func(*Record, error) bool) {
		if qerr != nil {
			yield(nil, qerr)
			return
		}
		for row, err := range m.store.Select(ctx, q) {
			if err != nil {
				yield(nil, err)
				return
			}
			r, err := m.hydrate(row)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// FindBy returns the first record matching filter in identity key order, or
// types.ErrNotFound.
func (m *Model) FindBy(ctx context.Context, filter types.Filter) (*Record, error) {
	q, err := m.query(filter.Clone(), 1)
	if err != nil {
		return nil, err
	}
	for row, err := range m.store.Select(ctx, q) {
		if err != nil {
			return nil, err
		}
		return m.hydrate(row)
	}
	return nil, fmt.Errorf("%s: %w", m.name, types.ErrNotFound)
}

// Find returns the record with identity key id, or types.ErrNotFound.
func (m *Model) Find(ctx context.Context, id string) (*Record, error) {
	return m.FindBy(ctx, types.Filter{types.IDColumn: id})
}

// First returns the oldest record, or types.ErrNotFound.
func (m *Model) First(ctx context.Context) (*Record, error) {
	return m.FindBy(ctx, nil)
}

// Count returns the number of records matching filter.
func (m *Model) Count(ctx context.Context, filter types.Filter) (int64, error) {
	q, err := m.query(filter.Clone(), 0)
	if err != nil {
		return 0, err
	}
	return m.store.Count(ctx, q)
}

// Exists reports whether any record matches filter.
func (m *Model) Exists(ctx context.Context, filter types.Filter) (bool, error) {
	n, err := m.Count(ctx, filter)
	return n > 0, err
}

// query translates filter into a store query. Values are coerced through the
// schema and encoded the way they are stored, so a date or json filter
// matches the stored text.
func (m *Model) query(filter types.Filter, limit int) (types.Query, error) {
	q := types.Query{
		Table:   m.table,
		Columns: m.schema.Names(),
		Limit:   limit,
	}
	for _, key := range filter.Keys() {
		raw := filter[key]
		if key == types.IDColumn {
			id, err := cast.ToStringE(raw)
			if err != nil || raw == nil {
				return types.Query{}, fmt.Errorf("%s: identity key filter %T: %w", m.name, raw, types.ErrTypeMismatch)
			}
			q.Where = append(q.Where, types.Condition{Column: key, Value: id})
			continue
		}
		attr, ok := m.schema.Lookup(key)
		if !ok {
			return types.Query{}, fmt.Errorf("%s: filter on %q: %w", m.name, key, types.ErrUnknownAttribute)
		}
		if raw == nil {
			q.Where = append(q.Where, types.Condition{Column: key})
			continue
		}
		v, err := attr.Coerce(raw)
		if err != nil {
			return types.Query{}, fmt.Errorf("%s: filter: %w", m.name, err)
		}
		enc, err := attr.Encode(v)
		if err != nil {
			return types.Query{}, fmt.Errorf("%s: filter: %w", m.name, err)
		}
		q.Where = append(q.Where, types.Condition{Column: key, Value: enc})
	}
	return q, nil
}

var errMissingID = errors.New("missing identity key")

// hydrate decodes a stored row into a Persisted record.
func (m *Model) hydrate(row types.Row) (*Record, error) {
	id, err := cast.ToStringE(row[types.IDColumn])
	if err != nil || id == "" {
		return nil, &CorruptRowError{Table: m.table, ID: id, Err: errMissingID}
	}
	values := make(map[string]any, len(row))
	for _, a := range m.schema.Attributes() {
		v, err := a.Decode(row[a.Name])
		if err != nil {
			return nil, &CorruptRowError{Table: m.table, ID: id, Err: err}
		}
		values[a.Name] = v
	}
	return &Record{
		model:     m,
		id:        id,
		state:     Persisted,
		values:    values,
		persisted: cloneValues(values),
		virtual:   make(map[string]any),
		errors:    validation.Errors{},
	}, nil
}
