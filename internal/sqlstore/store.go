package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"maps"

	"go.uber.org/multierr"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Insert stores row in table under a freshly generated identity key. An "id"
// key in row is ignored.
func (b *Backend) Insert(ctx context.Context, table string, row types.Row) (string, error) {
	q, d, err := b.conn(ctx)
	if err != nil {
		return "", err
	}

	id, err := newID()
	if err != nil {
		return "", err
	}
	full := maps.Clone(row)
	if full == nil {
		full = types.Row{}
	}
	full[types.IDColumn] = id

	stmt, err := d.compileInsert(table, full)
	if err != nil {
		return "", err
	}
	if _, err := q.ExecContext(ctx, stmt.sql, stmt.args...); err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}
	return id, nil
}

// Update writes changes to the row with identity id. An empty change set
// issues no statement.
func (b *Backend) Update(ctx context.Context, table, id string, changes types.Row) error {
	q, d, err := b.conn(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	if _, ok := changes[types.IDColumn]; ok {
		return fmt.Errorf("update %s: identity key is immutable: %w", table, types.ErrInvalidState)
	}

	stmt, err := d.compileUpdate(table, id, changes)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return requireAffected(res, table, id)
}

// Delete removes the row with identity id.
func (b *Backend) Delete(ctx context.Context, table, id string) error {
	q, d, err := b.conn(ctx)
	if err != nil {
		return err
	}

	stmt, err := d.compileDelete(table, id)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return requireAffected(res, table, id)
}

func requireAffected(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, types.ErrNotFound)
	}
	return nil
}

// Select streams the rows matching query. The statement runs when the
// sequence is ranged over and the cursor is closed when iteration ends,
// including when the consumer stops early.
func (b *Backend) Select(ctx context.Context, query types.Query) iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		q, d, err := b.conn(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		stmt, err := d.compileSelect(query)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := q.QueryContext(ctx, stmt.sql, stmt.args...)
		if err != nil {
			yield(nil, fmt.Errorf("select from %s: %w", query.Table, err))
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, fmt.Errorf("select from %s: %w", query.Table, err))
			return
		}
		for rows.Next() {
			row, err := scanRow(rows, cols)
			if err != nil {
				yield(nil, fmt.Errorf("scanning %s row: %w", query.Table, err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := multierr.Combine(rows.Err(), rows.Close()); err != nil {
			yield(nil, fmt.Errorf("select from %s: %w", query.Table, err))
		}
	}
}

// Count returns the number of rows matching query.
func (b *Backend) Count(ctx context.Context, query types.Query) (int64, error) {
	q, d, err := b.conn(ctx)
	if err != nil {
		return 0, err
	}
	stmt, err := d.compileCount(query)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRowContext(ctx, stmt.sql, stmt.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", query.Table, err)
	}
	return n, nil
}

// scanRow reads the current row into a Row. Text returned as bytes is
// converted to string so callers see a single representation per engine.
func scanRow(rows *sql.Rows, cols []string) (types.Row, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(types.Row, len(cols))
	for i, c := range cols {
		if raw, ok := values[i].([]byte); ok {
			row[c] = string(raw)
			continue
		}
		row[c] = values[i]
	}
	return row, nil
}
