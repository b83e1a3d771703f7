package sqlstore

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// statement is a compiled SQL string plus its positional arguments. Values
// never appear in the SQL text.
type statement struct {
	sql  string
	args []any
}

// builder accumulates SQL text and arguments while numbering placeholders.
type builder struct {
	d    dialect
	sb   strings.Builder
	args []any
}

func (b *builder) write(s string) { b.sb.WriteString(s) }

func (b *builder) bind(v any) {
	b.args = append(b.args, v)
	b.sb.WriteString(b.d.placeholder(len(b.args)))
}

func (b *builder) statement() statement {
	return statement{sql: b.sb.String(), args: b.args}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func checkTable(table string) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("%w: %q", types.ErrInvalidTable, table)
	}
	return nil
}

func checkColumns(cols []string) error {
	for _, c := range cols {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("%w: column %q", types.ErrUnknownAttribute, c)
		}
	}
	return nil
}

// where appends a WHERE clause for conds, sorted by column. A nil value
// compiles to IS NULL.
func (b *builder) where(conds []types.Condition) error {
	if len(conds) == 0 {
		return nil
	}
	sorted := slices.Clone(conds)
	slices.SortStableFunc(sorted, func(x, y types.Condition) int {
		return strings.Compare(x.Column, y.Column)
	})
	b.write(" WHERE ")
	for i, c := range sorted {
		if err := checkColumns([]string{c.Column}); err != nil {
			return err
		}
		if i > 0 {
			b.write(" AND ")
		}
		b.write(quoteIdent(c.Column))
		if c.Value == nil {
			b.write(" IS NULL")
			continue
		}
		b.write(" = ")
		b.bind(c.Value)
	}
	return nil
}

// compileSelect renders q as a SELECT ordered by identity key. An empty
// column list selects every column.
func (d dialect) compileSelect(q types.Query) (statement, error) {
	if err := checkTable(q.Table); err != nil {
		return statement{}, err
	}
	if err := checkColumns(q.Columns); err != nil {
		return statement{}, err
	}

	b := &builder{d: d}
	b.write("SELECT ")
	if len(q.Columns) == 0 {
		b.write("*")
	} else {
		cols := []string{quoteIdent(types.IDColumn)}
		for _, c := range q.Columns {
			if c == types.IDColumn {
				continue
			}
			cols = append(cols, quoteIdent(c))
		}
		b.write(strings.Join(cols, ", "))
	}
	b.write(" FROM " + quoteIdent(q.Table))
	if err := b.where(q.Where); err != nil {
		return statement{}, err
	}
	b.write(" ORDER BY " + quoteIdent(types.IDColumn) + " ASC")
	if q.Limit > 0 {
		b.write(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.statement(), nil
}

func (d dialect) compileCount(q types.Query) (statement, error) {
	if err := checkTable(q.Table); err != nil {
		return statement{}, err
	}
	b := &builder{d: d}
	b.write("SELECT COUNT(*) FROM " + quoteIdent(q.Table))
	if err := b.where(q.Where); err != nil {
		return statement{}, err
	}
	return b.statement(), nil
}

// compileInsert renders an INSERT of row with columns in sorted order.
func (d dialect) compileInsert(table string, row types.Row) (statement, error) {
	if err := checkTable(table); err != nil {
		return statement{}, err
	}
	cols := slices.Sorted(maps.Keys(row))
	if err := checkColumns(cols); err != nil {
		return statement{}, err
	}

	b := &builder{d: d}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	b.write("INSERT INTO " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") + ") VALUES (")
	for i, c := range cols {
		if i > 0 {
			b.write(", ")
		}
		b.bind(row[c])
	}
	b.write(")")
	return b.statement(), nil
}

func (d dialect) compileUpdate(table, id string, changes types.Row) (statement, error) {
	if err := checkTable(table); err != nil {
		return statement{}, err
	}
	cols := slices.Sorted(maps.Keys(changes))
	if err := checkColumns(cols); err != nil {
		return statement{}, err
	}

	b := &builder{d: d}
	b.write("UPDATE " + quoteIdent(table) + " SET ")
	for i, c := range cols {
		if i > 0 {
			b.write(", ")
		}
		b.write(quoteIdent(c) + " = ")
		b.bind(changes[c])
	}
	b.write(" WHERE " + quoteIdent(types.IDColumn) + " = ")
	b.bind(id)
	return b.statement(), nil
}

func (d dialect) compileDelete(table, id string) (statement, error) {
	if err := checkTable(table); err != nil {
		return statement{}, err
	}
	b := &builder{d: d}
	b.write("DELETE FROM " + quoteIdent(table) + " WHERE " + quoteIdent(types.IDColumn) + " = ")
	b.bind(id)
	return b.statement(), nil
}

// compileCreateTable renders CREATE TABLE IF NOT EXISTS with the identity
// key column first.
func (d dialect) compileCreateTable(table string, cols []types.Column) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}
	defs := []string{quoteIdent(types.IDColumn) + " TEXT PRIMARY KEY"}
	for _, c := range cols {
		if err := checkColumns([]string{c.Name}); err != nil {
			return "", err
		}
		sqlType, ok := d.columnTypes[c.Type]
		if !ok {
			return "", fmt.Errorf("%w: column %q has type %q", types.ErrInvalidSchema, c.Name, c.Type)
		}
		def := quoteIdent(c.Name) + " " + sqlType
		if !c.Nullable {
			def += " NOT NULL"
		}
		if c.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	return "CREATE TABLE IF NOT EXISTS " + quoteIdent(table) + " (\n    " +
		strings.Join(defs, ",\n    ") + "\n)", nil
}
