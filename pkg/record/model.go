package record

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/mesh-intelligence/recordkit/pkg/schema"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Model is a persisted model class: a table, its attribute schema, the
// validation rules and the lifecycle hooks. A Model is immutable after
// Define and safe for concurrent use.
type Model struct {
	name      string
	table     string
	store     types.Store
	schema    *schema.Schema
	validator *validation.Validator
	virtual   []string
	hooks     map[Event][]Hook
	unique    []uniqueSpec
}

type uniqueSpec struct {
	attr  string
	scope []string
}

// Option configures a Model during Define.
type Option func(*Model)

// Named sets the model name used in errors and logs. Defaults to the table.
func Named(name string) Option {
	return func(m *Model) { m.name = name }
}

// Validates registers rules, in order, after any already registered.
func Validates(rules ...validation.Rule) Option {
	return func(m *Model) { m.validator.Add(rules...) }
}

// ValidatesUniqueness registers a uniqueness rule for attr, optionally
// scoped by other attributes. The rule looks up the model's own table.
func ValidatesUniqueness(attr string, scope ...string) Option {
	return func(m *Model) {
		m.unique = append(m.unique, uniqueSpec{attr: attr, scope: scope})
		m.validator.Add(validation.Uniqueness(attr, m.lookup, scope...))
	}
}

// Virtual declares attributes that records accept and return but never
// persist. Virtual values are cleared after every successful save.
func Virtual(names ...string) Option {
	return func(m *Model) { m.virtual = append(m.virtual, names...) }
}

// On registers a hook for event. Hooks for one event run in registration
// order.
func On(event Event, hook Hook) Option {
	return func(m *Model) { m.hooks[event] = append(m.hooks[event], hook) }
}

// Define creates a model class for table backed by store.
func Define(store types.Store, table string, s *schema.Schema, opts ...Option) (*Model, error) {
	if store == nil {
		return nil, fmt.Errorf("model %s: nil store: %w", table, types.ErrInvalidSchema)
	}
	if s == nil {
		return nil, fmt.Errorf("model %s: nil schema: %w", table, types.ErrInvalidSchema)
	}
	if !tableRe.MatchString(table) {
		return nil, fmt.Errorf("model %q: %w", table, types.ErrInvalidTable)
	}

	m := &Model{
		name:      table,
		table:     table,
		store:     store,
		schema:    s,
		validator: validation.New(),
		hooks:     make(map[Event][]Hook),
	}
	for _, opt := range opts {
		opt(m)
	}

	seen := make(map[string]bool, len(m.virtual))
	for _, v := range m.virtual {
		if v == types.IDColumn || s.Has(v) || seen[v] {
			return nil, fmt.Errorf("model %s: virtual attribute %q collides: %w", m.name, v, types.ErrInvalidSchema)
		}
		seen[v] = true
	}
	for _, u := range m.unique {
		for _, attr := range append([]string{u.attr}, u.scope...) {
			if !s.Has(attr) {
				return nil, fmt.Errorf("model %s: uniqueness of %q: %w", m.name, attr, types.ErrUnknownAttribute)
			}
		}
	}
	return m, nil
}

// MustDefine is like Define but panics on an invalid declaration.
func MustDefine(store types.Store, table string, s *schema.Schema, opts ...Option) *Model {
	m, err := Define(store, table, s, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Table returns the backing table name.
func (m *Model) Table() string { return m.table }

// Schema returns the attribute schema.
func (m *Model) Schema() *schema.Schema { return m.schema }

// Store returns the backing store.
func (m *Model) Store() types.Store { return m.store }

// IsVirtual reports whether name is a virtual attribute.
func (m *Model) IsVirtual(name string) bool {
	return slices.Contains(m.virtual, name)
}

// Columns returns the stored column declarations. Attributes with an
// unscoped uniqueness rule are marked Unique so the store enforces the rule
// against concurrent writers too.
func (m *Model) Columns() []types.Column {
	cols := m.schema.Columns()
	for i := range cols {
		for _, u := range m.unique {
			if u.attr == cols[i].Name && len(u.scope) == 0 {
				cols[i].Unique = true
			}
		}
	}
	return cols
}

// EnsureTable creates the backing table when the store supports it.
func (m *Model) EnsureTable(ctx context.Context) error {
	tc, ok := m.store.(types.TableCreator)
	if !ok {
		return fmt.Errorf("model %s: store %T cannot create tables", m.name, m.store)
	}
	return tc.EnsureTable(ctx, m.table, m.Columns())
}

// New returns a New record built from attrs. Absent attributes take their
// default, or nil. Keys must be schema or virtual attributes.
func (m *Model) New(attrs map[string]any) (*Record, error) {
	persisted := make(map[string]any, len(attrs))
	virtual := make(map[string]any)
	for k, v := range attrs {
		if m.IsVirtual(k) {
			virtual[k] = v
			continue
		}
		persisted[k] = v
	}
	values, err := m.schema.Initial(persisted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	return &Record{
		model:   m,
		state:   New,
		values:  values,
		virtual: virtual,
		errors:  validation.Errors{},
	}, nil
}

// Create builds a record from attrs and saves it. When validation fails the
// New record is returned with its errors attached, together with a
// *validation.FailedError, and nothing is written.
func (m *Model) Create(ctx context.Context, attrs map[string]any) (*Record, error) {
	r, err := m.New(attrs)
	if err != nil {
		return nil, err
	}
	if err := r.Save(ctx); err != nil {
		var failed *validation.FailedError
		if errors.As(err, &failed) {
			return r, err
		}
		return nil, err
	}
	return r, nil
}

// lookup backs uniqueness rules: one single-row query per call.
func (m *Model) lookup(ctx context.Context, filter types.Filter) (string, bool, error) {
	r, err := m.FindBy(ctx, filter)
	if errors.Is(err, types.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return r.id, true, nil
}
