package record

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/mesh-intelligence/recordkit/internal/ctxlog"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

// State is the lifecycle state of a record.
type State int

const (
	// New records have never been stored and have no identity key.
	New State = iota
	// Persisted records match a stored row.
	Persisted
	// Dirty records are persisted but carry unsaved changes.
	Dirty
	// Deleted records no longer have a stored row. Their last known values
	// stay readable.
	Deleted
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Persisted:
		return "persisted"
	case Dirty:
		return "dirty"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

var (
	_ validation.HasAttributes = (*Record)(nil)
	_ validation.Validatable   = (*Record)(nil)
	_ validation.Identified    = (*Record)(nil)
)

// Record is one instance of a Model. A Record belongs to the request that
// obtained it and is not safe for concurrent use.
type Record struct {
	model     *Model
	id        string
	state     State
	values    map[string]any
	persisted map[string]any
	virtual   map[string]any
	errors    validation.Errors
}

// Model returns the record's model class.
func (r *Record) Model() *Model { return r.model }

// ID returns the identity key, or "" for a New record.
func (r *Record) ID() string { return r.id }

// State returns the lifecycle state.
func (r *Record) State() State { return r.state }

// Get returns the value of a schema or virtual attribute, or nil.
func (r *Record) Get(name string) any {
	if r.model.IsVirtual(name) {
		return r.virtual[name]
	}
	return r.values[name]
}

// Set assigns an attribute. Schema attributes are coerced to their declared
// type. Changing a value of a Persisted record makes it Dirty.
func (r *Record) Set(name string, value any) error {
	if r.state == Deleted {
		return invalidState("set attribute on", r)
	}
	if r.model.IsVirtual(name) {
		r.virtual[name] = value
		if r.state == Persisted {
			r.state = Dirty
		}
		return nil
	}
	v, err := r.model.schema.Assign(name, value)
	if err != nil {
		return fmt.Errorf("%s: %w", r.model.name, err)
	}
	r.values[name] = v
	if r.state == Persisted && !sameValue(v, r.persisted[name]) {
		r.state = Dirty
	}
	return nil
}

// Attributes returns a copy of the schema attribute values.
func (r *Record) Attributes() map[string]any {
	return maps.Clone(r.values)
}

// Changed returns the schema attributes whose values differ from the stored
// row, in declaration order. For a New record these are the attributes
// holding a value.
func (r *Record) Changed() []string {
	var names []string
	for _, name := range r.model.schema.Names() {
		if !sameValue(r.values[name], r.persisted[name]) {
			names = append(names, name)
		}
	}
	return names
}

// Errors returns the Error Set from the last validation.
func (r *Record) Errors() validation.Errors {
	return r.errors.Clone()
}

// Validate runs the model's rules, attaches the resulting Error Set to the
// record and returns it. Attribute values are left untouched.
func (r *Record) Validate(ctx context.Context) (validation.Errors, error) {
	errs, err := r.model.validator.Validate(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.model.name, err)
	}
	r.errors = errs
	return errs.Clone(), nil
}

// Save validates the record and writes it: an insert for a New record, an
// update restricted to changed attributes otherwise. On validation failure
// it returns a *validation.FailedError and writes nothing.
func (r *Record) Save(ctx context.Context) error {
	if r.state == Deleted {
		return invalidState("save", r)
	}
	m := r.model
	if err := m.run(ctx, BeforeValidation, r); err != nil {
		return err
	}
	if _, err := r.Validate(ctx); err != nil {
		return err
	}
	if !r.errors.Empty() {
		ctxlog.FromContext(ctx).Debug("record invalid",
			"model", m.name, "id", r.id, "attributes", r.errors.Attributes())
		return &validation.FailedError{Subject: m.name, Errors: r.errors.Clone()}
	}
	if r.state == New {
		return r.insert(ctx)
	}
	return r.update(ctx)
}

// Update merges attrs into the record, marks it Dirty and saves it. When
// validation fails the record stays Dirty with its errors attached.
func (r *Record) Update(ctx context.Context, attrs map[string]any) error {
	if r.state == New || r.state == Deleted {
		return invalidState("update", r)
	}
	m := r.model
	staged := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if m.IsVirtual(k) {
			staged[k] = v
			continue
		}
		cv, err := m.schema.Assign(k, v)
		if err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
		staged[k] = cv
	}
	for k, v := range staged {
		if m.IsVirtual(k) {
			r.virtual[k] = v
		} else {
			r.values[k] = v
		}
	}
	r.state = Dirty
	return r.Save(ctx)
}

// Delete removes the stored row and marks the record Deleted. Deleting a New
// or Deleted record fails with types.ErrInvalidState and issues no
// statement.
func (r *Record) Delete(ctx context.Context) error {
	if r.state == New || r.state == Deleted {
		return invalidState("delete", r)
	}
	m := r.model
	prev := r.state
	err := m.store.Transact(ctx, func(ctx context.Context) error {
		if err := m.run(ctx, BeforeDelete, r); err != nil {
			return err
		}
		if err := m.store.Delete(ctx, m.table, r.id); err != nil {
			return err
		}
		r.state = Deleted
		return m.run(ctx, AfterDelete, r)
	})
	if err != nil {
		r.state = prev
		return err
	}
	ctxlog.FromContext(ctx).Debug("record deleted", "model", m.name, "table", m.table, "id", r.id)
	return nil
}

// Reload replaces the record's values with the stored row and discards
// unsaved changes, virtual values and errors.
func (r *Record) Reload(ctx context.Context) error {
	if r.state == New || r.state == Deleted {
		return invalidState("reload", r)
	}
	fresh, err := r.model.Find(ctx, r.id)
	if err != nil {
		return err
	}
	r.values = fresh.values
	r.persisted = fresh.persisted
	r.virtual = make(map[string]any)
	r.errors = validation.Errors{}
	r.state = Persisted
	return nil
}

// MarshalJSON renders the identity key and schema attributes. Virtual
// attributes are never included.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.values)+1)
	maps.Copy(out, r.values)
	if r.id != "" {
		out[types.IDColumn] = r.id
	} else {
		out[types.IDColumn] = nil
	}
	return json.Marshal(out)
}

func (r *Record) insert(ctx context.Context) error {
	m := r.model
	err := m.store.Transact(ctx, func(ctx context.Context) error {
		if err := m.run(ctx, BeforeSave, r); err != nil {
			return err
		}
		if err := m.run(ctx, BeforeCreate, r); err != nil {
			return err
		}
		row, err := r.encode(m.schema.Names())
		if err != nil {
			return err
		}
		id, err := m.store.Insert(ctx, m.table, row)
		if err != nil {
			return err
		}
		r.id, r.state = id, Persisted
		if err := m.run(ctx, AfterCreate, r); err != nil {
			return err
		}
		return m.run(ctx, AfterSave, r)
	})
	if err != nil {
		r.id, r.state = "", New
		return err
	}
	r.stored()
	ctxlog.FromContext(ctx).Debug("record created", "model", m.name, "table", m.table, "id", r.id)
	return nil
}

func (r *Record) update(ctx context.Context) error {
	m := r.model
	var changed []string
	err := m.store.Transact(ctx, func(ctx context.Context) error {
		if err := m.run(ctx, BeforeSave, r); err != nil {
			return err
		}
		if err := m.run(ctx, BeforeUpdate, r); err != nil {
			return err
		}
		changed = r.Changed()
		if len(changed) > 0 {
			row, err := r.encode(changed)
			if err != nil {
				return err
			}
			if err := m.store.Update(ctx, m.table, r.id, row); err != nil {
				return err
			}
		}
		if err := m.run(ctx, AfterUpdate, r); err != nil {
			return err
		}
		return m.run(ctx, AfterSave, r)
	})
	if err != nil {
		return err
	}
	r.stored()
	ctxlog.FromContext(ctx).Debug("record updated",
		"model", m.name, "table", m.table, "id", r.id, "attributes", changed)
	return nil
}

// stored records a successful write: the current values become the stored
// snapshot and virtual values are dropped.
func (r *Record) stored() {
	r.persisted = cloneValues(r.values)
	r.virtual = make(map[string]any)
	r.state = Persisted
}

// encode converts the named attributes to store scalars. A nil value of a
// non-nullable attribute takes the default, or fails with
// types.ErrRequiredAttributeMissing.
func (r *Record) encode(names []string) (types.Row, error) {
	row := make(types.Row, len(names))
	for _, name := range names {
		a, _ := r.model.schema.Lookup(name)
		v := r.values[name]
		if v == nil && !a.Nullable {
			filled, err := a.Coerce(nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.model.name, err)
			}
			v = filled
			r.values[name] = v
		}
		enc, err := a.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.model.name, err)
		}
		row[name] = enc
	}
	return row, nil
}

func cloneValues(values map[string]any) map[string]any {
	return maps.Clone(values)
}

func sameValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
