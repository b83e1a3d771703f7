package schema

import (
	"fmt"
	"regexp"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Attribute value types.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeDate    Type = "date"
	TypeJSON    Type = "json"
)

// validTypes is the set of recognized attribute types.
var validTypes = map[Type]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeDate:    true,
	TypeJSON:    true,
}

// identRe restricts attribute names to plain SQL identifiers so they can be
// used as column names.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Attribute declares one typed field of a model class.
type Attribute struct {
	Name     string // Unique within the schema; also the column name.
	Type     Type   // One of the Type constants.
	Nullable bool   // Whether nil is an acceptable value.
	Default  any    // Value used when none is supplied; nil means no default.
}

// HasDefault reports whether the attribute declares a default value.
func (a Attribute) HasDefault() bool {
	return a.Default != nil
}

// Schema is an ordered, fixed set of attributes.
type Schema struct {
	attrs []Attribute
	index map[string]int
}

// New builds a Schema from attribute declarations. Declaration order is kept
// and used wherever attributes are enumerated. Defaults are coerced to the
// attribute type at declaration time.
func New(attrs ...Attribute) (*Schema, error) {
	s := &Schema{
		attrs: make([]Attribute, 0, len(attrs)),
		index: make(map[string]int, len(attrs)),
	}
	for _, a := range attrs {
		if !identRe.MatchString(a.Name) {
			return nil, fmt.Errorf("attribute name %q: %w", a.Name, types.ErrInvalidSchema)
		}
		if a.Name == types.IDColumn {
			return nil, fmt.Errorf("attribute name %q is reserved for the identity key: %w", a.Name, types.ErrInvalidSchema)
		}
		if !validTypes[a.Type] {
			return nil, fmt.Errorf("attribute %q has unknown type %q: %w", a.Name, a.Type, types.ErrInvalidSchema)
		}
		if _, dup := s.index[a.Name]; dup {
			return nil, fmt.Errorf("duplicate attribute %q: %w", a.Name, types.ErrInvalidSchema)
		}
		if a.HasDefault() {
			def, err := a.Coerce(a.Default)
			if err != nil {
				return nil, fmt.Errorf("default for attribute %q: %w", a.Name, err)
			}
			a.Default = def
		}
		s.index[a.Name] = len(s.attrs)
		s.attrs = append(s.attrs, a)
	}
	return s, nil
}

// MustNew is like New but panics on an invalid declaration. Intended for
// package-level model definitions.
func MustNew(attrs ...Attribute) *Schema {
	s, err := New(attrs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Attributes returns a copy of the declared attributes in declaration order.
func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Names returns the attribute names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		names[i] = a.Name
	}
	return names
}

// Lookup returns the attribute with the given name.
func (s *Schema) Lookup(name string) (Attribute, bool) {
	i, ok := s.index[name]
	if !ok {
		return Attribute{}, false
	}
	return s.attrs[i], true
}

// Has reports whether name is a declared attribute.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Coerce converts raw into the declared type of the named attribute.
// Returns ErrUnknownAttribute if the schema has no such attribute.
func (s *Schema) Coerce(name string, raw any) (any, error) {
	a, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, types.ErrUnknownAttribute)
	}
	return a.Coerce(raw)
}

// Build produces a complete value map for the schema from caller input.
// Every attribute is present in the result: supplied values are coerced,
// missing ones take their default, or nil when nullable. A missing
// non-nullable attribute without a default is ErrRequiredAttributeMissing.
// Keys that are not attributes are rejected with ErrUnknownAttribute.
func (s *Schema) Build(input map[string]any) (map[string]any, error) {
	for k := range input {
		if !s.Has(k) {
			return nil, fmt.Errorf("%q: %w", k, types.ErrUnknownAttribute)
		}
	}
	values := make(map[string]any, len(s.attrs))
	for _, a := range s.attrs {
		v, err := a.Coerce(input[a.Name])
		if err != nil {
			return nil, err
		}
		values[a.Name] = v
	}
	return values, nil
}

// Assign coerces a caller-supplied value for the named attribute. Unlike
// Coerce, a nil value stays nil so presence rules can report it; a missing
// required value only becomes an error when the instance is written.
func (s *Schema) Assign(name string, raw any) (any, error) {
	a, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, types.ErrUnknownAttribute)
	}
	if raw == nil {
		return nil, nil
	}
	return a.Coerce(raw)
}

// Initial builds the starting values of a new instance. Supplied values go
// through Assign; attributes absent from input take their default or nil.
// Keys that are not attributes are rejected with ErrUnknownAttribute.
func (s *Schema) Initial(input map[string]any) (map[string]any, error) {
	for k := range input {
		if !s.Has(k) {
			return nil, fmt.Errorf("%q: %w", k, types.ErrUnknownAttribute)
		}
	}
	values := make(map[string]any, len(s.attrs))
	for _, a := range s.attrs {
		raw, supplied := input[a.Name]
		if !supplied {
			if a.HasDefault() {
				v, err := a.Coerce(nil)
				if err != nil {
					return nil, err
				}
				values[a.Name] = v
			} else {
				values[a.Name] = nil
			}
			continue
		}
		v, err := s.Assign(a.Name, raw)
		if err != nil {
			return nil, err
		}
		values[a.Name] = v
	}
	return values, nil
}

// Columns returns the stored column declarations for the schema.
func (s *Schema) Columns() []types.Column {
	cols := make([]types.Column, len(s.attrs))
	for i, a := range s.attrs {
		cols[i] = types.Column{Name: a.Name, Type: string(a.Type), Nullable: a.Nullable}
	}
	return cols
}
