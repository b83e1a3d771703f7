package validation

import "context"

// HasAttributes is the attribute surface shared by persisted records and
// form instances.
type HasAttributes interface {
	Get(name string) any
	Set(name string, value any) error
	Attributes() map[string]any
}

// Validatable is implemented by anything that can run its rules and expose
// the resulting Error Set.
type Validatable interface {
	Validate(ctx context.Context) (Errors, error)
	Errors() Errors
}

// Identified is implemented by subjects with an identity key. Uniqueness uses
// it to ignore the subject's own row.
type Identified interface {
	ID() string
}

// Subject is what rules inspect.
type Subject interface {
	Get(name string) any
}
