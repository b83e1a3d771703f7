// Package form provides transient model classes: typed attributes and
// validation rules with no backing table. A form's action step is
// application logic run through Perform, which applies the same
// validate-then-act convention records use for persistence.
package form

import (
	"context"
	"fmt"
	"maps"

	"github.com/mesh-intelligence/recordkit/pkg/schema"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

// Validity is the on-demand validation state of a form instance.
type Validity int

const (
	Unvalidated Validity = iota
	Valid
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Unvalidated:
		return "unvalidated"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Class is a transient model class. It is immutable after Define and safe
// for concurrent use.
type Class struct {
	name      string
	schema    *schema.Schema
	validator *validation.Validator
}

// Define creates a form class named name.
func Define(name string, s *schema.Schema, rules ...validation.Rule) (*Class, error) {
	if s == nil {
		return nil, fmt.Errorf("form %s: nil schema: %w", name, types.ErrInvalidSchema)
	}
	for _, r := range rules {
		if attr := r.Attribute(); attr != validation.Base && !s.Has(attr) {
			return nil, fmt.Errorf("form %s: rule on %q: %w", name, attr, types.ErrUnknownAttribute)
		}
	}
	return &Class{name: name, schema: s, validator: validation.New(rules...)}, nil
}

// MustDefine is like Define but panics on an invalid declaration.
func MustDefine(name string, s *schema.Schema, rules ...validation.Rule) *Class {
	c, err := Define(name, s, rules...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the form name.
func (c *Class) Name() string { return c.name }

// Schema returns the attribute schema.
func (c *Class) Schema() *schema.Schema { return c.schema }

// New returns an Unvalidated instance built from attrs, typically one form
// submission. Absent attributes take their default, or nil.
func (c *Class) New(attrs map[string]any) (*Instance, error) {
	values, err := c.schema.Initial(attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return &Instance{class: c, values: values, errors: validation.Errors{}}, nil
}

var (
	_ validation.HasAttributes = (*Instance)(nil)
	_ validation.Validatable   = (*Instance)(nil)
)

// Instance is one form submission. It is never persisted and is not safe
// for concurrent use.
type Instance struct {
	class    *Class
	values   map[string]any
	validity Validity
	errors   validation.Errors
}

// Class returns the instance's form class.
func (f *Instance) Class() *Class { return f.class }

// Get returns the value of an attribute, or nil.
func (f *Instance) Get(name string) any { return f.values[name] }

// Text returns the attribute as a string, or "" when it is nil or not
// text.
func (f *Instance) Text(name string) string {
	s, _ := f.values[name].(string)
	return s
}

// Set assigns an attribute and returns the instance to Unvalidated.
func (f *Instance) Set(name string, value any) error {
	v, err := f.class.schema.Assign(name, value)
	if err != nil {
		return fmt.Errorf("%s: %w", f.class.name, err)
	}
	f.values[name] = v
	f.validity = Unvalidated
	f.errors = validation.Errors{}
	return nil
}

// Attributes returns a copy of the attribute values.
func (f *Instance) Attributes() map[string]any { return maps.Clone(f.values) }

// Errors returns the current Error Set.
func (f *Instance) Errors() validation.Errors { return f.errors.Clone() }

// Validity returns the current validity state.
func (f *Instance) Validity() Validity { return f.validity }

// Validate runs the class rules and records the outcome. Attribute values
// are left untouched.
func (f *Instance) Validate(ctx context.Context) (validation.Errors, error) {
	errs, err := f.class.validator.Validate(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.class.name, err)
	}
	f.errors = errs
	if errs.Empty() {
		f.validity = Valid
	} else {
		f.validity = Invalid
	}
	return errs.Clone(), nil
}

// Reject records a failure found by the action step, such as rejected
// credentials, and marks the instance Invalid. Use validation.Base for
// failures that belong to no single attribute.
func (f *Instance) Reject(attr, msg string) {
	f.errors.Add(attr, msg)
	f.validity = Invalid
}

// Perform validates inst and, when it is valid, runs action. An invalid
// instance yields a *validation.FailedError and action does not run.
func Perform[T any](ctx context.Context, inst *Instance, action func(context.Context, *Instance) (T, error)) (T, error) {
	var zero T
	errs, err := inst.Validate(ctx)
	if err != nil {
		return zero, err
	}
	if !errs.Empty() {
		return zero, &validation.FailedError{Subject: inst.class.name, Errors: errs}
	}
	return action(ctx, inst)
}
