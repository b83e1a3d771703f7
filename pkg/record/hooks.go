package record

import (
	"context"
	"fmt"
)

// Event names a point in the record lifecycle where hooks run.
type Event int

const (
	BeforeValidation Event = iota
	BeforeSave
	BeforeCreate
	AfterCreate
	BeforeUpdate
	AfterUpdate
	AfterSave
	BeforeDelete
	AfterDelete
)

var eventNames = [...]string{
	BeforeValidation: "before_validation",
	BeforeSave:       "before_save",
	BeforeCreate:     "before_create",
	AfterCreate:      "after_create",
	BeforeUpdate:     "before_update",
	AfterUpdate:      "after_update",
	AfterSave:        "after_save",
	BeforeDelete:     "before_delete",
	AfterDelete:      "after_delete",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// Hook runs at a lifecycle event. Returning an error aborts the operation;
// hooks that run inside the write transaction roll it back.
type Hook func(ctx context.Context, r *Record) error

func (m *Model) run(ctx context.Context, e Event, r *Record) error {
	for _, h := range m.hooks[e] {
		if err := h(ctx, r); err != nil {
			return fmt.Errorf("%s %s hook: %w", m.name, e, err)
		}
	}
	return nil
}
