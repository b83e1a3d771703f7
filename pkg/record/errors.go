package record

import (
	"fmt"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// CorruptRowError reports a stored row that could not be decoded through the
// model's schema. It matches types.ErrCorruptRow and the underlying cause.
type CorruptRowError struct {
	Table string
	ID    string
	Err   error
}

func (e *CorruptRowError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Table, e.ID, types.ErrCorruptRow, e.Err)
}

func (e *CorruptRowError) Unwrap() []error { return []error{types.ErrCorruptRow, e.Err} }

func invalidState(op string, r *Record) error {
	return fmt.Errorf("%s %s record: %w", op, r.state, types.ErrInvalidState)
}
