package validation

import (
	"maps"
	"slices"
	"strings"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Base is the key used for messages from rules that span several attributes.
const Base = "base"

// Errors maps attribute names to human-readable messages. An empty set means
// the subject is valid.
type Errors map[string][]string

// Add appends a message for attr.
func (e Errors) Add(attr, msg string) {
	e[attr] = append(e[attr], msg)
}

// On returns the messages recorded for attr.
func (e Errors) On(attr string) []string {
	return e[attr]
}

// Empty reports whether the set holds no messages.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Attributes returns the attribute names with messages, sorted.
func (e Errors) Attributes() []string {
	return slices.Sorted(maps.Keys(e))
}

// FullMessages returns "attr message" strings ordered by attribute name and,
// within an attribute, by rule registration order. Base messages are not
// prefixed.
func (e Errors) FullMessages() []string {
	var out []string
	for _, attr := range e.Attributes() {
		for _, msg := range e[attr] {
			if attr == Base {
				out = append(out, msg)
				continue
			}
			out = append(out, humanize(attr)+" "+msg)
		}
	}
	return out
}

// Clone returns a deep copy of the set.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = slices.Clone(v)
	}
	return out
}

// humanize turns "first_name" into "First name".
func humanize(attr string) string {
	s := strings.ReplaceAll(attr, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FailedError is returned when a subject fails validation. It carries the
// Error Set so callers can re-render the input with per-attribute messages.
type FailedError struct {
	Subject string // Model or form name.
	Errors  Errors
}

func (e *FailedError) Error() string {
	msgs := e.Errors.FullMessages()
	if len(msgs) == 0 {
		return e.Subject + ": " + types.ErrValidationFailed.Error()
	}
	return e.Subject + ": " + types.ErrValidationFailed.Error() + ": " + strings.Join(msgs, ", ")
}

func (e *FailedError) Unwrap() error { return types.ErrValidationFailed }
