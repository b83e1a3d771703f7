package validation

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Default messages.
const (
	MsgBlank    = "can't be blank"
	MsgInvalid  = "is invalid"
	MsgTaken    = "has already been taken"
	MsgNotANum  = "is not a number"
	msgGreaterE = "must be greater than or equal to %v"
	msgLessE    = "must be less than or equal to %v"
	msgTooShort = "is too short (minimum is %d characters)"
	msgTooLong  = "is too long (maximum is %d characters)"
)

// Rule checks one aspect of a subject. Check returns the failure message, or
// "" when the subject passes. A non-nil error means the rule could not run.
type Rule interface {
	Attribute() string
	Check(ctx context.Context, s Subject) (string, error)
}

// Lookup finds the identity key of the first stored row matching filter.
type Lookup func(ctx context.Context, filter types.Filter) (id string, found bool, err error)

type presence struct{ attr string }

// Presence requires a non-nil value that is not blank text or an empty
// collection.
func Presence(attr string) Rule { return presence{attr: attr} }

func (r presence) Attribute() string { return r.attr }

func (r presence) Check(_ context.Context, s Subject) (string, error) {
	if blank(s.Get(r.attr)) {
		return MsgBlank, nil
	}
	return "", nil
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	if str, ok := v.(string); ok {
		return strings.TrimSpace(str) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

type format struct {
	attr string
	re   *regexp.Regexp
	msg  string
}

// Format requires the string value to match re. Nil values pass; combine
// with Presence to require a value. An empty msg uses MsgInvalid.
func Format(attr string, re *regexp.Regexp, msg string) Rule {
	if msg == "" {
		msg = MsgInvalid
	}
	return format{attr: attr, re: re, msg: msg}
}

func (r format) Attribute() string { return r.attr }

func (r format) Check(_ context.Context, s Subject) (string, error) {
	v := s.Get(r.attr)
	if v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok || !r.re.MatchString(str) {
		return r.msg, nil
	}
	return "", nil
}

type numericRange struct {
	attr     string
	min, max *float64
}

// Range requires a numeric value within [min, max].
func Range(attr string, min, max float64) Rule {
	return numericRange{attr: attr, min: &min, max: &max}
}

// Min requires a numeric value of at least min.
func Min(attr string, min float64) Rule {
	return numericRange{attr: attr, min: &min}
}

// Max requires a numeric value of at most max.
func Max(attr string, max float64) Rule {
	return numericRange{attr: attr, max: &max}
}

func (r numericRange) Attribute() string { return r.attr }

func (r numericRange) Check(_ context.Context, s Subject) (string, error) {
	v := s.Get(r.attr)
	if v == nil {
		return "", nil
	}
	var n float64
	switch x := v.(type) {
	case int64:
		n = float64(x)
	case int:
		n = float64(x)
	case float64:
		n = x
	default:
		return MsgNotANum, nil
	}
	if r.min != nil && n < *r.min {
		return fmt.Sprintf(msgGreaterE, formatBound(*r.min)), nil
	}
	if r.max != nil && n > *r.max {
		return fmt.Sprintf(msgLessE, formatBound(*r.max)), nil
	}
	return "", nil
}

// formatBound prints whole bounds without a fractional part.
func formatBound(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

type length struct {
	attr     string
	min, max int
}

// Length requires a string value of min..max characters. A max of 0 leaves
// the upper bound open.
func Length(attr string, min, max int) Rule {
	return length{attr: attr, min: min, max: max}
}

func (r length) Attribute() string { return r.attr }

func (r length) Check(_ context.Context, s Subject) (string, error) {
	v := s.Get(r.attr)
	if v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return MsgInvalid, nil
	}
	n := utf8.RuneCountInString(str)
	if n < r.min {
		return fmt.Sprintf(msgTooShort, r.min), nil
	}
	if r.max > 0 && n > r.max {
		return fmt.Sprintf(msgTooLong, r.max), nil
	}
	return "", nil
}

type custom struct {
	attr string
	pred func(Subject) bool
	msg  string
}

// Custom fails with msg when pred returns false. Use Base as attr for rules
// that span several attributes.
func Custom(attr string, pred func(Subject) bool, msg string) Rule {
	return custom{attr: attr, pred: pred, msg: msg}
}

func (r custom) Attribute() string { return r.attr }

func (r custom) Check(_ context.Context, s Subject) (string, error) {
	if r.pred(s) {
		return "", nil
	}
	return r.msg, nil
}

type uniqueness struct {
	attr   string
	scope  []string
	lookup Lookup
}

// Uniqueness requires that no other stored row shares the value of attr
// (and of every scope attribute). It performs exactly one lookup per check.
// Nil values pass without a lookup.
func Uniqueness(attr string, lookup Lookup, scope ...string) Rule {
	return uniqueness{attr: attr, scope: scope, lookup: lookup}
}

func (r uniqueness) Attribute() string { return r.attr }

func (r uniqueness) Check(ctx context.Context, s Subject) (string, error) {
	v := s.Get(r.attr)
	if v == nil {
		return "", nil
	}
	filter := types.Filter{r.attr: v}
	for _, attr := range r.scope {
		filter[attr] = s.Get(attr)
	}
	id, found, err := r.lookup(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("uniqueness of %s: %w", r.attr, err)
	}
	if !found {
		return "", nil
	}
	if self, ok := s.(Identified); ok && self.ID() != "" && self.ID() == id {
		return "", nil
	}
	return MsgTaken, nil
}
