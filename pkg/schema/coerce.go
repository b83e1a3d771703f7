package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// CoercionError reports a value that could not be converted to an
// attribute's type, or a missing value for a required attribute.
type CoercionError struct {
	Attribute string
	Type      Type
	Got       string // Go type of the offending value; never the value itself.
	Err       error  // ErrTypeMismatch or ErrRequiredAttributeMissing.
}

func (e *CoercionError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("attribute %q (%s): %v", e.Attribute, e.Type, e.Err)
	}
	return fmt.Sprintf("attribute %q: cannot coerce %s to %s: %v", e.Attribute, e.Got, e.Type, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Coerce converts raw into the attribute's declared type. The same function
// serves caller input and stored row values.
//
// A nil raw value yields the default when one is declared, nil when the
// attribute is nullable, and ErrRequiredAttributeMissing otherwise.
//
// Result types: string, int64, float64, bool, time.Time (UTC) and, for json
// attributes, the value produced by encoding/json decoding into any.
func (a Attribute) Coerce(raw any) (any, error) {
	if raw == nil {
		switch {
		case a.HasDefault():
			if a.Type == TypeJSON {
				return coerceJSON(a.Default)
			}
			return a.Default, nil
		case a.Nullable:
			return nil, nil
		default:
			return nil, &CoercionError{Attribute: a.Name, Type: a.Type, Err: types.ErrRequiredAttributeMissing}
		}
	}

	var (
		v   any
		err error
	)
	switch a.Type {
	case TypeString:
		v, err = coerceString(raw)
	case TypeInteger:
		v, err = coerceInteger(raw)
	case TypeNumber:
		v, err = coerceNumber(raw)
	case TypeBoolean:
		v, err = cast.ToBoolE(raw)
	case TypeDate:
		v, err = coerceDate(raw)
	case TypeJSON:
		v, err = coerceJSON(raw)
	default:
		err = types.ErrInvalidSchema
	}
	if err != nil {
		return nil, &CoercionError{
			Attribute: a.Name,
			Type:      a.Type,
			Got:       fmt.Sprintf("%T", raw),
			Err:       types.ErrTypeMismatch,
		}
	}
	return v, nil
}

// Decode converts a stored column value. Unlike Coerce it never fills in a
// default: a NULL in a non-nullable column fails with
// ErrRequiredAttributeMissing.
func (a Attribute) Decode(stored any) (any, error) {
	if stored == nil {
		if a.Nullable {
			return nil, nil
		}
		return nil, &CoercionError{Attribute: a.Name, Type: a.Type, Err: types.ErrRequiredAttributeMissing}
	}
	return a.Coerce(stored)
}

// Encode converts a coerced value into the scalar written to the store.
// Dates become RFC 3339 strings in UTC and json values become JSON text;
// other types are stored as they are.
func (a Attribute) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch a.Type {
	case TypeDate:
		t, ok := v.(time.Time)
		if !ok {
			return nil, &CoercionError{Attribute: a.Name, Type: a.Type, Got: fmt.Sprintf("%T", v), Err: types.ErrTypeMismatch}
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	case TypeJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &CoercionError{Attribute: a.Name, Type: a.Type, Got: fmt.Sprintf("%T", v), Err: types.ErrTypeMismatch}
		}
		return string(data), nil
	default:
		return v, nil
	}
}

func coerceString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return "", types.ErrTypeMismatch
	default:
		return cast.ToStringE(raw)
	}
}

// Float64 bounds of int64: -2^63 is representable, 2^63 is not.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

func coerceInteger(raw any) (int64, error) {
	switch v := raw.(type) {
	case bool:
		return 0, types.ErrTypeMismatch
	case float64:
		if v != math.Trunc(v) || v < minInt64Float || v >= maxInt64Float {
			return 0, types.ErrTypeMismatch
		}
		return int64(v), nil
	case float32:
		return coerceInteger(float64(v))
	case uint:
		return coerceUnsigned(uint64(v))
	case uint64:
		return coerceUnsigned(v)
	case uintptr:
		return coerceUnsigned(uint64(v))
	case string:
		return cast.ToInt64E(strings.TrimSpace(v))
	case []byte:
		return cast.ToInt64E(strings.TrimSpace(string(v)))
	default:
		return cast.ToInt64E(raw)
	}
}

func coerceUnsigned(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, types.ErrTypeMismatch
	}
	return int64(v), nil
}

func coerceNumber(raw any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case bool:
		return 0, types.ErrTypeMismatch
	case string:
		f, err = cast.ToFloat64E(strings.TrimSpace(v))
	case []byte:
		f, err = cast.ToFloat64E(strings.TrimSpace(string(v)))
	default:
		f, err = cast.ToFloat64E(raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, types.ErrTypeMismatch
	}
	return f, nil
}

func coerceDate(raw any) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	switch v := raw.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return time.Time{}, types.ErrTypeMismatch
		}
		t = *v
	case []byte:
		t, err = cast.ToTimeE(string(v))
	default:
		t, err = cast.ToTimeE(raw)
	}
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// coerceJSON accepts encoded JSON text or any marshalable value and returns
// the canonical decoded form, so values read back from the store compare
// equal to the values written.
func coerceJSON(raw any) (any, error) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
