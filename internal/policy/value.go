package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var errNonFinite = errors.New("value is not a finite number")

// Value is a typed policy setting holding exactly one of an integer, a
// float or a string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue returns a float Value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Coerce converts raw to a Value of the given kind. Floats must be finite.
func Coerce(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return IntValue(v), nil
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Value{}, errNonFinite
		}
		return FloatValue(v), nil
	default:
		return StringValue(raw), nil
	}
}

func (v Value) Kind() Kind { return v.kind }

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float held by v.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// String formats v the way it would be written in a policy file.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Interface returns the held value as int64, float64 or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

func (v Value) GoString() string {
	return fmt.Sprintf("policy.Value{%s:%s}", v.kind, v.String())
}
