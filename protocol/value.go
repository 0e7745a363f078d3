package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value variants.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// String returns the kind name for error messages and logging.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is a tagged union over the wire value types a point can carry.
//
// The zero Value is the null variant. Values are immutable; construct them
// with the typed constructors and read them with the typed accessors.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Null returns the null (absent) value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. ok is false for non-bool values.
func (v Value) AsBool() (b bool, ok bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer payload. ok is false for non-int values.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsString returns the string payload. ok is false for non-string values.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsFloat returns the numeric payload as float64.
// Integer values are converted; ok is false for non-numeric values.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal reports whether two values hold the same variant and payload.
// Int and float values never compare equal, even for the same magnitude.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	default:
		return true
	}
}

// Matches reports whether the value's variant is acceptable for a point
// declared with the given data type. Integer values are acceptable for
// float-typed points (lossless widening); the reverse is not.
func (v Value) Matches(dt DataType) bool {
	switch v.kind {
	case KindBool:
		return dt == DataTypeBool
	case KindInt:
		return dt.IsInteger() || dt.IsFloat()
	case KindFloat:
		return dt.IsFloat()
	case KindString:
		return dt == DataTypeString
	default:
		// Null matches nothing; a null write or read result is an error
		// upstream, not a silent pass.
		return false
	}
}

// MarshalJSON encodes the value as its native JSON scalar (null, true,
// 42, 1.5, "text").
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar into the matching variant.
// Numbers without a fraction or exponent decode as integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}

	switch t := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(t)
	case string:
		*v = String(t)
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			i, err := strconv.ParseInt(s, 10, 64)
			if err == nil {
				*v = Int(i)
				return nil
			}
			// Falls through for integers that overflow int64.
		}
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("decoding numeric value %q: %w", s, err)
		}
		*v = Float(f)
	default:
		return fmt.Errorf("value must be a JSON scalar, got %T", raw)
	}
	return nil
}

// GoString renders the value for logs and error messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	default:
		return "null"
	}
}
