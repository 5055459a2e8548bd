package feature

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnknownKey is the category assigned to null and empty values.
const UnknownKey = "Unknown"

type valueKind uint8

const (
	kindNull valueKind = iota
	kindNumber
	kindText
)

// Value is a scalar property: a number, a string, or null.
// The zero Value is null.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number wraps a float. NaN and infinities become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: kindNumber, num: f}
}

// Text wraps a string.
func Text(s string) Value { return Value{kind: kindText, str: s} }

// FromAny normalizes a decoded JSON property.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Text(x.String())
		}
		return Number(f)
	case string:
		return Text(x)
	case bool:
		return Text(strconv.FormatBool(x))
	default:
		return Null()
	}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// Blank reports whether v is null or the empty string.
func (v Value) Blank() bool {
	return v.kind == kindNull || (v.kind == kindText && v.str == "")
}

// Float coerces v to a finite number. Strings are parsed after trimming.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindText:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String renders v the way it is shown and keyed; null renders empty.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.str
	}
	return ""
}

// Key is the categorical key of v.
func (v Value) Key() string {
	if v.Blank() {
		return UnknownKey
	}
	return v.String()
}

// Truthy follows the usual scripting notion: null, "", 0 are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case kindNumber:
		return v.num != 0
	case kindText:
		return v.str != ""
	}
	return false
}

// Any returns the underlying scalar: float64, string or nil.
func (v Value) Any() any {
	switch v.kind {
	case kindNumber:
		return v.num
	case kindText:
		return v.str
	}
	return nil
}

// MarshalJSON emits the underlying scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON accepts any scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
