package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tells which member of the Value union is set.
type ValueKind uint8

// Value kinds.
const (
	ValueNone ValueKind = iota
	ValueString
	ValueNumber
)

// Value is the payload of a setField operation: a string or an integer.
// It encodes as a plain JSON string or number.
type Value struct {
	kind ValueKind
	str  string
	num  int64
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: ValueString, str: s}
}

// NumberValue returns a numeric Value.
func NumberValue(n int64) Value {
	return Value{kind: ValueNumber, num: n}
}

// Kind returns which member is set.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether no value is set.
func (v Value) IsZero() bool { return v.kind == ValueNone }

// String returns the text form of the value. Numbers are formatted in base 10.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatInt(v.num, 10)
	}
	return ""
}

// Int returns the value as an integer. Strings are parsed; ok is false
// when the value is unset or not a number.
func (v Value) Int() (n int64, ok bool) {
	switch v.kind {
	case ValueNumber:
		return v.num, true
	case ValueString:
		n, err := strconv.ParseInt(v.str, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return strconv.AppendInt(nil, v.num, 10), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler. Fractional numbers are
// truncated toward zero.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}

	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*v = NumberValue(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("value must be a string or a number, got %s", data)
	}
	*v = NumberValue(int64(f))
	return nil
}
