package smileconf

import (
	"encoding/json"
	"slices"
	"strings"
)

// ValueKind distinguishes scalar property values from array values.
type ValueKind int

const (
	// KindScalar is a single string value.
	KindScalar ValueKind = iota
	// KindArray is an ordered list of strings, written with ";" separators.
	KindArray
)

// String returns "scalar" or "array".
func (k ValueKind) String() string {
	if k == KindArray {
		return "array"
	}
	return "scalar"
}

// arraySeparator splits array elements in a property value.
const arraySeparator = ";"

// Value is a property value: either a scalar string or an ordered array.
//
// The zero value is the empty scalar.
type Value struct {
	kind   ValueKind
	scalar string
	items  []string
}

// Scalar returns a scalar value.
func Scalar(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Array returns an array value holding a copy of items.
func Array(items ...string) Value {
	return Value{kind: KindArray, items: slices.Clone(items)}
}

// ParseValue splits raw on the array separator, trimming whitespace around
// each element. Exactly one element yields a scalar; more yield an array.
func ParseValue(raw string) Value {
	parts := strings.Split(raw, arraySeparator)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	if len(parts) == 1 {
		return Scalar(parts[0])
	}
	return Value{kind: KindArray, items: parts}
}

// Kind reports whether v is a scalar or an array.
func (v Value) Kind() ValueKind { return v.kind }

// IsArray reports whether v is an array value.
func (v Value) IsArray() bool { return v.kind == KindArray }

// Items returns the elements of v. A scalar is treated as a one-element list.
// The returned slice is a copy.
func (v Value) Items() []string {
	if v.kind == KindArray {
		return slices.Clone(v.items)
	}
	return []string{v.scalar}
}

// String returns the scalar text, or the array elements joined with ";".
func (v Value) String() string {
	if v.kind == KindArray {
		return strings.Join(v.items, arraySeparator)
	}
	return v.scalar
}

// Equal reports whether v and o have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindArray {
		return slices.Equal(v.items, o.items)
	}
	return v.scalar == o.scalar
}

// MarshalJSON encodes a scalar as a JSON string and an array as a JSON array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindArray {
		return json.Marshal(v.items)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*v = Array(items...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Scalar(s)
	return nil
}
