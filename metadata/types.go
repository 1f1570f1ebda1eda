package metadata

import (
	"bytes"
	"slices"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an absent or unsupported value.
	KindInvalid Kind = iota
	// KindString represents a string value.
	KindString
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindBool represents a boolean value.
	KindBool
	// KindStrings represents a list of strings.
	KindStrings
	// KindBytes represents an opaque byte blob.
	KindBytes
	// KindMap represents a nested key/value map.
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStrings:
		return "strings"
	case KindBytes:
		return "bytes"
	case KindMap:
		return "map"
	}
	return "invalid"
}

// Value is a small typed value used for record fields and search filters.
// The scalar kinds (String, Int, Float, Bool) are the only kinds the
// flattener emits and the only kinds filters compare; the container kinds
// exist for durable records (tags, snapshots, raw metadata).
//
// NOTE: This is also the persisted representation; keep it stable.
type Value struct {
	Kind Kind
	Str  string
	I64  int64
	F64  float64
	B    bool
	Strs []string
	Blob []byte
	M    map[string]Value
}

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Strings returns a string-list Value.
func Strings(v []string) Value { return Value{Kind: KindStrings, Strs: v} }

// Bytes returns a byte-blob Value.
func Bytes(v []byte) Value { return Value{Kind: KindBytes, Blob: v} }

// Map returns a nested map Value.
func Map(v map[string]Value) Value { return Value{Kind: KindMap, M: v} }

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsInt returns the integer value if Kind is KindInt.
func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat returns the float value if Kind is KindFloat.
func (v Value) AsFloat() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.F64, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsStrings returns the string list if Kind is KindStrings.
func (v Value) AsStrings() ([]string, bool) {
	if v.Kind != KindStrings {
		return nil, false
	}
	return v.Strs, true
}

// AsBytes returns the byte blob if Kind is KindBytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.Kind != KindBytes {
		return nil, false
	}
	return v.Blob, true
}

// AsMap returns the nested map if Kind is KindMap.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.Kind != KindMap {
		return nil, false
	}
	return v.M, true
}

// IsScalar reports whether the value is one of the scalar kinds the
// flattener and search filters operate on.
func (v Value) IsScalar() bool {
	switch v.Kind {
	case KindString, KindInt, KindFloat, KindBool:
		return true
	}
	return false
}

// IsValid reports whether the value carries a supported kind.
func (v Value) IsValid() bool {
	return v.Kind != KindInvalid
}

// Equal reports whether two values have the same kind and contents.
// Container kinds compare deeply. Int and Float never compare equal to
// each other, even when numerically identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.I64 == o.I64
	case KindFloat:
		return v.F64 == o.F64
	case KindBool:
		return v.B == o.B
	case KindStrings:
		return slices.Equal(v.Strs, o.Strs)
	case KindBytes:
		return bytes.Equal(v.Blob, o.Blob)
	case KindMap:
		if len(v.M) != len(o.M) {
			return false
		}
		for k, mv := range v.M {
			ov, ok := o.M[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return v.Kind == KindInvalid && o.Kind == KindInvalid
}

// Any returns the value as a dynamically typed Go value, the inverse of
// FromAny. Integers come back as int64 and floats as float64 regardless of
// the width they were classified from. Invalid values return nil.
func (v Value) Any() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindBool:
		return v.B
	case KindStrings:
		return v.Strs
	case KindBytes:
		return v.Blob
	case KindMap:
		out := make(map[string]any, len(v.M))
		for k, e := range v.M {
			out[k] = e.Any()
		}
		return out
	}
	return nil
}

// FromAny classifies a dynamically typed value, converting JSON-shaped data
// into the closed Value representation. Nested maps convert recursively with
// unsupported entries dropped. Lists convert only when every element is a
// string. Returns false for nil and for shapes outside the supported set.
func FromAny(raw any) (Value, bool) {
	switch v := raw.(type) {
	case nil:
		return Value{}, false
	case string:
		return String(v), true
	case bool:
		return Bool(v), true
	case int:
		return Int(int64(v)), true
	case int8:
		return Int(int64(v)), true
	case int16:
		return Int(int64(v)), true
	case int32:
		return Int(int64(v)), true
	case int64:
		return Int(v), true
	case uint:
		return Int(int64(v)), true
	case uint8:
		return Int(int64(v)), true
	case uint16:
		return Int(int64(v)), true
	case uint32:
		return Int(int64(v)), true
	case float32:
		return Float(float64(v)), true
	case float64:
		return Float(v), true
	case []byte:
		return Bytes(v), true
	case []string:
		return Strings(v), true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return Value{}, false
			}
			out = append(out, s)
		}
		return Strings(out), true
	case map[string]any:
		out := make(map[string]Value, len(v))
		for k, e := range v {
			ev, ok := FromAny(e)
			if !ok {
				continue
			}
			out[k] = ev
		}
		return Map(out), true
	case Value:
		return v, v.IsValid()
	}
	return Value{}, false
}
