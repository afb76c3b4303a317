// Package value defines the runtime Value sum type produced by expression
// evaluation and stored in a materialized Configuration.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindDuration
	KindArray
	KindObject
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDuration:
		return "duration"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Value is the runtime value sum type: Null, Bool, Number(f64), String,
// Duration(ms:i64), Array, Object, Binary(bytes).
type Value struct {
	kind    Kind
	boolV   bool
	numV    float64
	strV    string
	durMsV  int64
	arrV    []Value
	objV    map[string]Value
	objKeys []string // insertion order for Object, mirrors the AST's ordering invariant
	binV    []byte
}

// Null is the Null value.
var Null = Value{kind: KindNull}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolV: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, numV: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, strV: s} }

// Duration wraps a millisecond count.
func Duration(ms int64) Value { return Value{kind: KindDuration, durMsV: ms} }

// Array wraps a slice of values.
func Array(vs []Value) Value { return Value{kind: KindArray, arrV: vs} }

// Binary wraps a raw byte slice.
func Binary(b []byte) Value { return Value{kind: KindBinary, binV: b} }

// NewObject creates an empty, order-tracking Object value.
func NewObject() Value {
	return Value{kind: KindObject, objV: map[string]Value{}}
}

// Set inserts or updates a key in an Object value, appending to the key
// order on first insertion. Set panics if called on a non-Object value,
// since it is a builder method, not a general mutator.
func (v *Value) Set(key string, val Value) {
	if v.kind != KindObject {
		panic("value.Set called on non-object Value")
	}
	if _, exists := v.objV[key]; !exists {
		v.objKeys = append(v.objKeys, key)
	}
	v.objV[key] = val
}

// Kind returns the value's dynamic kind.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean payload (zero value if not KindBool).
func (v Value) AsBool() bool { return v.boolV }

// AsNumber returns the numeric payload (zero value if not KindNumber).
func (v Value) AsNumber() float64 { return v.numV }

// AsString returns the string payload (zero value if not KindString).
func (v Value) AsString() string { return v.strV }

// AsDurationMs returns the duration payload in milliseconds.
func (v Value) AsDurationMs() int64 { return v.durMsV }

// AsArray returns the array payload.
func (v Value) AsArray() []Value { return v.arrV }

// AsBinary returns the binary payload.
func (v Value) AsBinary() []byte { return v.binV }

// ObjectKeys returns Object field names in insertion order.
func (v Value) ObjectKeys() []string { return v.objKeys }

// Get looks up a field of an Object value.
func (v Value) Get(key string) (Value, bool) {
	val, ok := v.objV[key]
	return val, ok
}

// Len returns the length of Array, Object, String, or Binary values; 0
// otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arrV)
	case KindObject:
		return len(v.objKeys)
	case KindString:
		return len(v.strV)
	case KindBinary:
		return len(v.binV)
	default:
		return 0
	}
}

// ToDisplayString is the canonical to_string conversion used when a
// non-string operand is concatenated with a string via `+`.
func (v Value) ToDisplayString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.boolV {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.numV, 'g', -1, 64)
	case KindString:
		return v.strV
	case KindDuration:
		return formatDurationMs(v.durMsV)
	case KindArray:
		parts := make([]string, len(v.arrV))
		for i, e := range v.arrV {
			parts[i] = e.ToDisplayString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		keys := append([]string(nil), v.objKeys...)
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			val, _ := v.Get(k)
			parts[i] = k + ": " + val.ToDisplayString()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindBinary:
		return fmt.Sprintf("<<%d bytes>>", len(v.binV))
	default:
		return ""
	}
}

func formatDurationMs(ms int64) string {
	switch {
	case ms%(24*60*60*1000) == 0:
		return fmt.Sprintf("%dd", ms/(24*60*60*1000))
	case ms%(60*60*1000) == 0:
		return fmt.Sprintf("%dh", ms/(60*60*1000))
	case ms%(60*1000) == 0:
		return fmt.Sprintf("%dm", ms/(60*1000))
	case ms%1000 == 0:
		return fmt.Sprintf("%ds", ms/1000)
	default:
		return fmt.Sprintf("%dms", ms)
	}
}

// Equal reports deep equality, used by @array.filter to match elements.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolV == b.boolV
	case KindNumber:
		return a.numV == b.numV
	case KindString:
		return a.strV == b.strV
	case KindDuration:
		return a.durMsV == b.durMsV
	case KindArray:
		if len(a.arrV) != len(b.arrV) {
			return false
		}
		for i := range a.arrV {
			if !Equal(a.arrV[i], b.arrV[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.objKeys) != len(b.objKeys) {
			return false
		}
		for _, k := range a.objKeys {
			av, _ := a.Get(k)
			bv, ok := b.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindBinary:
		return string(a.binV) == string(b.binV)
	default:
		return false
	}
}
