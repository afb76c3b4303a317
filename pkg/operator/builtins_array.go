package operator

import "github.com/cyber-boost/helix/pkg/value"

// arrayOperator implements `@array.filter/map/values`, plus an `at`
// accessor using 0-based indexing that errors on out-of-range access.
// Helix has no closure/function value, so `filter` and `map` take a
// declarative field-name (and, for filter, a value to match) rather than a
// predicate expression: `@array.map(rows, "id")`, `@array.filter(rows,
// "status", "done")`.
func arrayOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "values":
		if len(positional) == 0 {
			return value.Array(nil), nil
		}
		v := positional[0]
		switch v.Kind() {
		case value.KindObject:
			out := make([]value.Value, 0, len(v.ObjectKeys()))
			for _, k := range v.ObjectKeys() {
				val, _ := v.Get(k)
				out = append(out, val)
			}
			return value.Array(out), nil
		case value.KindArray:
			return v, nil
		default:
			return value.Null, newEvalError("E_ARRAY_TYPE", "@array.values requires an Array or Object")
		}
	case "map":
		if len(positional) < 2 || positional[0].Kind() != value.KindArray {
			return value.Null, newEvalError("E_ARRAY_ARGS", "@array.map requires an array and a field name")
		}
		field := positional[1].ToDisplayString()
		src := positional[0].AsArray()
		out := make([]value.Value, 0, len(src))
		for _, el := range src {
			if v, ok := el.Get(field); ok {
				out = append(out, v)
			} else {
				out = append(out, value.Null)
			}
		}
		return value.Array(out), nil
	case "filter":
		if len(positional) < 3 || positional[0].Kind() != value.KindArray {
			return value.Null, newEvalError("E_ARRAY_ARGS", "@array.filter requires an array, a field name, and a value to match")
		}
		field := positional[1].ToDisplayString()
		want := positional[2]
		src := positional[0].AsArray()
		out := make([]value.Value, 0, len(src))
		for _, el := range src {
			if v, ok := el.Get(field); ok && value.Equal(v, want) {
				out = append(out, el)
			}
		}
		return value.Array(out), nil
	case "at", "get":
		if len(positional) < 2 || positional[0].Kind() != value.KindArray || positional[1].Kind() != value.KindNumber {
			return value.Null, newEvalError("E_ARRAY_ARGS", "@array.at requires an array and an integer index")
		}
		idx := int(positional[1].AsNumber())
		arr := positional[0].AsArray()
		if idx < 0 || idx >= len(arr) {
			return value.Null, newEvalError("E_ARRAY_INDEX_RANGE", "index %d out of range for array of length %d", idx, len(arr))
		}
		return arr[idx], nil
	default:
		return value.Null, newEvalError("E_ARRAY_UNKNOWN_MEMBER", "@array has no member %q", member)
	}
}
