package operator

import (
	"encoding/json"
	"sort"

	"github.com/cyber-boost/helix/pkg/value"
)

// jsonOperator implements `@json.parse/stringify`.
func jsonOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "parse", "":
		if len(positional) == 0 || positional[0].Kind() != value.KindString {
			return value.Null, newEvalError("E_JSON_ARGS", "@json.parse requires a string argument")
		}
		var raw interface{}
		if err := json.Unmarshal([]byte(positional[0].AsString()), &raw); err != nil {
			return value.Null, newEvalError("E_JSON_PARSE", "invalid JSON: %v", err)
		}
		return fromJSON(raw), nil
	case "stringify":
		if len(positional) == 0 {
			return value.Null, newEvalError("E_JSON_ARGS", "@json.stringify requires a value argument")
		}
		out, err := json.Marshal(toJSON(positional[0]))
		if err != nil {
			return value.Null, newEvalError("E_JSON_STRINGIFY", "cannot stringify value: %v", err)
		}
		return value.String(string(out)), nil
	default:
		return value.Null, newEvalError("E_JSON_UNKNOWN_MEMBER", "@json has no member %q", member)
	}
}

func fromJSON(raw interface{}) value.Value {
	switch t := raw.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(t)
	case float64:
		return value.Number(t)
	case string:
		return value.String(t)
	case []interface{}:
		out := make([]value.Value, len(t))
		for i, el := range t {
			out[i] = fromJSON(el)
		}
		return value.Array(out)
	case map[string]interface{}:
		obj := value.NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Set(k, fromJSON(t[k]))
		}
		return obj
	default:
		return value.Null
	}
}

func toJSON(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		return v.AsBool()
	case value.KindNumber:
		return v.AsNumber()
	case value.KindString:
		return v.AsString()
	case value.KindDuration:
		return v.AsDurationMs()
	case value.KindArray:
		out := make([]interface{}, v.Len())
		for i, el := range v.AsArray() {
			out[i] = toJSON(el)
		}
		return out
	case value.KindObject:
		out := make(map[string]interface{}, v.Len())
		for _, k := range v.ObjectKeys() {
			val, _ := v.Get(k)
			out[k] = toJSON(val)
		}
		return out
	case value.KindBinary:
		return v.AsBinary()
	default:
		return nil
	}
}
