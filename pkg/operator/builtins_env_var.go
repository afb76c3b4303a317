package operator

import "github.com/cyber-boost/helix/pkg/value"

// envOperator implements `@env[NAME]` / `@env(NAME, default?)`. Both call
// shapes reduce to the same positional argument list at parse time (see
// Open Question decision 1): positional[0] is always the variable name.
func envOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	if len(positional) == 0 {
		return value.Null, newEvalError("E_ENV_ARGS", "@env requires a variable name")
	}
	name := positional[0].ToDisplayString()
	if v, ok := ctx.Lookup(name); ok {
		return v, nil
	}
	if len(positional) > 1 {
		return positional[1], nil
	}
	if d, ok := named["default"]; ok {
		return d, nil
	}
	return value.Null, newEvalError("E_ENV_MISSING", "environment variable %q is not set", name)
}

// varOperator implements `@var.get(name)` / `@var.set(name, value)`
// against the runtime context.
func varOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "get", "":
		if len(positional) == 0 {
			return value.Null, newEvalError("E_VAR_ARGS", "@var.get requires a name")
		}
		name := positional[0].ToDisplayString()
		if v, ok := ctx.Lookup(name); ok {
			return v, nil
		}
		return value.Null, newEvalError("E_VAR_MISSING", "variable %q is not set", name)
	case "set":
		if len(positional) < 2 {
			return value.Null, newEvalError("E_VAR_ARGS", "@var.set requires a name and a value")
		}
		name := positional[0].ToDisplayString()
		ctx.Set(name, positional[1])
		return positional[1], nil
	default:
		return value.Null, newEvalError("E_VAR_UNKNOWN_MEMBER", "@var has no member %q", member)
	}
}
