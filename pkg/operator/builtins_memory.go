package operator

import "github.com/cyber-boost/helix/pkg/value"

// memoryOperator implements `@memory.store(key,val)/load(key)` against the
// Context's MemoryStore.
func memoryOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "store":
		if len(positional) < 2 {
			return value.Null, newEvalError("E_MEMORY_ARGS", "@memory.store requires a key and a value")
		}
		key := positional[0].ToDisplayString()
		ctx.Memory().Store(key, positional[1])
		return positional[1], nil
	case "load":
		if len(positional) == 0 {
			return value.Null, newEvalError("E_MEMORY_ARGS", "@memory.load requires a key")
		}
		key := positional[0].ToDisplayString()
		if v, ok := ctx.Memory().Load(key); ok {
			return v, nil
		}
		return value.Null, newEvalError("E_MEMORY_MISSING", "no memory entry for key %q", key)
	default:
		return value.Null, newEvalError("E_MEMORY_UNKNOWN_MEMBER", "@memory has no member %q", member)
	}
}
