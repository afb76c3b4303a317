package operator

import (
	"strings"

	"github.com/cyber-boost/helix/pkg/value"
)

// stringOperator implements `@string.uppercase/lowercase/concat/trim`.
func stringOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "uppercase":
		return value.String(strings.ToUpper(argString(positional, 0))), nil
	case "lowercase":
		return value.String(strings.ToLower(argString(positional, 0))), nil
	case "trim":
		return value.String(strings.TrimSpace(argString(positional, 0))), nil
	case "concat":
		var sb strings.Builder
		for _, p := range positional {
			sb.WriteString(p.ToDisplayString())
		}
		return value.String(sb.String()), nil
	default:
		return value.Null, newEvalError("E_STRING_UNKNOWN_MEMBER", "@string has no member %q", member)
	}
}

func argString(positional []value.Value, i int) string {
	if i >= len(positional) {
		return ""
	}
	return positional[i].ToDisplayString()
}
