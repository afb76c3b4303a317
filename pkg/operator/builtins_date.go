package operator

import (
	"time"

	"github.com/cyber-boost/helix/pkg/value"
)

// dateOperator implements `@date.now/add/format`. Instants are represented
// as a Number of epoch milliseconds since value.Value has no dedicated
// timestamp variant; `@date.now` is side-effecting (the current process
// clock) and so is never constant-folded by the IR optimizer.
func dateOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "now", "":
		return value.Number(float64(time.Now().UnixMilli())), nil
	case "add":
		if len(positional) < 2 || positional[0].Kind() != value.KindNumber || positional[1].Kind() != value.KindDuration {
			return value.Null, newEvalError("E_DATE_ARGS", "@date.add requires an instant and a Duration")
		}
		return value.Number(positional[0].AsNumber() + float64(positional[1].AsDurationMs())), nil
	case "format":
		if len(positional) < 2 || positional[0].Kind() != value.KindNumber || positional[1].Kind() != value.KindString {
			return value.Null, newEvalError("E_DATE_ARGS", "@date.format requires an instant and a layout string")
		}
		t := time.UnixMilli(int64(positional[0].AsNumber())).UTC()
		return value.String(t.Format(positional[1].AsString())), nil
	default:
		return value.Null, newEvalError("E_DATE_UNKNOWN_MEMBER", "@date has no member %q", member)
	}
}
