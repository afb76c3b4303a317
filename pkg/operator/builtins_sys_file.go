package operator

import (
	"os"
	"os/exec"

	"github.com/cyber-boost/helix/pkg/value"
)

// sysOperator implements `@sys.exec`, the one blocking, side-effecting
// system-integration operator named in the suspension-points note: it must
// be called from a context that tolerates blocking I/O.
func sysOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "exec", "":
		if len(positional) == 0 {
			return value.Null, newEvalError("E_SYS_ARGS", "@sys.exec requires a command")
		}
		name := positional[0].ToDisplayString()
		args := make([]string, 0, len(positional)-1)
		for _, p := range positional[1:] {
			args = append(args, p.ToDisplayString())
		}
		out, err := exec.Command(name, args...).CombinedOutput()
		if err != nil {
			return value.Null, newEvalError("E_SYS_EXEC", "command %q failed: %v", name, err)
		}
		return value.String(string(out)), nil
	default:
		return value.Null, newEvalError("E_SYS_UNKNOWN_MEMBER", "@sys has no member %q", member)
	}
}

// fileOperator implements file-system access through the members read (also
// the bare `@file(...)` form), write, and exists; any other member is an
// E_FILE_UNKNOWN_MEMBER error. Only a single member level is supported, so
// forms such as `@file.hlx.get(...)` are not handled.
func fileOperator(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error) {
	switch member {
	case "read", "":
		if len(positional) == 0 {
			return value.Null, newEvalError("E_FILE_ARGS", "@file.read requires a path")
		}
		path := positional[0].ToDisplayString()
		data, err := os.ReadFile(path)
		if err != nil {
			return value.Null, newEvalError("E_FILE_IO", "cannot read %q: %v", path, err)
		}
		return value.String(string(data)), nil
	case "write":
		if len(positional) < 2 {
			return value.Null, newEvalError("E_FILE_ARGS", "@file.write requires a path and contents")
		}
		path := positional[0].ToDisplayString()
		contents := positional[1].ToDisplayString()
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return value.Null, newEvalError("E_FILE_IO", "cannot write %q: %v", path, err)
		}
		return value.Bool(true), nil
	case "exists":
		if len(positional) == 0 {
			return value.Null, newEvalError("E_FILE_ARGS", "@file.exists requires a path")
		}
		path := positional[0].ToDisplayString()
		_, err := os.Stat(path)
		return value.Bool(err == nil), nil
	default:
		return value.Null, newEvalError("E_FILE_UNKNOWN_MEMBER", "@file has no member %q", member)
	}
}
