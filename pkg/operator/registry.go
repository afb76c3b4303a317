package operator

import (
	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/value"
)

// Func is the signature every `@`-operator implements: positional
// arguments, named arguments, the member selector (empty for `@name(...)`,
// set for `@name.member(...)`), and the active runtime context.
type Func func(member string, positional []value.Value, named map[string]value.Value, ctx *Context) (value.Value, error)

// Registry maps operator family name ("env", "math", "string", ...) to its
// implementing Func. Unlike a package-level global map, a Registry is
// built per Evaluator instance via New, so a caller can register
// additional or replacement families (e.g. a test double for `@sys`)
// without mutating shared state.
type Registry struct {
	families map[string]Func
}

// NewRegistry builds a Registry pre-populated with every built-in operator
// family named in the operator contract.
func NewRegistry() *Registry {
	r := &Registry{families: make(map[string]Func)}
	r.Register("env", envOperator)
	r.Register("var", varOperator)
	r.Register("date", dateOperator)
	r.Register("math", mathOperator)
	r.Register("string", stringOperator)
	r.Register("array", arrayOperator)
	r.Register("json", jsonOperator)
	r.Register("crypto", cryptoOperator)
	r.Register("memory", memoryOperator)
	r.Register("transform", transformOperator)
	r.Register("sys", sysOperator)
	r.Register("file", fileOperator)
	return r
}

// Register installs or replaces the Func for a family name.
func (r *Registry) Register(family string, fn Func) { r.families[family] = fn }

// Lookup returns the Func registered for family, if any.
func (r *Registry) Lookup(family string) (Func, bool) {
	fn, ok := r.families[family]
	return fn, ok
}

// Has reports whether family is a registered built-in operator family.
// Mirrors the closed allowlist the semantic analyzer uses to decide
// whether an AtOperatorCall's Name needs to resolve as a section
// reference instead.
func (r *Registry) Has(family string) bool {
	_, ok := r.families[family]
	return ok
}

// evalArgs evaluates an AtOperatorCall's positional and named expressions
// against e, returning plain Values ready to hand to a Func.
func evalArgs(e *Evaluator, call *ast.AtOperatorCall) ([]value.Value, map[string]value.Value, error) {
	positional := make([]value.Value, len(call.Positional))
	for i, p := range call.Positional {
		v, err := e.Eval(p)
		if err != nil {
			return nil, nil, err
		}
		positional[i] = v
	}
	named := make(map[string]value.Value, call.Named.Len())
	for _, p := range call.Named.Entries() {
		v, err := e.Eval(p.Value)
		if err != nil {
			return nil, nil, err
		}
		named[p.Key] = v
	}
	return positional, named, nil
}
