// Package operator implements the stateful expression evaluator: the
// runtime context, the `@`-operator registry, and the built-in operator
// families themselves.
package operator

import (
	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/config"
	"github.com/cyber-boost/helix/pkg/value"
)

// Evaluator satisfies config.Evaluator and is the single entry point for
// turning an ast.Expression into a value.Value against a runtime Context.
// It optionally carries a Configuration so `@section` and `@section.prop`
// references resolve against previously materialized sections.
type Evaluator struct {
	ctx      *Context
	registry *Registry
	cfg      *config.Configuration
}

// New builds an Evaluator. registry may be nil, in which case
// NewRegistry() supplies the default built-in families. cfg may be nil;
// section references then fail with E_SECTION_UNRESOLVED rather than
// resolving.
func New(ctx *Context, registry *Registry, cfg *config.Configuration) *Evaluator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Evaluator{ctx: ctx, registry: registry, cfg: cfg}
}

// BindConfiguration attaches a Configuration after construction, for the
// common two-pass build: materialize raw config with eval=nil, build the
// Evaluator, attach that same Configuration, then re-materialize with
// eval set so @section references now resolve.
func (e *Evaluator) BindConfiguration(cfg *config.Configuration) { e.cfg = cfg }

// Context returns the evaluator's runtime context.
func (e *Evaluator) Context() *Context { return e.ctx }

// Eval walks expr and returns its evaluated Value. It is the
// config.Evaluator implementation used by config.FromAST, and may also be
// called directly by operator Funcs to evaluate call arguments.
func (e *Evaluator) Eval(expr ast.Expression) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.StringLit:
		return value.String(n.Value), nil
	case *ast.NumberLit:
		return value.Number(n.Value), nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.NullLit:
		return value.Null, nil
	case *ast.DurationLit:
		return value.Duration(n.Milliseconds()), nil
	case *ast.IdentifierExpr:
		return value.String(n.Name), nil
	case *ast.ArrayLit:
		out := make([]value.Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := e.Eval(el)
			if err != nil {
				return value.Null, err
			}
			out[i] = v
		}
		return value.Array(out), nil
	case *ast.ObjectLit:
		obj := value.NewObject()
		for _, p := range n.Fields.Entries() {
			v, err := e.Eval(p.Value)
			if err != nil {
				return value.Null, err
			}
			obj.Set(p.Key, v)
		}
		return obj, nil
	case *ast.VariableExpr:
		if v, ok := e.ctx.Lookup(n.Name); ok {
			return v, nil
		}
		return value.Null, newEvalErrorAt(n.Position, "E_VAR_MISSING", "variable %q is not set in context or environment", n.Name)
	case *ast.MarkerExpr:
		if v, ok := e.ctx.Lookup(n.Name); ok {
			return v, nil
		}
		return value.Null, newEvalErrorAt(n.Position, "E_MARKER_MISSING", "marker %q is not set in context or environment", n.Name)
	case *ast.AtOperatorCall:
		return e.evalAtOperatorCall(n)
	case *ast.BinaryExpr:
		return e.evalBinary(n)
	case *ast.UnaryExpr:
		return e.evalUnary(n)
	case *ast.PipelineExpr:
		out := make([]value.Value, len(n.Stages))
		for i, s := range n.Stages {
			out[i] = value.String(s)
		}
		return value.Array(out), nil
	default:
		return value.Null, newEvalErrorAt(expr.Pos(), "E_UNSUPPORTED_EXPRESSION", "cannot evaluate expression %T", expr)
	}
}

func (e *Evaluator) evalAtOperatorCall(call *ast.AtOperatorCall) (value.Value, error) {
	if fn, ok := e.registry.Lookup(call.Name); ok {
		key := call.String()
		if v, ok := e.ctx.cacheGet(key); ok {
			return v, nil
		}
		positional, named, err := evalArgs(e, call)
		if err != nil {
			return value.Null, err
		}
		v, err := fn(call.Member, positional, named, e.ctx)
		if err != nil {
			if ee, ok := err.(*EvalError); ok && ee.Position.Line == 0 {
				ee.Position = call.Position
			}
			return value.Null, err
		}
		e.ctx.cachePut(key, v)
		return v, nil
	}
	return e.resolveSectionReference(call)
}

// resolveSectionReference handles an AtOperatorCall whose Name is not a
// registered built-in operator family: per the semantic analyzer's
// reference resolution pass, it must name a declared section.
func (e *Evaluator) resolveSectionReference(call *ast.AtOperatorCall) (value.Value, error) {
	if e.cfg == nil {
		return value.Null, newEvalErrorAt(call.Position, "E_SECTION_UNRESOLVED", "no configuration bound to resolve @%s", call.Name)
	}
	for _, byName := range e.cfg.BySection {
		sc, ok := byName[call.Name]
		if !ok {
			continue
		}
		if call.Member == "" {
			return sectionToValue(sc), nil
		}
		if v, ok := sc.Get(call.Member); ok {
			return v, nil
		}
		return value.Null, newEvalErrorAt(call.Position, "E_SECTION_PROP_MISSING", "section %q has no property %q", call.Name, call.Member)
	}
	return value.Null, newEvalErrorAt(call.Position, "E_SECTION_UNKNOWN", "no section named %q", call.Name)
}

func sectionToValue(sc *config.SectionConfig) value.Value {
	obj := value.NewObject()
	for _, k := range sc.PropertyOrder {
		obj.Set(k, sc.Properties[k])
	}
	return obj
}

func (e *Evaluator) evalBinary(n *ast.BinaryExpr) (value.Value, error) {
	left, err := e.Eval(n.Left)
	if err != nil {
		return value.Null, err
	}
	right, err := e.Eval(n.Right)
	if err != nil {
		return value.Null, err
	}

	if left.Kind() == value.KindString || right.Kind() == value.KindString {
		if n.Operator != ast.OpAdd && n.Operator != ast.OpConcat {
			return value.Null, newEvalErrorAt(n.Position, "E_TYPE_MISMATCH", "operator %s is not defined over String", n.Operator)
		}
		return value.String(left.ToDisplayString() + right.ToDisplayString()), nil
	}

	if left.Kind() == value.KindDuration || right.Kind() == value.KindDuration {
		if left.Kind() != right.Kind() {
			return value.Null, newEvalErrorAt(n.Position, "E_DURATION_UNIT_REQUIRED", "mixing Duration and Number requires an explicit unit operator")
		}
		switch n.Operator {
		case ast.OpAdd:
			return value.Duration(left.AsDurationMs() + right.AsDurationMs()), nil
		case ast.OpSub:
			return value.Duration(left.AsDurationMs() - right.AsDurationMs()), nil
		default:
			return value.Null, newEvalErrorAt(n.Position, "E_TYPE_MISMATCH", "operator %s is not defined over Duration", n.Operator)
		}
	}

	if left.Kind() != value.KindNumber || right.Kind() != value.KindNumber {
		return value.Null, newEvalErrorAt(n.Position, "E_TYPE_MISMATCH", "operator %s requires numeric operands", n.Operator)
	}
	switch n.Operator {
	case ast.OpAdd:
		return value.Number(left.AsNumber() + right.AsNumber()), nil
	case ast.OpSub:
		return value.Number(left.AsNumber() - right.AsNumber()), nil
	case ast.OpMul:
		return value.Number(left.AsNumber() * right.AsNumber()), nil
	case ast.OpDiv:
		if right.AsNumber() == 0 {
			return value.Null, newEvalErrorAt(n.Position, "E_DIV_BY_ZERO", "division by zero")
		}
		return value.Number(left.AsNumber() / right.AsNumber()), nil
	default:
		return value.Null, newEvalErrorAt(n.Position, "E_UNSUPPORTED_OPERATOR", "unsupported binary operator %s", n.Operator)
	}
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr) (value.Value, error) {
	v, err := e.Eval(n.Operand)
	if err != nil {
		return value.Null, err
	}
	switch n.Operator {
	case ast.OpNegate:
		switch v.Kind() {
		case value.KindNumber:
			return value.Number(-v.AsNumber()), nil
		case value.KindDuration:
			return value.Duration(-v.AsDurationMs()), nil
		default:
			return value.Null, newEvalErrorAt(n.Position, "E_TYPE_MISMATCH", "unary - requires a Number or Duration operand")
		}
	case ast.OpNot:
		return value.Bool(!v.AsBool()), nil
	default:
		return value.Null, newEvalErrorAt(n.Position, "E_UNSUPPORTED_OPERATOR", "unsupported unary operator")
	}
}
