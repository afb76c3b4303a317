package ir

import (
	"sort"

	"github.com/cyber-boost/helix/pkg/ast"
)

// builtinFamilies mirrors pkg/semantic's and pkg/operator's allowlist: an
// EkCall whose Name is not in this set names a section, not an operator,
// and is therefore a candidate for reachability tracking (O1) and
// reference flattening (O3).
var builtinFamilies = map[string]bool{
	"env": true, "var": true, "date": true, "math": true,
	"string": true, "array": true, "json": true, "crypto": true,
	"memory": true, "transform": true, "sys": true, "file": true,
}

// OptLevel selects how aggressively Optimize transforms a Program, O0
// through O3.
type OptLevel int

const (
	OptNone OptLevel = iota
	OptO1
	OptO2
	OptO3
)

// Optimize runs the O0-O3 pipeline described in the binary codegen
// design: O0 is the identity (faithful IR, Lower's own output); O1 adds
// constant folding and dead-code elimination; O2 adds common
// subexpression elimination and single-use identifier alias inlining; O3
// adds whole-program @section.prop reference flattening and a layout
// pack over nested object fields. No level ever folds, eliminates, or
// flattens through an Opaque call.
//
// entrypoints names the declarations DCE treats as reachability roots.
// An empty slice disables O1's dead-code elimination (there is nothing to
// treat as unreachable without at least one declared root) without
// disabling constant folding.
func Optimize(prog *Program, level OptLevel, entrypoints []string) *Program {
	if level <= 0 {
		return prog
	}

	for di := range prog.Decls {
		for i := range prog.Decls[di].Properties {
			prog.Decls[di].Properties[i].Value = foldExpr(prog.Decls[di].Properties[i].Value)
		}
	}
	prog = deadCodeEliminate(prog, entrypoints)
	if level == 1 {
		return prog
	}

	cache := map[string]Expr{}
	for di := range prog.Decls {
		for i := range prog.Decls[di].Properties {
			prog.Decls[di].Properties[i].Value = cseWalk(prog.Decls[di].Properties[i].Value, prog.Strings, cache)
		}
	}
	inlineAliases(prog)
	if level == 2 {
		return prog
	}

	referenceFlatten(prog)
	packLayout(prog)
	return prog
}

// foldExpr constant-folds numeric and boolean binary/unary operations,
// per O1. Division by zero and any non-literal operand are left unfolded
// rather than erroring — codegen-time folding is best-effort, the actual
// error belongs to the evaluator.
func foldExpr(e Expr) Expr {
	switch e.Kind {
	case EkArray:
		for i := range e.Elements {
			e.Elements[i] = foldExpr(e.Elements[i])
		}
		return e
	case EkObject:
		for i := range e.Fields {
			e.Fields[i].Value = foldExpr(e.Fields[i].Value)
		}
		return e
	case EkCall:
		for i := range e.Positional {
			e.Positional[i] = foldExpr(e.Positional[i])
		}
		for i := range e.Named {
			e.Named[i].Value = foldExpr(e.Named[i].Value)
		}
		return e
	case EkBinary:
		left := foldExpr(*e.Left)
		right := foldExpr(*e.Right)
		e.Left, e.Right = &left, &right
		if left.Kind == EkNumber && right.Kind == EkNumber {
			switch e.BinOp {
			case ast.OpAdd:
				return Expr{Kind: EkNumber, NumV: left.NumV + right.NumV, Pos: e.Pos}
			case ast.OpSub:
				return Expr{Kind: EkNumber, NumV: left.NumV - right.NumV, Pos: e.Pos}
			case ast.OpMul:
				return Expr{Kind: EkNumber, NumV: left.NumV * right.NumV, Pos: e.Pos}
			case ast.OpDiv:
				if right.NumV != 0 {
					return Expr{Kind: EkNumber, NumV: left.NumV / right.NumV, Pos: e.Pos}
				}
			}
		}
		return e
	case EkUnary:
		operand := foldExpr(*e.Operand)
		e.Operand = &operand
		switch {
		case e.UnOp == ast.OpNot && operand.Kind == EkBool:
			return Expr{Kind: EkBool, BoolV: !operand.BoolV, Pos: e.Pos}
		case e.UnOp == ast.OpNegate && operand.Kind == EkNumber:
			return Expr{Kind: EkNumber, NumV: -operand.NumV, Pos: e.Pos}
		}
		return e
	default:
		return e
	}
}

// deadCodeEliminate drops declarations not reachable, via @section
// references, from any of entrypoints.
func deadCodeEliminate(prog *Program, entrypoints []string) *Program {
	if len(entrypoints) == 0 {
		return prog
	}

	byName := map[string]*Decl{}
	for i := range prog.Decls {
		d := &prog.Decls[i]
		if d.NameID != noStr {
			byName[prog.Strings.Get(d.NameID)] = d
		}
	}

	reached := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if reached[name] {
			return
		}
		d, ok := byName[name]
		if !ok {
			return
		}
		reached[name] = true
		for _, p := range d.Properties {
			collectRefs(p.Value, prog.Strings, visit)
		}
	}
	for _, name := range entrypoints {
		visit(name)
	}

	out := make([]Decl, 0, len(prog.Decls))
	for _, d := range prog.Decls {
		if d.NameID == noStr || reached[prog.Strings.Get(d.NameID)] {
			out = append(out, d)
		}
	}
	prog.Decls = out
	return prog
}

func collectRefs(e Expr, pool *StringPool, visit func(string)) {
	switch e.Kind {
	case EkCall:
		if name := pool.Get(e.NameID); !builtinFamilies[name] {
			visit(name)
		}
		for _, p := range e.Positional {
			collectRefs(p, pool, visit)
		}
		for _, f := range e.Named {
			collectRefs(f.Value, pool, visit)
		}
	case EkArray:
		for _, el := range e.Elements {
			collectRefs(el, pool, visit)
		}
	case EkObject:
		for _, f := range e.Fields {
			collectRefs(f.Value, pool, visit)
		}
	case EkBinary:
		collectRefs(*e.Left, pool, visit)
		collectRefs(*e.Right, pool, visit)
	case EkUnary:
		collectRefs(*e.Operand, pool, visit)
	}
}

// cseWalk recurses into e, recognizing structurally identical pure
// subexpressions (via their canonical rendered form) against a shared
// cache and normalizing repeats to the first-seen value. Opaque
// subexpressions are left untouched.
func cseWalk(e Expr, pool *StringPool, cache map[string]Expr) Expr {
	switch e.Kind {
	case EkBinary:
		left := cseWalk(*e.Left, pool, cache)
		right := cseWalk(*e.Right, pool, cache)
		e.Left, e.Right = &left, &right
	case EkUnary:
		operand := cseWalk(*e.Operand, pool, cache)
		e.Operand = &operand
	case EkArray:
		for i := range e.Elements {
			e.Elements[i] = cseWalk(e.Elements[i], pool, cache)
		}
	case EkObject:
		for i := range e.Fields {
			e.Fields[i].Value = cseWalk(e.Fields[i].Value, pool, cache)
		}
	case EkCall:
		for i := range e.Positional {
			e.Positional[i] = cseWalk(e.Positional[i], pool, cache)
		}
		for i := range e.Named {
			e.Named[i].Value = cseWalk(e.Named[i].Value, pool, cache)
		}
	}
	if !isPure(e) {
		return e
	}
	key := e.String(pool)
	if cached, ok := cache[key]; ok {
		return cached
	}
	cache[key] = e
	return e
}

// inlineAliases replaces a property whose value is a bare identifier
// referencing a sibling property's literal value, when that sibling is
// referenced by exactly one alias within the same declaration.
func inlineAliases(prog *Program) {
	for di := range prog.Decls {
		d := &prog.Decls[di]

		byKey := map[string]Expr{}
		for _, p := range d.Properties {
			byKey[prog.Strings.Get(p.KeyID)] = p.Value
		}

		usage := map[string]int{}
		for _, p := range d.Properties {
			countIdentUsage(p.Value, prog.Strings, usage)
		}

		for i, p := range d.Properties {
			if p.Value.Kind != EkIdentifier {
				continue
			}
			name := prog.Strings.Get(p.Value.StrID)
			target, ok := byKey[name]
			if ok && usage[name] == 1 && isLiteral(target) {
				d.Properties[i].Value = target
			}
		}
	}
}

func countIdentUsage(e Expr, pool *StringPool, usage map[string]int) {
	switch e.Kind {
	case EkIdentifier:
		usage[pool.Get(e.StrID)]++
	case EkArray:
		for _, el := range e.Elements {
			countIdentUsage(el, pool, usage)
		}
	case EkObject:
		for _, f := range e.Fields {
			countIdentUsage(f.Value, pool, usage)
		}
	case EkCall:
		for _, p := range e.Positional {
			countIdentUsage(p, pool, usage)
		}
		for _, f := range e.Named {
			countIdentUsage(f.Value, pool, usage)
		}
	case EkBinary:
		countIdentUsage(*e.Left, pool, usage)
		countIdentUsage(*e.Right, pool, usage)
	case EkUnary:
		countIdentUsage(*e.Operand, pool, usage)
	}
}

// referenceFlatten resolves `@section.prop` to its literal value in place
// whenever the referenced section's property is itself a literal,
// eliminating the indirection at compile time.
func referenceFlatten(prog *Program) {
	byName := map[string]*Decl{}
	for i := range prog.Decls {
		d := &prog.Decls[i]
		if d.NameID != noStr {
			byName[prog.Strings.Get(d.NameID)] = d
		}
	}
	for di := range prog.Decls {
		d := &prog.Decls[di]
		for i := range d.Properties {
			d.Properties[i].Value = flattenExpr(d.Properties[i].Value, prog.Strings, byName)
		}
	}
}

func flattenExpr(e Expr, pool *StringPool, byName map[string]*Decl) Expr {
	switch e.Kind {
	case EkCall:
		if name := pool.Get(e.NameID); !builtinFamilies[name] && e.MemberID != noStr {
			if target, ok := byName[name]; ok {
				propName := pool.Get(e.MemberID)
				for _, p := range target.Properties {
					if pool.Get(p.KeyID) == propName && isLiteral(p.Value) {
						return p.Value
					}
				}
			}
		}
		for i := range e.Positional {
			e.Positional[i] = flattenExpr(e.Positional[i], pool, byName)
		}
		for i := range e.Named {
			e.Named[i].Value = flattenExpr(e.Named[i].Value, pool, byName)
		}
		return e
	case EkArray:
		for i := range e.Elements {
			e.Elements[i] = flattenExpr(e.Elements[i], pool, byName)
		}
		return e
	case EkObject:
		for i := range e.Fields {
			e.Fields[i].Value = flattenExpr(e.Fields[i].Value, pool, byName)
		}
		return e
	case EkBinary:
		left := flattenExpr(*e.Left, pool, byName)
		right := flattenExpr(*e.Right, pool, byName)
		e.Left, e.Right = &left, &right
		return e
	case EkUnary:
		operand := flattenExpr(*e.Operand, pool, byName)
		e.Operand = &operand
		return e
	default:
		return e
	}
}

// packLayout sorts each nested object literal's fields by interned key id,
// a compact and deterministic layout for the binary encoder's string pool
// and section tables. Decl.Properties themselves are never reordered: the
// data model's insertion-order guarantee is scoped to a declaration's own
// properties, not to ad hoc nested object literals (a transform payload, a
// step's inline block) carried as property values.
func packLayout(prog *Program) {
	for di := range prog.Decls {
		for i := range prog.Decls[di].Properties {
			packExpr(&prog.Decls[di].Properties[i].Value)
		}
	}
}

func packExpr(e *Expr) {
	switch e.Kind {
	case EkObject:
		sort.Slice(e.Fields, func(i, j int) bool { return e.Fields[i].KeyID < e.Fields[j].KeyID })
		for i := range e.Fields {
			packExpr(&e.Fields[i].Value)
		}
	case EkArray:
		for i := range e.Elements {
			packExpr(&e.Elements[i])
		}
	case EkCall:
		for i := range e.Positional {
			packExpr(&e.Positional[i])
		}
		for i := range e.Named {
			packExpr(&e.Named[i].Value)
		}
	case EkBinary:
		packExpr(e.Left)
		packExpr(e.Right)
	case EkUnary:
		packExpr(e.Operand)
	}
}
