// Package ir defines the flat intermediate representation AST is lowered
// to before binary codegen, and the O0-O3 optimizer passes that run over
// it.
package ir

import (
	"fmt"
	"sort"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/token"
)

// StringPool interns every string, identifier, and key that appears in a
// Program so the binary encoder (pkg/binary) can write each distinct
// string once and reference it everywhere else by a compact integer id.
type StringPool struct {
	strs  []string
	index map[string]int
}

// NewStringPool creates an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]int)}
}

// Intern returns s's id, assigning the next sequential id on first sight.
func (p *StringPool) Intern(s string) int {
	if id, ok := p.index[s]; ok {
		return id
	}
	id := len(p.strs)
	p.strs = append(p.strs, s)
	p.index[s] = id
	return id
}

// Get returns the string interned under id.
func (p *StringPool) Get(id int) string {
	if id < 0 || id >= len(p.strs) {
		return ""
	}
	return p.strs[id]
}

// Len reports how many distinct strings are interned.
func (p *StringPool) Len() int { return len(p.strs) }

// Strings returns the pool contents in id order, for serialization.
func (p *StringPool) Strings() []string {
	out := make([]string, len(p.strs))
	copy(out, p.strs)
	return out
}

// noStr marks an absent optional string id (e.g. AtOperatorCall.Member,
// Section.Subname).
const noStr = -1

// ExprKind tags which field(s) of Expr are populated. IR expressions are a
// compact sum matching the source ast.Expression shapes.
type ExprKind int

const (
	EkNull ExprKind = iota
	EkBool
	EkNumber
	EkString
	EkDuration
	EkArray
	EkObject
	EkIdentifier
	EkVariable
	EkMarker
	EkCall
	EkBinary
	EkUnary
	EkPipeline
)

// Field is one (key id, value) pair of an EkObject or an EkCall's named
// arguments; ordering is preserved end to end.
type Field struct {
	KeyID int
	Value Expr
}

// Expr is one IR expression node. Only the fields relevant to Kind are
// populated; the rest hold their zero value.
type Expr struct {
	Kind ExprKind
	Pos  ast.Position

	BoolV   bool
	NumV    float64
	StrID   int                // EkString/EkIdentifier/EkVariable/EkMarker
	DurMs   int64              // EkDuration: value normalized to milliseconds
	DurUnit token.DurationUnit // EkDuration: original literal's unit, for round-trip

	Elements []Expr  // EkArray
	Fields   []Field // EkObject

	NameID     int    // EkCall: interned operator/section name
	MemberID   int    // EkCall: interned member name, noStr if absent
	Positional []Expr // EkCall
	Named      []Field

	BinOp       ast.BinaryOperator // EkBinary
	UnOp        ast.UnaryOperator  // EkUnary
	Left, Right *Expr              // EkBinary
	Operand     *Expr              // EkUnary

	Stages []int // EkPipeline: interned stage names

	// Opaque marks an EkCall that performs a side effect (@env, @date.now,
	// @memory.*, @sys.exec): the optimizer must never constant-fold it.
	Opaque bool
}

// Property is one (key id, value) pair of a Decl, mirroring
// ast.Section.Properties but with the key interned and insertion order
// preserved via the slice itself.
type Property struct {
	KeyID int
	Value Expr
}

// Decl is one flattened top-level declaration: a kind tag, interned
// symbol id, and its ordered (key_id, ir_expr) property list.
type Decl struct {
	Kind       ast.DeclarationKind
	KindName   int // interned literal leader text, used for generic/user sections
	NameID     int // noStr if anonymous
	SubnameID  int // noStr if absent
	Properties []Property
	Pos        ast.Position
}

// Program is a whole lowered file: its string pool and its declarations
// in source order (the ordering guarantee propagates from AST to IR to
// binary sections).
type Program struct {
	Strings *StringPool
	Decls   []Decl
}

// Lower converts a parsed ast.File into a Program. Lowering performs no
// optimization; the result is the faithful O0 IR.
func Lower(f *ast.File) *Program {
	pool := NewStringPool()
	prog := &Program{Strings: pool}

	for _, d := range f.Declarations {
		s, ok := d.(*ast.Section)
		if !ok {
			continue
		}
		decl := Decl{
			Kind:      s.Kind,
			KindName:  pool.Intern(s.Leader),
			NameID:    internOrNone(pool, s.Name),
			SubnameID: internOrNone(pool, s.Subname),
			Pos:       s.Position,
		}
		for _, p := range s.Properties.Entries() {
			decl.Properties = append(decl.Properties, Property{
				KeyID: pool.Intern(p.Key),
				Value: lowerExpr(p.Value, pool),
			})
		}
		prog.Decls = append(prog.Decls, decl)
	}
	return prog
}

func internOrNone(pool *StringPool, s string) int {
	if s == "" {
		return noStr
	}
	return pool.Intern(s)
}

func lowerExpr(e ast.Expression, pool *StringPool) Expr {
	switch n := e.(type) {
	case *ast.NullLit:
		return Expr{Kind: EkNull, Pos: n.Position}
	case *ast.BoolLit:
		return Expr{Kind: EkBool, BoolV: n.Value, Pos: n.Position}
	case *ast.NumberLit:
		return Expr{Kind: EkNumber, NumV: n.Value, Pos: n.Position}
	case *ast.StringLit:
		return Expr{Kind: EkString, StrID: pool.Intern(n.Value), Pos: n.Position}
	case *ast.DurationLit:
		return Expr{Kind: EkDuration, DurMs: n.Milliseconds(), DurUnit: n.Unit, Pos: n.Position}
	case *ast.ArrayLit:
		out := make([]Expr, len(n.Elements))
		for i, el := range n.Elements {
			out[i] = lowerExpr(el, pool)
		}
		return Expr{Kind: EkArray, Elements: out, Pos: n.Position}
	case *ast.ObjectLit:
		var fields []Field
		for _, p := range n.Fields.Entries() {
			fields = append(fields, Field{KeyID: pool.Intern(p.Key), Value: lowerExpr(p.Value, pool)})
		}
		return Expr{Kind: EkObject, Fields: fields, Pos: n.Position}
	case *ast.IdentifierExpr:
		return Expr{Kind: EkIdentifier, StrID: pool.Intern(n.Name), Pos: n.Position}
	case *ast.VariableExpr:
		return Expr{Kind: EkVariable, StrID: pool.Intern(n.Name), Pos: n.Position}
	case *ast.MarkerExpr:
		return Expr{Kind: EkMarker, StrID: pool.Intern(n.Name), Pos: n.Position}
	case *ast.AtOperatorCall:
		positional := make([]Expr, len(n.Positional))
		for i, p := range n.Positional {
			positional[i] = lowerExpr(p, pool)
		}
		var named []Field
		for _, p := range n.Named.Entries() {
			named = append(named, Field{KeyID: pool.Intern(p.Key), Value: lowerExpr(p.Value, pool)})
		}
		return Expr{
			Kind:       EkCall,
			NameID:     pool.Intern(n.Name),
			MemberID:   internOrNone(pool, n.Member),
			Positional: positional,
			Named:      named,
			Opaque:     isSideEffecting(n.Name, n.Member),
			Pos:        n.Position,
		}
	case *ast.BinaryExpr:
		left := lowerExpr(n.Left, pool)
		right := lowerExpr(n.Right, pool)
		return Expr{Kind: EkBinary, BinOp: n.Operator, Left: &left, Right: &right, Pos: n.Position}
	case *ast.UnaryExpr:
		operand := lowerExpr(n.Operand, pool)
		return Expr{Kind: EkUnary, UnOp: n.Operator, Operand: &operand, Pos: n.Position}
	case *ast.PipelineExpr:
		stages := make([]int, len(n.Stages))
		for i, s := range n.Stages {
			stages[i] = pool.Intern(s)
		}
		return Expr{Kind: EkPipeline, Stages: stages, Pos: n.Position}
	default:
		return Expr{Kind: EkNull}
	}
}

// isSideEffecting reports whether an AtOperatorCall to family/member
// observes or mutates state outside the expression tree, per the binary
// codegen note that `@env`, `@date.now`, `@memory.*`, and `@sys.exec` are
// opaque and never constant-folded.
func isSideEffecting(family, member string) bool {
	switch family {
	case "env", "memory", "sys":
		return true
	case "date":
		return member == "now" || member == ""
	default:
		return false
	}
}

// String renders e back to Helix-like source text, resolving interned ids
// against pool. Used for diagnostics and the CSE pass's canonical key.
func (e Expr) String(pool *StringPool) string {
	switch e.Kind {
	case EkNull:
		return "null"
	case EkBool:
		if e.BoolV {
			return "true"
		}
		return "false"
	case EkNumber:
		return fmt.Sprintf("%g", e.NumV)
	case EkString:
		return fmt.Sprintf("%q", pool.Get(e.StrID))
	case EkDuration:
		return fmt.Sprintf("%dms", e.DurMs)
	case EkArray:
		parts := make([]string, len(e.Elements))
		for i, el := range e.Elements {
			parts[i] = el.String(pool)
		}
		return "[" + joinStrings(parts) + "]"
	case EkObject:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = pool.Get(f.KeyID) + "=" + f.Value.String(pool)
		}
		return "{" + joinStrings(parts) + "}"
	case EkIdentifier:
		return pool.Get(e.StrID)
	case EkVariable:
		return "$" + pool.Get(e.StrID)
	case EkMarker:
		return "!" + pool.Get(e.StrID) + "!"
	case EkCall:
		name := "@" + pool.Get(e.NameID)
		if e.MemberID != noStr {
			name += "." + pool.Get(e.MemberID)
		}
		parts := make([]string, 0, len(e.Positional)+len(e.Named))
		for _, p := range e.Positional {
			parts = append(parts, p.String(pool))
		}
		for _, f := range e.Named {
			parts = append(parts, pool.Get(f.KeyID)+"="+f.Value.String(pool))
		}
		return name + "(" + joinStrings(parts) + ")"
	case EkBinary:
		return "(" + e.Left.String(pool) + " " + e.BinOp.String() + " " + e.Right.String(pool) + ")"
	case EkUnary:
		return e.UnOp.String() + e.Operand.String(pool)
	case EkPipeline:
		names := make([]string, len(e.Stages))
		for i, s := range e.Stages {
			names[i] = pool.Get(s)
		}
		return joinStringsSep(names, " -> ")
	default:
		return "?"
	}
}

func joinStrings(parts []string) string { return joinStringsSep(parts, ", ") }

func joinStringsSep(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// isPure reports whether e contains no Opaque call anywhere in its tree,
// i.e. whether it is safe to constant-fold or common-subexpression-
// eliminate.
func isPure(e Expr) bool {
	switch e.Kind {
	case EkCall:
		if e.Opaque {
			return false
		}
		for _, p := range e.Positional {
			if !isPure(p) {
				return false
			}
		}
		for _, f := range e.Named {
			if !isPure(f.Value) {
				return false
			}
		}
		return true
	case EkArray:
		for _, el := range e.Elements {
			if !isPure(el) {
				return false
			}
		}
		return true
	case EkObject:
		for _, f := range e.Fields {
			if !isPure(f.Value) {
				return false
			}
		}
		return true
	case EkBinary:
		return isPure(*e.Left) && isPure(*e.Right)
	case EkUnary:
		return isPure(*e.Operand)
	default:
		return true
	}
}

// isLiteral reports whether e is a fully-evaluated literal (no variables,
// markers, calls, or pipelines anywhere below it) — the condition O3's
// reference-flattening checks before inlining a @section.prop value.
func isLiteral(e Expr) bool {
	switch e.Kind {
	case EkNull, EkBool, EkNumber, EkString, EkDuration:
		return true
	case EkArray:
		for _, el := range e.Elements {
			if !isLiteral(el) {
				return false
			}
		}
		return true
	case EkObject:
		for _, f := range e.Fields {
			if !isLiteral(f.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// sortedDeclNames returns every non-anonymous declaration name in prog,
// sorted.
func sortedDeclNames(prog *Program) []string {
	names := make([]string, 0, len(prog.Decls))
	for _, d := range prog.Decls {
		if d.NameID != noStr {
			names = append(names, prog.Strings.Get(d.NameID))
		}
	}
	sort.Strings(names)
	return names
}
