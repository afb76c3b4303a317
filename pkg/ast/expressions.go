package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyber-boost/helix/pkg/token"
)

// Expression is satisfied by every expression node kind in the sum type
// described by the data model: String, Number, Bool, Null, Duration,
// Array, Object, Identifier, Variable, Marker, AtOperatorCall, BinaryOp,
// UnaryOp, Pipeline.
type Expression interface {
	Node
	expressionMarker()
}

// BinaryOperator is the closed set of binary expression operators.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpConcat
)

func (o BinaryOperator) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpConcat:
		return "++"
	default:
		return "?"
	}
}

// UnaryOperator is the closed set of unary expression operators.
type UnaryOperator int

const (
	OpNegate UnaryOperator = iota
	OpNot
)

func (o UnaryOperator) String() string {
	switch o {
	case OpNegate:
		return "-"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// StringLit is a quoted string literal.
type StringLit struct {
	Value    string
	Position Position
}

func (e *StringLit) expressionMarker() {}
func (e *StringLit) Pos() Position     { return e.Position }
func (e *StringLit) String() string    { return fmt.Sprintf("%q", e.Value) }

// NumberLit is a numeric literal (integer, float, or scientific).
type NumberLit struct {
	Value    float64
	Position Position
}

func (e *NumberLit) expressionMarker() {}
func (e *NumberLit) Pos() Position     { return e.Position }
func (e *NumberLit) String() string    { return formatNumber(e.Value) }

// BoolLit is a boolean literal.
type BoolLit struct {
	Value    bool
	Position Position
}

func (e *BoolLit) expressionMarker() {}
func (e *BoolLit) Pos() Position     { return e.Position }
func (e *BoolLit) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

// NullLit is the null literal.
type NullLit struct {
	Position Position
}

func (e *NullLit) expressionMarker() {}
func (e *NullLit) Pos() Position     { return e.Position }
func (e *NullLit) String() string    { return "null" }

// DurationLit is a numeric literal immediately followed by a unit suffix.
// The original literal text is retained for round-trip pretty-printing.
type DurationLit struct {
	Value    float64
	Unit     token.DurationUnit
	Position Position
}

func (e *DurationLit) expressionMarker() {}
func (e *DurationLit) Pos() Position     { return e.Position }
func (e *DurationLit) String() string {
	return fmt.Sprintf("%s%c", formatNumber(e.Value), e.Unit)
}

// Milliseconds returns the duration normalized to the canonical unit.
func (e *DurationLit) Milliseconds() int64 {
	return int64(e.Value * float64(e.Unit.MillisecondsPer()))
}

// ArrayLit is an `[expr, expr, ...]` literal.
type ArrayLit struct {
	Elements []Expression
	Position Position
}

func (e *ArrayLit) expressionMarker() {}
func (e *ArrayLit) Pos() Position     { return e.Position }
func (e *ArrayLit) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjectLit is a `{ id = expr, ... }` inline object literal. Field order is
// preserved, matching the section property-ordering invariant.
type ObjectLit struct {
	Fields   *PropertyList
	Position Position
}

func (e *ObjectLit) expressionMarker() {}
func (e *ObjectLit) Pos() Position     { return e.Position }
func (e *ObjectLit) String() string {
	parts := make([]string, 0, e.Fields.Len())
	for _, p := range e.Fields.Entries() {
		parts = append(parts, p.Key+" = "+p.Value.String())
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// IdentifierExpr is a bare identifier used as an expression (e.g. a
// section-name reference inside depends_on or a pipeline stage).
type IdentifierExpr struct {
	Name     string
	Position Position
}

func (e *IdentifierExpr) expressionMarker() {}
func (e *IdentifierExpr) Pos() Position     { return e.Position }
func (e *IdentifierExpr) String() string    { return e.Name }

// VariableExpr is a `$NAME` reference, resolved eagerly at evaluation time.
type VariableExpr struct {
	Name     string
	Position Position
}

func (e *VariableExpr) expressionMarker() {}
func (e *VariableExpr) Pos() Position     { return e.Position }
func (e *VariableExpr) String() string    { return "$" + e.Name }

// MarkerExpr is a `!NAME!` reference. Unlike VariableExpr, resolution is
// deferred until the expression is used, not when it is parsed or loaded.
type MarkerExpr struct {
	Name     string
	Position Position
}

func (e *MarkerExpr) expressionMarker() {}
func (e *MarkerExpr) Pos() Position     { return e.Position }
func (e *MarkerExpr) String() string    { return "!" + e.Name + "!" }

// AtOperatorCall is the reduced form of every `@name(...)` call shape:
// `@name`, `@name[key]`, `@name["key"]`, `@name(arg, named=value)`,
// `@name.member[key]`.
type AtOperatorCall struct {
	Name       string
	Member     string // non-empty for `@name.member[...]`
	Positional []Expression
	Named      *PropertyList
	Position   Position
}

func (e *AtOperatorCall) expressionMarker() {}
func (e *AtOperatorCall) Pos() Position     { return e.Position }
func (e *AtOperatorCall) String() string {
	var sb strings.Builder
	sb.WriteString("@")
	sb.WriteString(e.Name)
	if e.Member != "" {
		sb.WriteString(".")
		sb.WriteString(e.Member)
	}
	sb.WriteString("(")
	parts := make([]string, 0, len(e.Positional)+e.Named.Len())
	for _, p := range e.Positional {
		parts = append(parts, p.String())
	}
	for _, n := range e.Named.Entries() {
		parts = append(parts, n.Key+"="+n.Value.String())
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(")")
	return sb.String()
}

// BinaryExpr is a binary operator expression.
type BinaryExpr struct {
	Left, Right Expression
	Operator    BinaryOperator
	Position    Position
}

func (e *BinaryExpr) expressionMarker() {}
func (e *BinaryExpr) Pos() Position     { return e.Position }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Operator, e.Right)
}

// UnaryExpr is a unary operator expression.
type UnaryExpr struct {
	Operand  Expression
	Operator UnaryOperator
	Position Position
}

func (e *UnaryExpr) expressionMarker() {}
func (e *UnaryExpr) Pos() Position     { return e.Position }
func (e *UnaryExpr) String() string    { return fmt.Sprintf("%s%s", e.Operator, e.Operand) }

// PipelineExpr is an `identifier -> identifier -> ...` expression, valid
// only inside a `pipeline { ... }` block.
type PipelineExpr struct {
	Stages   []string
	Position Position
}

func (e *PipelineExpr) expressionMarker() {}
func (e *PipelineExpr) Pos() Position     { return e.Position }
func (e *PipelineExpr) String() string    { return strings.Join(e.Stages, " -> ") }

// formatNumber renders a float64 the way source literals look: no forced
// decimal point for whole numbers, shortest round-trippable representation
// otherwise.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
