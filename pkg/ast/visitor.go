package ast

// Visitor walks a File in declaration order. Visit returns false to skip
// descending into a declaration's property expressions.
type Visitor interface {
	VisitSection(s *Section) bool
	VisitExpression(e Expression)
}

// BaseVisitor is an embeddable no-op Visitor; callers override only the
// methods they need.
type BaseVisitor struct{}

func (BaseVisitor) VisitSection(*Section) bool   { return true }
func (BaseVisitor) VisitExpression(Expression)   {}

// Walk visits every declaration of f in source order, then recurses into
// each expression reachable from its properties.
func Walk(v Visitor, f *File) {
	for _, d := range f.Declarations {
		s, ok := d.(*Section)
		if !ok {
			continue
		}
		if !v.VisitSection(s) {
			continue
		}
		for _, p := range s.Properties.Entries() {
			walkExpr(v, p.Value)
		}
	}
}

// walkExpr visits e and recurses into its sub-expressions.
func walkExpr(v Visitor, e Expression) {
	if e == nil {
		return
	}
	v.VisitExpression(e)

	switch n := e.(type) {
	case *ArrayLit:
		for _, el := range n.Elements {
			walkExpr(v, el)
		}
	case *ObjectLit:
		for _, p := range n.Fields.Entries() {
			walkExpr(v, p.Value)
		}
	case *AtOperatorCall:
		for _, p := range n.Positional {
			walkExpr(v, p)
		}
		for _, p := range n.Named.Entries() {
			walkExpr(v, p.Value)
		}
	case *BinaryExpr:
		walkExpr(v, n.Left)
		walkExpr(v, n.Right)
	case *UnaryExpr:
		walkExpr(v, n.Operand)
	}
}

// CountVisitor tallies expression nodes by their dynamic Go type name,
// useful for quick structural sanity checks in tests and tooling.
type CountVisitor struct {
	BaseVisitor
	Sections int
	ExprByType map[string]int
}

// NewCountVisitor creates a zeroed CountVisitor.
func NewCountVisitor() *CountVisitor {
	return &CountVisitor{ExprByType: make(map[string]int)}
}

func (c *CountVisitor) VisitSection(s *Section) bool {
	c.Sections++
	return true
}

func (c *CountVisitor) VisitExpression(e Expression) {
	c.ExprByType[typeName(e)]++
}

func typeName(e Expression) string {
	switch e.(type) {
	case *StringLit:
		return "String"
	case *NumberLit:
		return "Number"
	case *BoolLit:
		return "Bool"
	case *NullLit:
		return "Null"
	case *DurationLit:
		return "Duration"
	case *ArrayLit:
		return "Array"
	case *ObjectLit:
		return "Object"
	case *IdentifierExpr:
		return "Identifier"
	case *VariableExpr:
		return "Variable"
	case *MarkerExpr:
		return "Marker"
	case *AtOperatorCall:
		return "AtOperatorCall"
	case *BinaryExpr:
		return "BinaryOp"
	case *UnaryExpr:
		return "UnaryOp"
	case *PipelineExpr:
		return "Pipeline"
	default:
		return "Unknown"
	}
}
