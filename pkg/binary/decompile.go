package binary

import (
	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/token"
)

// Decompile reconstructs an ast.File from every section in l, preserving
// declaration order and each declaration's property order. Two details
// the byte format does not carry are approximated: Leader is regenerated
// from DeclarationKind's canonical keyword (a user-defined `~name`
// section decompiles with its kind's keyword leader, not the original
// `~` spelling), and Subname is left empty — the Sections entry format
// has no field for either, only (kind_tag, symbol_id, properties).
func (l *Loader) Decompile() (*ast.File, error) {
	f := &ast.File{FileID: "decompiled.hlx", Version: 1}

	it := l.Sections()
	for {
		sec, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		f.Declarations = append(f.Declarations, l.decompileSection(sec))
	}
	return f, nil
}

func (l *Loader) decompileSection(sec DecodedSection) *ast.Section {
	name := ""
	if sec.NameID >= 0 {
		name = l.String(sec.NameID)
	}
	s := &ast.Section{
		Kind:       sec.Kind,
		Leader:     sec.Kind.String(),
		Name:       name,
		Properties: ast.NewPropertyList(),
	}
	for _, p := range sec.Properties {
		key := l.String(p.KeyID)
		s.Properties.Append(ast.Property{Key: key, Value: l.decompileValue(p.Value)})
	}
	return s
}

// decompileValue converts one decoded IR expression back into an
// ast.Expression. DurUnit carries the original literal's unit suffix
// through the binary format, so a duration like `30m` decompiles back to
// `30m` rather than its millisecond-normalized equivalent in seconds.
func (l *Loader) decompileValue(v ir.Expr) ast.Expression {
	switch v.Kind {
	case ir.EkNull:
		return &ast.NullLit{}
	case ir.EkBool:
		return &ast.BoolLit{Value: v.BoolV}
	case ir.EkNumber:
		return &ast.NumberLit{Value: v.NumV}
	case ir.EkString:
		return &ast.StringLit{Value: l.String(v.StrID)}
	case ir.EkDuration:
		unit := v.DurUnit
		if unit == token.UnitNone {
			unit = token.UnitSec
		}
		return &ast.DurationLit{Value: float64(v.DurMs) / float64(unit.MillisecondsPer()), Unit: unit}
	case ir.EkIdentifier:
		return &ast.IdentifierExpr{Name: l.String(v.StrID)}
	case ir.EkVariable:
		return &ast.VariableExpr{Name: l.String(v.StrID)}
	case ir.EkMarker:
		return &ast.MarkerExpr{Name: l.String(v.StrID)}
	case ir.EkArray:
		elems := make([]ast.Expression, len(v.Elements))
		for i, el := range v.Elements {
			elems[i] = l.decompileValue(el)
		}
		return &ast.ArrayLit{Elements: elems}
	case ir.EkObject:
		fields := ast.NewPropertyList()
		for _, f := range v.Fields {
			fields.Append(ast.Property{Key: l.String(f.KeyID), Value: l.decompileValue(f.Value)})
		}
		return &ast.ObjectLit{Fields: fields}
	case ir.EkCall:
		positional := make([]ast.Expression, len(v.Positional))
		for i, p := range v.Positional {
			positional[i] = l.decompileValue(p)
		}
		named := ast.NewPropertyList()
		for _, f := range v.Named {
			named.Append(ast.Property{Key: l.String(f.KeyID), Value: l.decompileValue(f.Value)})
		}
		member := ""
		if v.MemberID >= 0 {
			member = l.String(v.MemberID)
		}
		return &ast.AtOperatorCall{
			Name: l.String(v.NameID), Member: member,
			Positional: positional, Named: named,
		}
	case ir.EkBinary:
		return &ast.BinaryExpr{
			Left: l.decompileValue(*v.Left), Right: l.decompileValue(*v.Right), Operator: v.BinOp,
		}
	case ir.EkUnary:
		return &ast.UnaryExpr{Operand: l.decompileValue(*v.Operand), Operator: v.UnOp}
	case ir.EkPipeline:
		stages := make([]string, len(v.Stages))
		for i, s := range v.Stages {
			stages[i] = l.String(s)
		}
		return &ast.PipelineExpr{Stages: stages}
	default:
		return &ast.NullLit{}
	}
}
