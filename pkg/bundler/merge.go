package bundler

import (
	"fmt"

	"github.com/cyber-boost/helix/pkg/ir"
)

// Merge combines programs, in order, into one Program: a single deduped
// string pool and one Decls slice holding every input's declarations, file
// order preserved and each file's own declaration order preserved within
// that. Two same-(kind,name) declarations from different files collide
// the same way two such declarations within one file would (a file's own
// duplicate-name collision is the semantic analyzer's job; Merge extends
// that check across file boundaries, since the analyzer only ever sees
// one file at a time).
func Merge(progs []*ir.Program) (*ir.Program, error) {
	merged := &ir.Program{Strings: ir.NewStringPool()}
	seen := map[string]bool{}

	for _, p := range progs {
		remap := make([]int, p.Strings.Len())
		for id := 0; id < p.Strings.Len(); id++ {
			remap[id] = merged.Strings.Intern(p.Strings.Get(id))
		}

		for _, d := range p.Decls {
			nd := remapDecl(d, remap)
			if nd.NameID != -1 {
				key := fmt.Sprintf("%d:%s", nd.Kind, merged.Strings.Get(nd.NameID))
				if seen[key] {
					return nil, fmt.Errorf("bundler: duplicate %s name %q across bundled files",
						nd.Kind, merged.Strings.Get(nd.NameID))
				}
				seen[key] = true
			}
			merged.Decls = append(merged.Decls, nd)
		}
	}
	return merged, nil
}

func remapID(id int, remap []int) int {
	if id < 0 || id >= len(remap) {
		return id
	}
	return remap[id]
}

func remapDecl(d ir.Decl, remap []int) ir.Decl {
	d.KindName = remapID(d.KindName, remap)
	d.NameID = remapID(d.NameID, remap)
	d.SubnameID = remapID(d.SubnameID, remap)
	for i := range d.Properties {
		d.Properties[i].KeyID = remapID(d.Properties[i].KeyID, remap)
		d.Properties[i].Value = remapExpr(d.Properties[i].Value, remap)
	}
	return d
}

// remapExpr rewrites every interned-string-id field of e (recursively)
// through remap, translating ids assigned by a file's own StringPool into
// ids in the merged pool.
func remapExpr(e ir.Expr, remap []int) ir.Expr {
	switch e.Kind {
	case ir.EkString, ir.EkIdentifier, ir.EkVariable, ir.EkMarker:
		e.StrID = remapID(e.StrID, remap)
	case ir.EkArray:
		for i := range e.Elements {
			e.Elements[i] = remapExpr(e.Elements[i], remap)
		}
	case ir.EkObject:
		for i := range e.Fields {
			e.Fields[i].KeyID = remapID(e.Fields[i].KeyID, remap)
			e.Fields[i].Value = remapExpr(e.Fields[i].Value, remap)
		}
	case ir.EkCall:
		e.NameID = remapID(e.NameID, remap)
		if e.MemberID >= 0 {
			e.MemberID = remapID(e.MemberID, remap)
		}
		for i := range e.Positional {
			e.Positional[i] = remapExpr(e.Positional[i], remap)
		}
		for i := range e.Named {
			e.Named[i].KeyID = remapID(e.Named[i].KeyID, remap)
			e.Named[i].Value = remapExpr(e.Named[i].Value, remap)
		}
	case ir.EkBinary:
		left := remapExpr(*e.Left, remap)
		right := remapExpr(*e.Right, remap)
		e.Left, e.Right = &left, &right
	case ir.EkUnary:
		operand := remapExpr(*e.Operand, remap)
		e.Operand = &operand
	case ir.EkPipeline:
		for i := range e.Stages {
			e.Stages[i] = remapID(e.Stages[i], remap)
		}
	}
	return e
}
