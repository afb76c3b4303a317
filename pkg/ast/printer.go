package ast

import (
	"strings"
)

// PrintStyle controls pretty-printer formatting choices not fixed by the
// grammar. Only property ordering is configurable; sections are always
// printed with `{ }` delimiters.
type PrintStyle struct {
	// Canonicalize sorts each section's properties alphabetically. When
	// false (the default), insertion order is preserved.
	Canonicalize bool
}

const indentUnit = "    "

// PrettyPrint renders f as canonical Helix source: 4-space indentation,
// `{}` blocks, and either insertion or alphabetical property order
// depending on style.Canonicalize. Printing is idempotent: re-parsing the
// output and printing again yields byte-identical text (modulo comments,
// which printing never restores).
func PrettyPrint(f *File, style PrintStyle) string {
	var sb strings.Builder
	for i, d := range f.Declarations {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		s, ok := d.(*Section)
		if !ok {
			continue
		}
		printSection(&sb, s, style)
	}
	sb.WriteString("\n")
	return sb.String()
}

func printSection(sb *strings.Builder, s *Section, style PrintStyle) {
	if s.UserKind {
		sb.WriteString("~")
	}
	sb.WriteString(s.Leader)
	if s.Name != "" {
		sb.WriteString(" \"")
		sb.WriteString(s.Name)
		sb.WriteString("\"")
	}
	if s.Subname != "" {
		sb.WriteString(" \"")
		sb.WriteString(s.Subname)
		sb.WriteString("\"")
	}
	sb.WriteString(" {\n")

	entries := s.Properties.Entries()
	if style.Canonicalize {
		entries = s.Properties.Sorted()
	}
	for _, p := range entries {
		sb.WriteString(indentUnit)
		sb.WriteString(p.Key)
		sb.WriteString(" = ")
		printExpr(sb, p.Value, 1, style)
		sb.WriteString("\n")
	}
	sb.WriteString("}")
}

func printExpr(sb *strings.Builder, e Expression, depth int, style PrintStyle) {
	switch n := e.(type) {
	case *ObjectLit:
		sb.WriteString("{\n")
		entries := n.Fields.Entries()
		if style.Canonicalize {
			entries = n.Fields.Sorted()
		}
		for _, p := range entries {
			sb.WriteString(strings.Repeat(indentUnit, depth+1))
			sb.WriteString(p.Key)
			sb.WriteString(" = ")
			printExpr(sb, p.Value, depth+1, style)
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat(indentUnit, depth))
		sb.WriteString("}")
	case *ArrayLit:
		sb.WriteString("[")
		for i, el := range n.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, el, depth, style)
		}
		sb.WriteString("]")
	default:
		sb.WriteString(e.String())
	}
}
