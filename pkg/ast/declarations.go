package ast

import "strings"

// DeclarationKind identifies the typed section kinds plus the catch-all
// generic/user-defined Section kind.
type DeclarationKind int

const (
	KindSection DeclarationKind = iota
	KindProject
	KindAgent
	KindWorkflow
	KindTask
	KindContext
	KindCrew
	KindPipeline
	KindMemory
)

func (k DeclarationKind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindAgent:
		return "agent"
	case KindWorkflow:
		return "workflow"
	case KindTask:
		return "task"
	case KindContext:
		return "context"
	case KindCrew:
		return "crew"
	case KindPipeline:
		return "pipeline"
	case KindMemory:
		return "memory"
	default:
		return "section"
	}
}

// Declaration is satisfied by every top-level declaration kind: the eight
// typed sections (Project, Agent, Workflow, Task, Context, Crew, Pipeline,
// Memory) and the generic/user-defined Section.
type Declaration interface {
	Node
	declarationMarker()
	DeclKind() DeclarationKind
	DeclName() string
	DeclSubname() string
	DeclProperties() *PropertyList
}

// Section is the single concrete Declaration representation. Every typed
// section (agent, workflow, ...) and every user-defined (`~foo { ... }`) or
// generic bare-identifier section materializes as a Section distinguished
// by Kind; this mirrors the data model's "strongly-typed mirror fields"
// note by keeping one physical shape with a kind tag, which both the
// semantic analyzer and the binary codegen can switch over uniformly.
type Section struct {
	Kind       DeclarationKind
	Leader     string // the leading word: keyword, or the bare identifier (without `~` for user sections)
	Name       string
	Subname    string
	UserKind   bool // true if this section began with `~` (user-defined)
	Properties *PropertyList
	Position   Position
}

func (d *Section) declarationMarker()           {}
func (d *Section) Pos() Position                { return d.Position }
func (d *Section) DeclKind() DeclarationKind     { return d.Kind }
func (d *Section) DeclName() string              { return d.Name }
func (d *Section) DeclSubname() string           { return d.Subname }
func (d *Section) DeclProperties() *PropertyList { return d.Properties }

// QualifiedName returns "{name}.{subname}" when a subname is present, else
// just Name. The kind is not part of the result.
func (d *Section) QualifiedName() string {
	if d.Subname != "" {
		return d.Name + "." + d.Subname
	}
	return d.Name
}

func (d *Section) String() string {
	var sb strings.Builder
	if d.UserKind {
		sb.WriteString("~")
	}
	sb.WriteString(d.Leader)
	if d.Name != "" {
		sb.WriteString(" \"")
		sb.WriteString(d.Name)
		sb.WriteString("\"")
	}
	if d.Subname != "" {
		sb.WriteString(".")
		sb.WriteString(d.Subname)
	}
	sb.WriteString(" {\n")
	for _, p := range d.Properties.Entries() {
		sb.WriteString("    ")
		sb.WriteString(p.Key)
		sb.WriteString(" = ")
		sb.WriteString(p.Value.String())
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// File is the parsed representation of one Helix source file: the ordered
// sequence of declarations plus a small header.
type File struct {
	FileID       string
	Version      int
	Declarations []Declaration
}

func (f *File) Pos() Position {
	if len(f.Declarations) == 0 {
		return Position{FileID: f.FileID, Line: 1, Column: 1}
	}
	return f.Declarations[0].Pos()
}

func (f *File) String() string {
	parts := make([]string, len(f.Declarations))
	for i, d := range f.Declarations {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n\n")
}

// SectionsOfKind returns every declaration of a given kind, in source order.
func (f *File) SectionsOfKind(kind DeclarationKind) []*Section {
	var out []*Section
	for _, d := range f.Declarations {
		if s, ok := d.(*Section); ok && s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// FindSection returns the first declaration matching kind and name.
func (f *File) FindSection(kind DeclarationKind, name string) (*Section, bool) {
	for _, s := range f.SectionsOfKind(kind) {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindAnySection finds a section by name regardless of kind, used to
// resolve bare `@name` references that may point at any declared section.
func (f *File) FindAnySection(name string) (*Section, bool) {
	for _, d := range f.Declarations {
		if s, ok := d.(*Section); ok && s.Name == name {
			return s, true
		}
	}
	return nil, false
}
