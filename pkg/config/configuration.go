// Package config materializes a parsed ast.File into the typed
// Configuration value described by the data model: a mapping from
// section-kind to mapping from section-name to property map, with
// strongly-typed mirror accessors for the common section kinds.
package config

import (
	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/value"
)

// SectionConfig is one materialized section: its properties, either the
// raw (unevaluated) expression-derived values or fully evaluated values,
// depending on how the Configuration was built.
type SectionConfig struct {
	Kind       ast.DeclarationKind
	Name       string
	Subname    string
	UserKind   bool
	Properties map[string]value.Value
	// PropertyOrder preserves the insertion order of Properties, since a
	// Go map iteration order is not stable and the data model requires
	// deterministic output.
	PropertyOrder []string
	Source        *ast.Section
}

// Get looks up a property by name.
func (s *SectionConfig) Get(key string) (value.Value, bool) {
	v, ok := s.Properties[key]
	return v, ok
}

// QualifiedName returns "{name}.{subname}" when Subname is set, else Name.
// The kind is not part of the result.
func (s *SectionConfig) QualifiedName() string {
	if s.Subname != "" {
		return s.Name + "." + s.Subname
	}
	return s.Name
}

// Configuration is the materialized form of a validated ast.File.
type Configuration struct {
	// BySection indexes every section by kind name ("agent", "workflow",
	// ..., or the literal leader text for generic/user sections) and then
	// by section name.
	BySection map[string]map[string]*SectionConfig

	// Typed mirrors for the built-in kinds, for callers that want direct
	// field access instead of generic property lookup.
	Agents    map[string]*SectionConfig
	Workflows map[string]*SectionConfig
	Tasks     map[string]*SectionConfig
	Contexts  map[string]*SectionConfig
	Crews     map[string]*SectionConfig
	Pipelines map[string]*SectionConfig
	Memories  map[string]*SectionConfig
	Projects  map[string]*SectionConfig
}

func newConfiguration() *Configuration {
	return &Configuration{
		BySection: make(map[string]map[string]*SectionConfig),
		Agents:    make(map[string]*SectionConfig),
		Workflows: make(map[string]*SectionConfig),
		Tasks:     make(map[string]*SectionConfig),
		Contexts:  make(map[string]*SectionConfig),
		Crews:     make(map[string]*SectionConfig),
		Pipelines: make(map[string]*SectionConfig),
		Memories:  make(map[string]*SectionConfig),
		Projects:  make(map[string]*SectionConfig),
	}
}

func (c *Configuration) index(kindName string, sc *SectionConfig) {
	m, ok := c.BySection[kindName]
	if !ok {
		m = make(map[string]*SectionConfig)
		c.BySection[kindName] = m
	}
	m[sc.QualifiedName()] = sc
}

func (c *Configuration) mirror(sc *SectionConfig) {
	switch sc.Kind {
	case ast.KindProject:
		c.Projects[sc.Name] = sc
	case ast.KindAgent:
		c.Agents[sc.Name] = sc
	case ast.KindWorkflow:
		c.Workflows[sc.Name] = sc
	case ast.KindTask:
		c.Tasks[sc.Name] = sc
	case ast.KindContext:
		c.Contexts[sc.Name] = sc
	case ast.KindCrew:
		c.Crews[sc.Name] = sc
	case ast.KindPipeline:
		c.Pipelines[sc.Name] = sc
	case ast.KindMemory:
		c.Memories[sc.Name] = sc
	}
}

// Evaluator is satisfied by pkg/operator's expression evaluator. Defined
// here (rather than imported) to avoid a config<->operator import cycle:
// operator depends on config to resolve @section/@section.prop references,
// so config cannot depend back on operator.
type Evaluator interface {
	Eval(e ast.Expression) (value.Value, error)
}

// FromAST materializes a Configuration from a parsed file. When eval is
// non-nil, every property expression is evaluated through it; otherwise
// properties are converted via ast-literal-only evaluation (arrays,
// objects, literals), and any expression requiring runtime evaluation
// (@-operator calls, $variables, !markers!) is left as value.Null, matching
// "Expressions inside properties are preserved unevaluated unless
// evaluate=true is requested."
func FromAST(f *ast.File, eval Evaluator) (*Configuration, error) {
	cfg := newConfiguration()

	for _, d := range f.Declarations {
		s, ok := d.(*ast.Section)
		if !ok {
			continue
		}

		sc := &SectionConfig{
			Kind:       s.Kind,
			Name:       s.Name,
			Subname:    s.Subname,
			UserKind:   s.UserKind,
			Properties: make(map[string]value.Value, s.Properties.Len()),
			Source:     s,
		}

		for _, p := range s.Properties.Entries() {
			v, err := materializeExpr(p.Value, eval)
			if err != nil {
				return nil, err
			}
			sc.Properties[p.Key] = v
			sc.PropertyOrder = append(sc.PropertyOrder, p.Key)
		}

		kindName := s.Kind.String()
		if s.Kind == ast.KindSection {
			kindName = s.Leader
		}
		cfg.index(kindName, sc)
		cfg.mirror(sc)
	}

	return cfg, nil
}

// materializeExpr converts a literal-only expression directly, and defers
// to eval (if provided) for anything requiring runtime context.
func materializeExpr(e ast.Expression, eval Evaluator) (value.Value, error) {
	switch n := e.(type) {
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
	case *ast.ArrayLit:
		out := make([]value.Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := materializeExpr(el, eval)
			if err != nil {
				return value.Null, err
			}
			out[i] = v
		}
		return value.Array(out), nil
	case *ast.ObjectLit:
		obj := value.NewObject()
		for _, p := range n.Fields.Entries() {
			v, err := materializeExpr(p.Value, eval)
			if err != nil {
				return value.Null, err
			}
			obj.Set(p.Key, v)
		}
		return obj, nil
	default:
		if eval != nil {
			return eval.Eval(e)
		}
		return value.Null, nil
	}
}
