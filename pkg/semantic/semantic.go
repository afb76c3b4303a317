// Package semantic validates a parsed ast.File: symbol collection,
// reference resolution, type checking, constraint checking, dependency
// cycle detection, and duration normalization. Analysis never stops at the
// first problem; every pass runs to completion and "success" means the
// accumulated diagnostics contain no Error-severity entry.
package semantic

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/diag"
	"github.com/cyber-boost/helix/pkg/token"
)

// builtinOperatorFamilies is the set of `@name` leaders that the evaluator
// implements itself, as opposed to a reference to a declared section. An
// AtOperatorCall whose Name is in this set is never checked against the
// symbol table.
var builtinOperatorFamilies = map[string]bool{
	"env": true, "var": true, "date": true, "math": true,
	"string": true, "array": true, "json": true, "crypto": true,
	"memory": true, "transform": true, "sys": true, "file": true,
}

// propType is the closed set of primitive property types the type checker
// validates known properties against.
type propType int

const (
	tString propType = iota
	tNumber
	tBool
	tDuration
	tArrayString
	tMap
	tAny
)

// schema is the expected-type table for a typed section kind's well-known
// properties. Properties not listed here are permitted but, outside strict
// mode, only draw a Warning if unrecognized.
var schema = map[ast.DeclarationKind]map[string]propType{
	ast.KindProject: {
		"name": tString, "version": tString, "description": tString,
	},
	ast.KindAgent: {
		"model": tString, "temperature": tNumber, "max_tokens": tNumber,
		"timeout": tDuration, "backstory": tString, "capabilities": tMap,
		"tools": tArrayString, "secrets": tArrayString,
	},
	ast.KindWorkflow: {
		"name": tString, "step": tAny, "trigger": tAny, "timeout": tDuration,
	},
	ast.KindTask: {
		"name": tString, "description": tString, "depends_on": tArrayString,
		"agent": tString, "timeout": tDuration, "retry": tMap,
	},
	ast.KindContext: {
		"variables": tMap, "embeddings": tMap, "cache": tMap,
	},
	ast.KindCrew: {
		"agents": tArrayString, "manager": tString, "process": tString,
	},
	ast.KindPipeline: {
		"steps": tAny,
	},
	ast.KindMemory: {
		"backend": tString, "capacity": tNumber, "ttl": tDuration,
	},
}

// Analyzer runs the ordered passes described by the component design over
// one parsed file.
type Analyzer struct {
	file   *ast.File
	strict bool
	diags  []diag.Diagnostic

	byKindName map[ast.DeclarationKind]map[string]*ast.Section
	byName     map[string][]*ast.Section // any kind, for bare @name resolution
	allNames   []string                  // for edit-distance suggestions
}

// New creates an Analyzer. strict turns "unexpected property" from a
// Warning into an Error.
func New(f *ast.File, strict bool) *Analyzer {
	return &Analyzer{
		file:       f,
		strict:     strict,
		byKindName: make(map[ast.DeclarationKind]map[string]*ast.Section),
		byName:     make(map[string][]*ast.Section),
	}
}

// Analyze runs all six passes in order and returns every diagnostic
// collected. Absence of an Error-severity diagnostic is "success".
func (a *Analyzer) Analyze() []diag.Diagnostic {
	a.collectSymbols()
	a.resolveReferences()
	a.checkTypes()
	a.checkConstraints()
	a.detectCycles()
	a.normalizeDurations()
	return a.diags
}

func (a *Analyzer) errorAt(pos ast.Position, code, msg string) {
	a.diags = append(a.diags, diag.Diagnostic{
		Severity: diag.Error,
		Code:     code,
		Location: token.Location{FileID: pos.FileID, Line: pos.Line, Column: pos.Column, ByteOffset: pos.ByteOffset},
		Message:  msg,
	})
}

func (a *Analyzer) errorAtHint(pos ast.Position, code, msg, hint string) {
	a.diags = append(a.diags, diag.Diagnostic{
		Severity: diag.Error,
		Code:     code,
		Location: token.Location{FileID: pos.FileID, Line: pos.Line, Column: pos.Column, ByteOffset: pos.ByteOffset},
		Message:  msg,
		Hint:     hint,
	})
}

func (a *Analyzer) warnAt(pos ast.Position, code, msg string) {
	a.diags = append(a.diags, diag.Diagnostic{
		Severity: diag.Warning,
		Code:     code,
		Location: token.Location{FileID: pos.FileID, Line: pos.Line, Column: pos.Column, ByteOffset: pos.ByteOffset},
		Message:  msg,
	})
}

// --- Pass 1: symbol collection -------------------------------------------

func (a *Analyzer) collectSymbols() {
	for _, d := range a.file.Declarations {
		s, ok := d.(*ast.Section)
		if !ok {
			continue
		}
		if a.byKindName[s.Kind] == nil {
			a.byKindName[s.Kind] = make(map[string]*ast.Section)
		}
		if prev, dup := a.byKindName[s.Kind][s.Name]; dup && s.Name != "" {
			a.errorAtHint(s.Position, "E-SEM-001", "duplicate "+s.Kind.String()+" name "+quote(s.Name),
				"first declared at "+prev.Position.String())
		} else {
			a.byKindName[s.Kind][s.Name] = s
		}
		a.byName[s.Name] = append(a.byName[s.Name], s)
		a.allNames = append(a.allNames, s.Name)
	}
	sort.Strings(a.allNames)
}

// --- Pass 2: reference resolution ----------------------------------------

func (a *Analyzer) resolveReferences() {
	v := &refVisitor{a: a}
	ast.Walk(v, a.file)
}

type refVisitor struct {
	ast.BaseVisitor
	a *Analyzer
}

func (v *refVisitor) VisitSection(s *ast.Section) bool { return true }

func (v *refVisitor) VisitExpression(e ast.Expression) {
	call, ok := e.(*ast.AtOperatorCall)
	if !ok {
		return
	}
	if builtinOperatorFamilies[call.Name] {
		return
	}
	sections, found := v.a.byName[call.Name]
	if !found || len(sections) == 0 {
		v.a.errorAtHint(call.Pos(), "E-SEM-002",
			"unknown reference to section "+quote(call.Name),
			v.a.suggest(call.Name))
		return
	}
	if call.Member == "" {
		return
	}
	for _, sec := range sections {
		if sec.Properties.Has(call.Member) {
			return
		}
	}
	v.a.errorAtHint(call.Pos(), "E-SEM-003",
		"section "+quote(call.Name)+" has no property "+quote(call.Member),
		v.a.suggestProperty(sections[0], call.Member))
}

// suggest returns a "did you mean X?" hint against every known section
// name, using Levenshtein edit distance, or "" when nothing is close.
func (a *Analyzer) suggest(name string) string {
	return suggestFrom(name, a.allNames)
}

func (a *Analyzer) suggestProperty(s *ast.Section, name string) string {
	var candidates []string
	for _, p := range s.Properties.Entries() {
		candidates = append(candidates, p.Key)
	}
	return suggestFrom(name, candidates)
}

func suggestFrom(name string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	if best == "" || bestDist > 3 {
		return ""
	}
	return "did you mean " + quote(best) + "?"
}

func quote(s string) string { return "`" + s + "`" }

// --- Pass 3: type check ----------------------------------------------------

func (a *Analyzer) checkTypes() {
	for _, d := range a.file.Declarations {
		s, ok := d.(*ast.Section)
		if !ok || s.UserKind {
			continue
		}
		expected, known := schema[s.Kind]
		if !known {
			continue
		}
		for _, p := range s.Properties.Entries() {
			want, ok := expected[p.Key]
			if !ok {
				if a.strict {
					a.errorAt(p.Pos, "E-SEM-004", "unexpected property "+quote(p.Key)+" on "+s.Kind.String())
				} else {
					a.warnAt(p.Pos, "W-SEM-004", "unexpected property "+quote(p.Key)+" on "+s.Kind.String())
				}
				continue
			}
			if want == tAny {
				continue
			}
			if !typeMatches(want, p.Value) {
				a.errorAt(p.Pos, "E-SEM-005",
					"property "+quote(p.Key)+" expects "+typeName(want)+", found "+exprTypeName(p.Value))
			}
		}
	}
}

func typeMatches(want propType, e ast.Expression) bool {
	switch want {
	case tString:
		_, ok := e.(*ast.StringLit)
		return ok || isDynamic(e)
	case tNumber:
		_, ok := e.(*ast.NumberLit)
		return ok || isDynamic(e)
	case tBool:
		_, ok := e.(*ast.BoolLit)
		return ok || isDynamic(e)
	case tDuration:
		_, ok := e.(*ast.DurationLit)
		return ok || isDynamic(e)
	case tArrayString:
		arr, ok := e.(*ast.ArrayLit)
		if !ok {
			return isDynamic(e)
		}
		for _, el := range arr.Elements {
			if _, ok := el.(*ast.StringLit); !ok {
				if _, ok := el.(*ast.IdentifierExpr); !ok {
					return false
				}
			}
		}
		return true
	case tMap:
		_, ok := e.(*ast.ObjectLit)
		return ok || isDynamic(e)
	default:
		return true
	}
}

// isDynamic reports whether e's value cannot be known until evaluation
// (an @-operator call, a $variable, or a !marker!), in which case the type
// checker defers rather than rejecting.
func isDynamic(e ast.Expression) bool {
	switch e.(type) {
	case *ast.AtOperatorCall, *ast.VariableExpr, *ast.MarkerExpr:
		return true
	default:
		return false
	}
}

func typeName(t propType) string {
	switch t {
	case tString:
		return "string"
	case tNumber:
		return "number"
	case tBool:
		return "bool"
	case tDuration:
		return "duration"
	case tArrayString:
		return "array of string"
	case tMap:
		return "map"
	default:
		return "any"
	}
}

func exprTypeName(e ast.Expression) string {
	switch e.(type) {
	case *ast.StringLit:
		return "string"
	case *ast.NumberLit:
		return "number"
	case *ast.BoolLit:
		return "bool"
	case *ast.DurationLit:
		return "duration"
	case *ast.ArrayLit:
		return "array"
	case *ast.ObjectLit:
		return "map"
	case *ast.NullLit:
		return "null"
	default:
		return "expression"
	}
}

// --- Pass 4: constraint check ----------------------------------------------

func (a *Analyzer) checkConstraints() {
	for _, d := range a.file.Declarations {
		s, ok := d.(*ast.Section)
		if !ok {
			continue
		}
		if s.Kind == ast.KindAgent {
			if v, ok := s.Properties.Get("temperature"); ok {
				if n, ok := v.(*ast.NumberLit); ok && (n.Value < 0.0 || n.Value > 2.0) {
					a.errorAt(v.Pos(), "E-SEM-010", "temperature must be in [0.0, 2.0]")
				}
			}
			if v, ok := s.Properties.Get("max_tokens"); ok {
				if n, ok := v.(*ast.NumberLit); ok && n.Value <= 0 {
					a.errorAt(v.Pos(), "E-SEM-011", "max_tokens must be > 0")
				}
			}
			if v, ok := s.Properties.Get("timeout"); ok {
				if _, ok := v.(*ast.DurationLit); !ok && !isDynamic(v) {
					a.errorAt(v.Pos(), "E-SEM-012", "timeout must be a Duration")
				}
			}
		}
		a.checkRetryBlock(s.Properties)
	}
}

// checkRetryBlock finds a `retry { ... }` nested block (wherever it
// appears, since retry can be attached to an agent, task, or crew) and
// validates `max_attempts >= 1`.
func (a *Analyzer) checkRetryBlock(props *ast.PropertyList) {
	v, ok := props.Get("retry")
	if !ok {
		return
	}
	obj, ok := v.(*ast.ObjectLit)
	if !ok {
		return
	}
	attempts, ok := obj.Fields.Get("max_attempts")
	if !ok {
		return
	}
	if n, ok := attempts.(*ast.NumberLit); ok && n.Value < 1 {
		a.errorAt(attempts.Pos(), "E-SEM-013", "retry.max_attempts must be >= 1")
	}
}

// --- Pass 5: cycle detection -------------------------------------------------

// detectCycles runs Tarjan's SCC algorithm over the dependency graph formed
// by task/step `depends_on` entries within each workflow, and separately
// validates that every crew's `manager` is a member of its `agents` list.
func (a *Analyzer) detectCycles() {
	for _, d := range a.file.Declarations {
		s, ok := d.(*ast.Section)
		if !ok {
			continue
		}
		switch s.Kind {
		case ast.KindWorkflow:
			a.detectWorkflowCycles(s)
		case ast.KindCrew:
			a.checkCrewManager(s)
			a.checkCrewProcess(s)
		}
	}
	a.detectTaskCycles()
}

// detectTaskCycles covers the alternative shape where dependencies are
// declared directly on top-level Task sections' own `depends_on` property,
// rather than nested inside a workflow's `step` blocks.
func (a *Analyzer) detectTaskCycles() {
	var tasks []*ast.Section
	index := make(map[string]int)
	for _, d := range a.file.Declarations {
		s, ok := d.(*ast.Section)
		if !ok || s.Kind != ast.KindTask {
			continue
		}
		index[s.Name] = len(tasks)
		tasks = append(tasks, s)
	}
	if len(tasks) == 0 {
		return
	}

	tj := newTarjan(len(tasks))
	for i, s := range tasks {
		v, ok := s.Properties.Get("depends_on")
		if !ok {
			continue
		}
		arr, ok := v.(*ast.ArrayLit)
		if !ok {
			continue
		}
		for _, el := range arr.Elements {
			var dep string
			switch n := el.(type) {
			case *ast.StringLit:
				dep = n.Value
			case *ast.IdentifierExpr:
				dep = n.Name
			default:
				continue
			}
			if j, ok := index[dep]; ok {
				tj.addEdge(i, j)
			} else {
				a.errorAt(s.Position, "E-SEM-020", "task "+quote(s.Name)+" depends_on unknown task "+quote(dep))
			}
		}
	}

	for _, scc := range tj.run() {
		if len(scc) > 1 {
			names := make([]string, len(scc))
			for i, idx := range scc {
				names[i] = tasks[idx].Name
			}
			a.errorAt(tasks[scc[0]].Position, "E-SEM-021", "cycle detected among tasks: "+joinNames(names))
		}
	}
}

// workflowSteps extracts the `step` entries of a workflow (a single
// ObjectLit, or an ArrayLit of them when the workflow declares more than
// one), each carrying its own `name` and `depends_on`.
func workflowSteps(s *ast.Section) []*ast.ObjectLit {
	v, ok := s.Properties.Get("step")
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case *ast.ObjectLit:
		return []*ast.ObjectLit{n}
	case *ast.ArrayLit:
		var out []*ast.ObjectLit
		for _, el := range n.Elements {
			if obj, ok := el.(*ast.ObjectLit); ok {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}

func stepName(obj *ast.ObjectLit) string {
	if v, ok := obj.Fields.Get("name"); ok {
		if sl, ok := v.(*ast.StringLit); ok {
			return sl.Value
		}
	}
	return ""
}

func stepDeps(obj *ast.ObjectLit) []string {
	v, ok := obj.Fields.Get("depends_on")
	if !ok {
		return nil
	}
	arr, ok := v.(*ast.ArrayLit)
	if !ok {
		return nil
	}
	var out []string
	for _, el := range arr.Elements {
		switch n := el.(type) {
		case *ast.StringLit:
			out = append(out, n.Value)
		case *ast.IdentifierExpr:
			out = append(out, n.Name)
		}
	}
	return out
}

// detectWorkflowCycles builds the depends_on graph for one workflow's
// steps and runs Tarjan's algorithm; any strongly connected component with
// more than one member (or a single self-referencing member) is a cycle.
func (a *Analyzer) detectWorkflowCycles(s *ast.Section) {
	steps := workflowSteps(s)
	if len(steps) == 0 {
		return
	}

	tj := newTarjan(len(steps))
	index := make(map[string]int, len(steps))
	for i, st := range steps {
		index[stepName(st)] = i
	}
	for i, st := range steps {
		for _, dep := range stepDeps(st) {
			if j, ok := index[dep]; ok {
				tj.addEdge(i, j)
			} else {
				a.errorAt(st.Pos(), "E-SEM-020",
					"step "+quote(stepName(st))+" depends_on unknown step "+quote(dep))
			}
		}
	}

	for _, scc := range tj.run() {
		if len(scc) > 1 {
			names := make([]string, len(scc))
			for i, idx := range scc {
				names[i] = stepName(steps[idx])
			}
			a.errorAt(s.Position, "E-SEM-021", "cycle detected in workflow "+quote(s.Name)+" steps: "+joinNames(names))
		} else if len(scc) == 1 {
			i := scc[0]
			for _, dep := range stepDeps(steps[i]) {
				if dep == stepName(steps[i]) {
					a.errorAt(steps[i].Pos(), "E-SEM-021", "step "+quote(dep)+" depends on itself")
				}
			}
		}
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

// checkCrewManager validates that a crew's `manager` names one of its
// `agents`.
func (a *Analyzer) checkCrewManager(s *ast.Section) {
	managerVal, ok := s.Properties.Get("manager")
	if !ok {
		return
	}
	manager, ok := managerVal.(*ast.StringLit)
	if !ok {
		return
	}
	agentsVal, ok := s.Properties.Get("agents")
	if !ok {
		return
	}
	arr, ok := agentsVal.(*ast.ArrayLit)
	if !ok {
		return
	}
	for _, el := range arr.Elements {
		if sl, ok := el.(*ast.StringLit); ok && sl.Value == manager.Value {
			return
		}
		if id, ok := el.(*ast.IdentifierExpr); ok && id.Name == manager.Value {
			return
		}
	}
	a.errorAt(managerVal.Pos(), "E-SEM-022", "crew manager "+quote(manager.Value)+" is not a member of agents")
}

// crewProcesses is the closed enum crew.process is validated against.
var crewProcesses = map[string]bool{
	"hierarchical": true, "sequential": true, "parallel": true,
}

// checkCrewProcess validates that a crew's `process`, when set, is one of
// the closed enum values hierarchical/sequential/parallel.
func (a *Analyzer) checkCrewProcess(s *ast.Section) {
	v, ok := s.Properties.Get("process")
	if !ok {
		return
	}
	sl, ok := v.(*ast.StringLit)
	if !ok {
		return
	}
	if !crewProcesses[sl.Value] {
		a.errorAt(v.Pos(), "E-SEM-023",
			"crew process "+quote(sl.Value)+" must be one of `hierarchical`, `sequential`, `parallel`")
	}
}

// tarjan is a minimal Tarjan's strongly-connected-components implementation
// over a dense integer-indexed graph, adapted to run per-workflow (graphs
// here are small: tens of steps, not thousands).
type tarjan struct {
	n        int
	adj      [][]int
	index    []int
	lowlink  []int
	onStack  []bool
	stack    []int
	counter  int
	sccs     [][]int
}

func newTarjan(n int) *tarjan {
	return &tarjan{
		n:       n,
		adj:     make([][]int, n),
		index:   makeFilled(n, -1),
		lowlink: make([]int, n),
		onStack: make([]bool, n),
	}
}

func makeFilled(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (t *tarjan) addEdge(from, to int) {
	t.adj[from] = append(t.adj[from], to)
}

func (t *tarjan) run() [][]int {
	for v := 0; v < t.n; v++ {
		if t.index[v] == -1 {
			t.strongConnect(v)
		}
	}
	return t.sccs
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if t.index[w] == -1 {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []int
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}

// --- Pass 6: duration normalization ------------------------------------------

// normalizeDurations is a no-op pass over the AST: ast.DurationLit already
// stores value+unit and exposes Milliseconds() for canonical comparison,
// and the parser never discards the original literal. The pass exists as a
// named step in the analyzer's sequence whose real work happens on demand
// via DurationLit.Milliseconds() rather than rewriting the tree, so the
// original literal always survives for round-tripping.
func (a *Analyzer) normalizeDurations() {}
