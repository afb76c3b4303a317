package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/diag"
)

func TestParseBasicAgent(t *testing.T) {
	src := `agent "bot" {
		model = "gpt-4"
		temperature = 0.7
	}`

	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)
	require.Len(t, f.Declarations, 1)

	s := f.Declarations[0].(*ast.Section)
	assert.Equal(t, ast.KindAgent, s.Kind)
	assert.Equal(t, "bot", s.Name)

	model, ok := s.Properties.Get("model")
	require.True(t, ok)
	assert.Equal(t, `"gpt-4"`, model.String())

	temp, ok := s.Properties.Get("temperature")
	require.True(t, ok)
	num, ok := temp.(*ast.NumberLit)
	require.True(t, ok)
	assert.Equal(t, 0.7, num.Value)
}

func TestParseDurationProperty(t *testing.T) {
	src := `task "t" { timeout = 30m }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	v, ok := s.Properties.Get("timeout")
	require.True(t, ok)
	dur, ok := v.(*ast.DurationLit)
	require.True(t, ok)
	assert.Equal(t, int64(30*60*1000), dur.Milliseconds())
}

func TestParseBlockDelimiterEquivalence(t *testing.T) {
	sources := []string{
		`agent "a" { model = "x" }`,
		`agent "a" < model = "x" >`,
		`agent "a" [ model = "x" ]`,
		`agent "a": model = "x" ;`,
	}
	for _, src := range sources {
		f, diags := ParseSource([]byte(src), "test.hlx")
		require.Emptyf(t, diags, "source %q produced diagnostics: %v", src, diags)
		require.Len(t, f.Declarations, 1)
		s := f.Declarations[0].(*ast.Section)
		v, ok := s.Properties.Get("model")
		require.True(t, ok)
		assert.Equal(t, `"x"`, v.String())
	}
}

func TestParseUserDefinedSection(t *testing.T) {
	src := `~custom_thing "widget" { color = "blue" }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	assert.True(t, s.UserKind)
	assert.Equal(t, "custom_thing", s.Leader)
	assert.Equal(t, "widget", s.Name)
}

func TestParseNestedBlockProperty(t *testing.T) {
	src := `agent "bot" {
		capabilities {
			coding = true
			reasoning = false
		}
	}`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	caps, ok := s.Properties.Get("capabilities")
	require.True(t, ok)
	obj, ok := caps.(*ast.ObjectLit)
	require.True(t, ok)

	coding, ok := obj.Fields.Get("coding")
	require.True(t, ok)
	b, ok := coding.(*ast.BoolLit)
	require.True(t, ok)
	assert.True(t, b.Value)
}

func TestParseRepeatedNamedNestedBlocksPromoteToArray(t *testing.T) {
	src := `workflow "w" {
		step "fetch" { action = "http_get" }
		step "process" { depends_on = ["fetch"] }
	}`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	stepsVal, ok := s.Properties.Get("step")
	require.True(t, ok)
	arr, ok := stepsVal.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, arr.Elements, 2)

	first := arr.Elements[0].(*ast.ObjectLit)
	name, ok := first.Fields.Get("name")
	require.True(t, ok)
	assert.Equal(t, `"fetch"`, name.String())

	second := arr.Elements[1].(*ast.ObjectLit)
	deps, ok := second.Fields.Get("depends_on")
	require.True(t, ok)
	depsArr, ok := deps.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, depsArr.Elements, 1)
	assert.Equal(t, `"fetch"`, depsArr.Elements[0].String())
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	src := `workflow "w" {
		tags = ["a", "b", "c"]
		meta = { owner = "team", retries = 3 }
	}`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)

	tags, ok := s.Properties.Get("tags")
	require.True(t, ok)
	arr, ok := tags.(*ast.ArrayLit)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 3)

	meta, ok := s.Properties.Get("meta")
	require.True(t, ok)
	obj, ok := meta.(*ast.ObjectLit)
	require.True(t, ok)
	assert.Equal(t, 2, obj.Fields.Len())
}

func TestParseAtOperatorCallForms(t *testing.T) {
	cases := []struct {
		src        string
		name       string
		member     string
		positional int
		named      int
	}{
		{`agent "a" { key = @env }`, "env", "", 0, 0},
		{`agent "a" { key = @env[name] }`, "env", "", 1, 0},
		{`agent "a" { key = @env["API_KEY"] }`, "env", "", 1, 0},
		{`agent "a" { key = @math.add(1, 2, round=true) }`, "math", "add", 2, 1},
	}
	for _, tc := range cases {
		f, diags := ParseSource([]byte(tc.src), "test.hlx")
		require.Emptyf(t, diags, "source %q produced diagnostics: %v", tc.src, diags)
		s := f.Declarations[0].(*ast.Section)
		v, ok := s.Properties.Get("key")
		require.True(t, ok)
		call, ok := v.(*ast.AtOperatorCall)
		require.True(t, ok)
		assert.Equal(t, tc.name, call.Name)
		assert.Equal(t, tc.member, call.Member)
		assert.Len(t, call.Positional, tc.positional)
		assert.Equal(t, tc.named, call.Named.Len())
	}
}

func TestParseEnvFallbackCallForm(t *testing.T) {
	src := `agent "a" { key = @env("API_KEY", "default-value") }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	v, _ := s.Properties.Get("key")
	call := v.(*ast.AtOperatorCall)
	require.Len(t, call.Positional, 2)
	assert.Equal(t, `"API_KEY"`, call.Positional[0].String())
}

func TestParsePipelineExpression(t *testing.T) {
	src := `pipeline "p" {
		steps = fetch -> transform -> store
	}`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	v, ok := s.Properties.Get("steps")
	require.True(t, ok)
	pipe, ok := v.(*ast.PipelineExpr)
	require.True(t, ok)
	assert.Equal(t, []string{"fetch", "transform", "store"}, pipe.Stages)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	src := `agent "a" { score = 1 + 2 * 3 }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	v, _ := s.Properties.Get("score")
	bin := v.(*ast.BinaryExpr)
	assert.Equal(t, ast.OpAdd, bin.Operator)

	right, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, right.Operator)
}

func TestParseStringConcatenation(t *testing.T) {
	src := `agent "a" { greeting = "hello " + "world" }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	v, _ := s.Properties.Get("greeting")
	bin := v.(*ast.BinaryExpr)
	assert.Equal(t, ast.OpAdd, bin.Operator)
}

func TestParseUnaryNegationAndNot(t *testing.T) {
	src := `agent "a" { x = -5 enabled = !flag }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	x, _ := s.Properties.Get("x")
	neg, ok := x.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNegate, neg.Operator)

	enabled, _ := s.Properties.Get("enabled")
	not, ok := enabled.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNot, not.Operator)
}

func TestParseVariableAndMarkerExpressions(t *testing.T) {
	src := `agent "a" { x = $SOME_VAR y = !LAZY_VAR! }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	s := f.Declarations[0].(*ast.Section)
	x, _ := s.Properties.Get("x")
	v, ok := x.(*ast.VariableExpr)
	require.True(t, ok)
	assert.Equal(t, "SOME_VAR", v.Name)

	y, _ := s.Properties.Get("y")
	m, ok := y.(*ast.MarkerExpr)
	require.True(t, ok)
	assert.Equal(t, "LAZY_VAR", m.Name)
}

func TestParseDuplicatePropertyIsErrorButRecovers(t *testing.T) {
	src := `agent "a" { model = "x" model = "y" }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.NotEmpty(t, diags)
	assert.True(t, diag.HasErrors(diags))
	// Parsing still produces the declaration with the last value kept.
	require.Len(t, f.Declarations, 1)
	s := f.Declarations[0].(*ast.Section)
	v, ok := s.Properties.Get("model")
	require.True(t, ok)
	assert.Equal(t, `"y"`, v.String())
}

func TestParseMissingBlockOpenerRecoversToNextDeclaration(t *testing.T) {
	src := `agent "broken"
	agent "ok" { model = "x" }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.NotEmpty(t, diags)
	assert.True(t, diag.HasErrors(diags))

	var ok bool
	for _, d := range f.Declarations {
		if s, isSec := d.(*ast.Section); isSec && s.Name == "ok" {
			ok = true
		}
	}
	assert.True(t, ok, "parser should recover and still parse the following declaration")
}

func TestParseUnterminatedBlockRecovers(t *testing.T) {
	src := `agent "a" { model = "x"
	agent "b" { model = "y" }`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.NotEmpty(t, diags)
	assert.True(t, diag.HasErrors(diags))
	// Best-effort partial AST: at least one declaration is recovered.
	assert.NotEmpty(t, f.Declarations)
}

func TestParseMultipleTopLevelDeclarations(t *testing.T) {
	src := `
	project "demo" { version = "1.0" }

	agent "researcher" {
		model = "gpt-4"
	}

	workflow "main" {
		name = "main"
	}
	`
	f, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)
	require.Len(t, f.Declarations, 3)

	assert.Equal(t, ast.KindProject, f.Declarations[0].DeclKind())
	assert.Equal(t, ast.KindAgent, f.Declarations[1].DeclKind())
	assert.Equal(t, ast.KindWorkflow, f.Declarations[2].DeclKind())
}

func TestPrettyPrintRoundTripsThroughReparse(t *testing.T) {
	src := `agent "bot" {
		model = "gpt-4"
		temperature = 0.7
	}`
	f1, diags := ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	printed := ast.PrettyPrint(f1, ast.PrintStyle{})
	f2, diags2 := ParseSource([]byte(printed), "test.hlx")
	require.Empty(t, diags2)

	printedAgain := ast.PrettyPrint(f2, ast.PrintStyle{})
	assert.Equal(t, printed, printedAgain)
}
