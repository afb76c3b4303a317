package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/config"
	"github.com/cyber-boost/helix/pkg/parser"
	"github.com/cyber-boost/helix/pkg/value"
)

// propExpr parses `agent "a" { x = <exprSrc> }` and returns the parsed
// expression bound to x, for exercising the evaluator against one
// expression at a time.
func propExpr(t *testing.T, exprSrc string) ast.Expression {
	t.Helper()
	src := `agent "a" { x = ` + exprSrc + ` }`
	f, diags := parser.ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)
	sec := f.Declarations[0].(*ast.Section)
	v, ok := sec.Properties.Get("x")
	require.True(t, ok)
	return v
}

func newEval(env EnvSource, vars map[string]value.Value) *Evaluator {
	return New(NewContext(vars, env, nil), nil, nil)
}

func TestEnvOperatorResolvesFromContextThenEnv(t *testing.T) {
	e := newEval(MapEnv{"API_KEY": "from-env"}, nil)
	v, err := e.Eval(propExpr(t, `@env["API_KEY"]`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", v.AsString())
}

func TestEnvOperatorContextOverridesEnv(t *testing.T) {
	e := newEval(MapEnv{"API_KEY": "from-env"}, map[string]value.Value{"API_KEY": value.String("from-context")})
	v, err := e.Eval(propExpr(t, `@env["API_KEY"]`))
	require.NoError(t, err)
	assert.Equal(t, "from-context", v.AsString())
}

func TestEnvOperatorMissingWithNoDefaultIsError(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	_, err := e.Eval(propExpr(t, `@env["MISSING"]`))
	require.Error(t, err)
	assert.Equal(t, "E_ENV_MISSING", err.(*EvalError).Code)
}

func TestEnvOperatorCallFormWithDefault(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `@env("MISSING", "fallback")`))
	require.NoError(t, err)
	assert.Equal(t, "fallback", v.AsString())
}

func TestVarSetThenGet(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	_, err := e.Eval(propExpr(t, `@var.set("count", 1)`))
	require.NoError(t, err)
	v, err := e.Eval(propExpr(t, `@var.get("count")`))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.AsNumber())
}

func TestMathOperators(t *testing.T) {
	e := newEval(MapEnv{}, nil)

	v, err := e.Eval(propExpr(t, `@math.add(1, 2, 3)`))
	require.NoError(t, err)
	assert.Equal(t, float64(6), v.AsNumber())

	v, err = e.Eval(propExpr(t, `@math.max(4, 9, 2)`))
	require.NoError(t, err)
	assert.Equal(t, float64(9), v.AsNumber())

	_, err = e.Eval(propExpr(t, `@math.div(1, 0)`))
	require.Error(t, err)
	assert.Equal(t, "E_DIV_BY_ZERO", err.(*EvalError).Code)
}

func TestStringOperators(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `@string.uppercase("abc")`))
	require.NoError(t, err)
	assert.Equal(t, "ABC", v.AsString())
}

func TestArrayMapFilterAt(t *testing.T) {
	e := newEval(MapEnv{}, nil)

	mapped, err := e.Eval(propExpr(t, `@array.map([{id=1},{id=2}], "id")`))
	require.NoError(t, err)
	require.Equal(t, 2, mapped.Len())
	assert.Equal(t, float64(1), mapped.AsArray()[0].AsNumber())

	filtered, err := e.Eval(propExpr(t, `@array.filter([{status="done"},{status="open"}], "status", "done")`))
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Len())

	_, err = e.Eval(propExpr(t, `@array.at([1,2,3], 5)`))
	require.Error(t, err)
	assert.Equal(t, "E_ARRAY_INDEX_RANGE", err.(*EvalError).Code)
}

func TestJSONParseStringifyRoundTrip(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	parsed, err := e.Eval(propExpr(t, `@json.parse("{\"a\":1}")`))
	require.NoError(t, err)
	a, ok := parsed.Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(1), a.AsNumber())

	str, err := e.Eval(propExpr(t, `@json.stringify({a=1})`))
	require.NoError(t, err)
	assert.Contains(t, str.AsString(), `"a":1`)
}

func TestCryptoHashSHA256(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `@crypto.hash("sha256", "abc")`))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", v.AsString())
}

func TestMemoryStoreThenLoad(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	_, err := e.Eval(propExpr(t, `@memory.store("k", "v")`))
	require.NoError(t, err)
	v, err := e.Eval(propExpr(t, `@memory.load("k")`))
	require.NoError(t, err)
	assert.Equal(t, "v", v.AsString())
}

func TestMemoryLoadMissingIsError(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	_, err := e.Eval(propExpr(t, `@memory.load("ghost")`))
	require.Error(t, err)
	assert.Equal(t, "E_MEMORY_MISSING", err.(*EvalError).Code)
}

func TestTransformConversationalTemplate(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `@transform("conversational", {role="user", content="hi"})`))
	require.NoError(t, err)
	msgs, ok := v.Get("messages")
	require.True(t, ok)
	require.Equal(t, 1, msgs.Len())
	role, _ := msgs.AsArray()[0].Get("role")
	assert.Equal(t, "user", role.AsString())
}

func TestBinaryStringConcatenation(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `"count: " + 3`))
	require.NoError(t, err)
	assert.Equal(t, "count: 3", v.AsString())
}

func TestBinaryDurationPlusDuration(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `30s + 1m`))
	require.NoError(t, err)
	assert.Equal(t, int64(90000), v.AsDurationMs())
}

func TestBinaryDurationPlusNumberIsError(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	_, err := e.Eval(propExpr(t, `30s + 5`))
	require.Error(t, err)
	assert.Equal(t, "E_DURATION_UNIT_REQUIRED", err.(*EvalError).Code)
}

func TestUnaryNegateAndNot(t *testing.T) {
	e := newEval(MapEnv{}, nil)
	v, err := e.Eval(propExpr(t, `-5`))
	require.NoError(t, err)
	assert.Equal(t, float64(-5), v.AsNumber())

	v, err = e.Eval(propExpr(t, `!true`))
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}

func TestSectionReferenceResolvesViaConfiguration(t *testing.T) {
	src := `
	agent "researcher" { model = "gpt-4" }
	agent "writer" { mentor = @researcher }
	`
	f, diags := parser.ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)

	raw, err := config.FromAST(f, nil)
	require.NoError(t, err)

	e := New(NewContext(nil, MapEnv{}, nil), nil, raw)

	writer := f.Declarations[1].(*ast.Section)
	mentorExpr, _ := writer.Properties.Get("mentor")
	v, err := e.Eval(mentorExpr)
	require.NoError(t, err)
	model, ok := v.Get("model")
	require.True(t, ok)
	assert.Equal(t, "gpt-4", model.AsString())
}

func TestSectionReferenceUnknownIsError(t *testing.T) {
	e := New(NewContext(nil, MapEnv{}, nil), nil, nil)
	_, err := e.Eval(propExpr(t, `@nonexistent`))
	require.Error(t, err)
	assert.Equal(t, "E_SECTION_UNRESOLVED", err.(*EvalError).Code)
}

func TestOperatorCallResultIsCachedPerEvaluation(t *testing.T) {
	ctx := NewContext(nil, MapEnv{}, nil)
	e := New(ctx, nil, nil)
	ctx.Set("n", value.Number(1))
	_, err := e.Eval(propExpr(t, `@var.get("n")`))
	require.NoError(t, err)
	ctx.Set("n", value.Number(2))
	v, err := e.Eval(propExpr(t, `@var.get("n")`))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.AsNumber(), "repeated identical call within one evaluation should hit the cache, not re-read the mutated variable")
}
