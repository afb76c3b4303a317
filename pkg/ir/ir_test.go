package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/parser"
)

func lower(t *testing.T, src string) *Program {
	t.Helper()
	f, diags := parser.ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)
	return Lower(f)
}

func propByKey(t *testing.T, prog *Program, declIdx int, key string) Expr {
	t.Helper()
	for _, p := range prog.Decls[declIdx].Properties {
		if prog.Strings.Get(p.KeyID) == key {
			return p.Value
		}
	}
	t.Fatalf("no property %q in decl %d", key, declIdx)
	return Expr{}
}

func TestLowerPreservesDeclarationAndPropertyOrder(t *testing.T) {
	prog := lower(t, `
	agent "a" { model = "gpt-4" }
	agent "b" { model = "gpt-3.5" }
	`)
	require.Len(t, prog.Decls, 2)
	assert.Equal(t, "a", prog.Strings.Get(prog.Decls[0].NameID))
	assert.Equal(t, "b", prog.Strings.Get(prog.Decls[1].NameID))
}

func TestStringPoolInternsRepeatedStringsOnce(t *testing.T) {
	prog := lower(t, `
	agent "a" { model = "gpt-4" }
	agent "b" { model = "gpt-4" }
	`)
	modelA := propByKey(t, prog, 0, "model")
	modelB := propByKey(t, prog, 1, "model")
	assert.Equal(t, modelA.StrID, modelB.StrID)
}

func TestO1ConstantFoldsNumericBinaryOp(t *testing.T) {
	prog := lower(t, `agent "a" { max_tokens = 1 + 2 }`)
	prog = Optimize(prog, 1, nil)
	v := propByKey(t, prog, 0, "max_tokens")
	require.Equal(t, EkNumber, v.Kind)
	assert.Equal(t, float64(3), v.NumV)
}

func TestO1NeverFoldsThroughOpaqueCall(t *testing.T) {
	prog := lower(t, `agent "a" { key = @env["X"] }`)
	prog = Optimize(prog, 1, nil)
	v := propByKey(t, prog, 0, "key")
	require.Equal(t, EkCall, v.Kind)
	assert.True(t, v.Opaque)
}

func TestO1DeadCodeEliminationDropsUnreachableSection(t *testing.T) {
	prog := lower(t, `
	agent "used" { model = "gpt-4" }
	agent "unused" { model = "gpt-3.5" }
	`)
	prog = Optimize(prog, 1, []string{"used"})
	assert.Len(t, prog.Decls, 1)
	assert.Equal(t, "used", prog.Strings.Get(prog.Decls[0].NameID))
}

func TestO1WithNoEntrypointsKeepsEverything(t *testing.T) {
	prog := lower(t, `
	agent "a" { model = "gpt-4" }
	agent "b" { model = "gpt-3.5" }
	`)
	prog = Optimize(prog, 1, nil)
	assert.Len(t, prog.Decls, 2)
}

func TestO1DeadCodeEliminationKeepsTransitivelyReachableSection(t *testing.T) {
	prog := lower(t, `
	agent "root" { mentor = @helper }
	agent "helper" { model = "gpt-4" }
	agent "unused" { model = "gpt-3.5" }
	`)
	prog = Optimize(prog, 1, []string{"root"})
	assert.Len(t, prog.Decls, 2)
}

func TestO2InlinesSingleUseIdentifierAlias(t *testing.T) {
	prog := lower(t, `agent "a" { base_model = "gpt-4" model = base_model }`)
	prog = Optimize(prog, 2, nil)
	v := propByKey(t, prog, 0, "model")
	require.Equal(t, EkString, v.Kind)
	assert.Equal(t, "gpt-4", prog.Strings.Get(v.StrID))
}

func TestO3FlattensLiteralSectionPropertyReference(t *testing.T) {
	prog := lower(t, `
	agent "researcher" { model = "gpt-4" }
	agent "writer" { base_model = @researcher.model }
	`)
	prog = Optimize(prog, 3, nil)
	v := propByKey(t, prog, 1, "base_model")
	require.Equal(t, EkString, v.Kind)
	assert.Equal(t, "gpt-4", prog.Strings.Get(v.StrID))
}

func TestO3PacksNestedObjectFieldsByKeyID(t *testing.T) {
	// "alpha" is interned as a top-level property key before the nested
	// object's "zeta" key, so the object's two fields start in descending
	// KeyID order (zeta, alpha); packLayout must sort them ascending.
	prog := lower(t, `agent "a" { alpha = 9 meta = { zeta = 1, alpha = 2 } }`)
	prog = Optimize(prog, 3, nil)
	v := propByKey(t, prog, 0, "meta")
	require.Equal(t, EkObject, v.Kind)
	require.Len(t, v.Fields, 2)
	assert.Less(t, v.Fields[0].KeyID, v.Fields[1].KeyID)
	assert.Equal(t, "alpha", prog.Strings.Get(v.Fields[0].KeyID))
}

func TestExprStringRoundTripsOperatorCall(t *testing.T) {
	prog := lower(t, `agent "a" { key = @env["X"] }`)
	v := propByKey(t, prog, 0, "key")
	assert.Contains(t, v.String(prog.Strings), "@env")
}
