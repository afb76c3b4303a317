package helix

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/binary"
	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/operator"
	"github.com/cyber-boost/helix/pkg/value"
)

const sampleSrc = `
agent "researcher" {
    model = "gpt-4"
    retries = 3
}
`

func TestParseAndValidate(t *testing.T) {
	f, diags := Parse([]byte(sampleSrc), "sample.hlx")
	require.Empty(t, diags)
	require.NotNil(t, f)

	// retries is not an agent schema property, so it draws one warning.
	diags = Validate(f)
	require.Len(t, diags, 1)
	assert.Equal(t, "W-SEM-004", diags[0].Code)
}

func TestASTToConfigWithoutEvaluate(t *testing.T) {
	f, diags := Parse([]byte(sampleSrc), "sample.hlx")
	require.Empty(t, diags)

	cfg, err := ASTToConfig(f, false, nil)
	require.NoError(t, err)
	require.Contains(t, cfg.Agents, "researcher")
	assert.Equal(t, value.String("gpt-4"), cfg.Agents["researcher"].Properties["model"])
}

func TestASTToConfigWithEvaluateResolvesSectionReference(t *testing.T) {
	src := `
	agent "researcher" { model = "gpt-4" }
	agent "writer" { mentor = @researcher.model }
	`
	f, diags := Parse([]byte(src), "sample.hlx")
	require.Empty(t, diags)

	ctx := operator.NewContext(nil, operator.MapEnv{}, nil)
	cfg, err := ASTToConfig(f, true, ctx)
	require.NoError(t, err)
	assert.Equal(t, value.String("gpt-4"), cfg.Agents["writer"].Properties["mentor"])
}

func TestASTToConfigEvaluateRequiresContext(t *testing.T) {
	f, _ := Parse([]byte(sampleSrc), "sample.hlx")
	_, err := ASTToConfig(f, true, nil)
	require.Error(t, err)
}

func TestCompileLoadDecompileRoundTrip(t *testing.T) {
	f, diags := Parse([]byte(sampleSrc), "sample.hlx")
	require.Empty(t, diags)

	artifact, err := Compile(f, ir.OptO2, binary.Flags{
		Compression:     binary.CompressZstd,
		ChecksumPresent: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Bytes)

	loaded, err := Load(bytes.NewReader(artifact.Bytes), int64(len(artifact.Bytes)))
	require.NoError(t, err)
	defer loaded.Close()

	sym, ok := loaded.Symbol("researcher")
	require.True(t, ok)
	sec, err := loaded.Section(sym)
	require.NoError(t, err)
	assert.Equal(t, ast.KindAgent, sec.Kind)

	decompiled, err := Decompile(artifact)
	require.NoError(t, err)
	require.Len(t, decompiled.Declarations, 1)
}

func TestEvaluateSingleExpression(t *testing.T) {
	f, diags := Parse([]byte(`agent "a" { x = 1 + 2 }`), "sample.hlx")
	require.Empty(t, diags)
	sec := f.Declarations[0].(*ast.Section)
	expr := sec.Properties.Entries()[0].Value

	ctx := operator.NewContext(nil, operator.MapEnv{}, nil)
	v, err := Evaluate(expr, ctx)
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), v)
}

func TestPrettyPrintRoundTripsParseable(t *testing.T) {
	f, diags := Parse([]byte(sampleSrc), "sample.hlx")
	require.Empty(t, diags)

	out := PrettyPrint(f, ast.PrintStyle{})
	reparsed, diags := Parse([]byte(out), "sample.hlx")
	require.Empty(t, diags)
	require.Len(t, reparsed.Declarations, 1)
}
