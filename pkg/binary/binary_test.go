package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/parser"
	"github.com/cyber-boost/helix/pkg/token"
)

func lowerSrc(t *testing.T, src string) *ir.Program {
	t.Helper()
	f, diags := parser.ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)
	return ir.Lower(f)
}

func TestFlagsRoundTrip(t *testing.T) {
	f := Flags{Compression: CompressZstd, ChecksumPresent: true, OptLevel: 2}
	got, err := DecodeFlags(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version: FormatVersion,
		Flags:   Flags{Compression: CompressLZ4, ChecksumPresent: true, OptLevel: 1},
		TotalLength: 123, StringPoolOff: 1, SymbolTableOff: 2, SectionsOff: 3, CRC32: 0xDEADBEEF,
	}
	got, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestCompileLoadRoundTripNoCompression(t *testing.T) {
	prog := lowerSrc(t, `
	agent "researcher" { model = "gpt-4" temperature = 0.7 }
	agent "writer" { mentor = @researcher depends_on = ["researcher"] }
	`)
	out, err := Compile(prog, CompileOptions{Compression: CompressNone, Checksum: true})
	require.NoError(t, err)

	l, err := Load(out)
	require.NoError(t, err)

	sym, ok := l.Symbol("researcher")
	require.True(t, ok)
	sec, err := l.Section(sym)
	require.NoError(t, err)
	require.Len(t, sec.Properties, 2)
	assert.Equal(t, "model", l.String(sec.Properties[0].KeyID))
	assert.Equal(t, "gpt-4", l.String(sec.Properties[0].Value.StrID))
}

func TestCompileLoadRoundTripEachCompression(t *testing.T) {
	prog := lowerSrc(t, `agent "a" { model = "gpt-4" tags = ["x", "y"] cfg = { retries = 3 } }`)
	for _, kind := range []CompressionType{CompressNone, CompressLZ4, CompressGzip, CompressZstd} {
		out, err := Compile(prog, CompileOptions{Compression: kind, Checksum: true})
		require.NoError(t, err)

		l, err := Load(out)
		require.NoError(t, err)
		sym, ok := l.Symbol("a")
		require.True(t, ok)
		sec, err := l.Section(sym)
		require.NoError(t, err)
		require.Len(t, sec.Properties, 3)
	}
}

func TestLoadDetectsCorruption(t *testing.T) {
	prog := lowerSrc(t, `agent "a" { model = "gpt-4" }`)
	out, err := Compile(prog, CompileOptions{Compression: CompressNone, Checksum: true})
	require.NoError(t, err)

	corrupt := make([]byte, len(out))
	copy(corrupt, out)
	corrupt[len(corrupt)-1] ^= 0xFF

	_, err = Load(corrupt)
	require.Error(t, err)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load([]byte("not a helix binary at all, padded out to header size......"))
	require.Error(t, err)
}

func TestSectionIteratorCoversAllDeclarationsIncludingAnonymous(t *testing.T) {
	prog := lowerSrc(t, `
	memory { backend = "redis" }
	agent "a" { model = "gpt-4" }
	`)
	out, err := Compile(prog, CompileOptions{Compression: CompressNone})
	require.NoError(t, err)
	l, err := Load(out)
	require.NoError(t, err)

	it := l.Sections()
	count := 0
	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestDecompileReconstructsProperties(t *testing.T) {
	prog := lowerSrc(t, `agent "a" { model = "gpt-4" retries = 3 enabled = true }`)
	out, err := Compile(prog, CompileOptions{Compression: CompressZstd, Checksum: true})
	require.NoError(t, err)

	l, err := Load(out)
	require.NoError(t, err)
	f, err := l.Decompile()
	require.NoError(t, err)
	require.Len(t, f.Declarations, 1)

	sec := f.Declarations[0].(*ast.Section)
	assert.Equal(t, "a", sec.Name)
	v, ok := sec.Properties.Get("model")
	require.True(t, ok)
	assert.Equal(t, "gpt-4", v.(*ast.StringLit).Value)
}

func TestDecompileNestedExpressions(t *testing.T) {
	prog := lowerSrc(t, `agent "a" { base_model = @researcher.model retries = 1 + 2 timeout = 30s }`)
	out, err := Compile(prog, CompileOptions{Compression: CompressNone})
	require.NoError(t, err)
	l, err := Load(out)
	require.NoError(t, err)
	f, err := l.Decompile()
	require.NoError(t, err)

	sec := f.Declarations[0].(*ast.Section)
	baseModel, ok := sec.Properties.Get("base_model")
	require.True(t, ok)
	call, ok := baseModel.(*ast.AtOperatorCall)
	require.True(t, ok)
	assert.Equal(t, "researcher", call.Name)
	assert.Equal(t, "model", call.Member)

	timeout, ok := sec.Properties.Get("timeout")
	require.True(t, ok)
	dur, ok := timeout.(*ast.DurationLit)
	require.True(t, ok)
	assert.Equal(t, int64(30000), dur.Milliseconds())
}

func TestDecompilePreservesOriginalDurationUnit(t *testing.T) {
	prog := lowerSrc(t, `workflow "w" { timeout = 30m }`)
	out, err := Compile(prog, CompileOptions{Compression: CompressNone})
	require.NoError(t, err)
	l, err := Load(out)
	require.NoError(t, err)
	f, err := l.Decompile()
	require.NoError(t, err)

	sec := f.Declarations[0].(*ast.Section)
	timeout, ok := sec.Properties.Get("timeout")
	require.True(t, ok)
	dur, ok := timeout.(*ast.DurationLit)
	require.True(t, ok)
	assert.Equal(t, token.UnitMin, dur.Unit)
	assert.Equal(t, float64(30), dur.Value)
	assert.Equal(t, int64(30*60*1000), dur.Milliseconds())
}
