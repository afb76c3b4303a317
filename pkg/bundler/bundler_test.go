package bundler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/logging"
	"github.com/cyber-boost/helix/pkg/ir"
)

func TestBundleMergesDisjointFilesInInputOrder(t *testing.T) {
	inputs := []Input{
		{Path: "a.hlx", Source: []byte(`agent "researcher" { model = "gpt-4" }`)},
		{Path: "b.hlx", Source: []byte(`agent "writer" { mentor = @researcher }`)},
	}
	prog, fileDiags, err := Bundle(context.Background(), inputs, Options{})
	require.NoError(t, err)
	assert.Empty(t, fileDiags)
	require.Len(t, prog.Decls, 2)
	assert.Equal(t, "researcher", prog.Strings.Get(prog.Decls[0].NameID))
	assert.Equal(t, "writer", prog.Strings.Get(prog.Decls[1].NameID))
}

func TestBundleDedupesSharedStringsAcrossFiles(t *testing.T) {
	inputs := []Input{
		{Path: "a.hlx", Source: []byte(`agent "a" { model = "gpt-4" }`)},
		{Path: "b.hlx", Source: []byte(`agent "b" { model = "gpt-4" }`)},
	}
	prog, _, err := Bundle(context.Background(), inputs, Options{Concurrency: 1})
	require.NoError(t, err)

	modelA := propByKeyName(t, prog, 0, "model")
	modelB := propByKeyName(t, prog, 1, "model")
	assert.Equal(t, modelA.StrID, modelB.StrID)
	assert.Equal(t, "gpt-4", prog.Strings.Get(modelA.StrID))
}

func TestBundleResolvesCrossFileSectionReference(t *testing.T) {
	inputs := []Input{
		{Path: "a.hlx", Source: []byte(`agent "researcher" { model = "gpt-4" }`)},
		{Path: "b.hlx", Source: []byte(`agent "writer" { mentor = @researcher }`)},
	}
	prog, _, err := Bundle(context.Background(), inputs, Options{})
	require.NoError(t, err)

	mentor := propByKeyName(t, prog, 1, "mentor")
	assert.Equal(t, "researcher", prog.Strings.Get(mentor.NameID))
}

func TestBundleRejectsDuplicateNameAcrossFiles(t *testing.T) {
	inputs := []Input{
		{Path: "a.hlx", Source: []byte(`agent "dup" { model = "gpt-4" }`)},
		{Path: "b.hlx", Source: []byte(`agent "dup" { model = "gpt-3.5" }`)},
	}
	_, _, err := Bundle(context.Background(), inputs, Options{})
	require.Error(t, err)
}

func TestBundleSurfacesParseDiagnosticsWithoutFailingOtherFiles(t *testing.T) {
	inputs := []Input{
		{Path: "good.hlx", Source: []byte(`agent "a" { model = "gpt-4" }`)},
		{Path: "bad.hlx", Source: []byte(`agent "b" { model = `)},
	}
	_, fileDiags, err := Bundle(context.Background(), inputs, Options{})
	require.NoError(t, err)
	require.Len(t, fileDiags, 1)
	assert.Equal(t, "bad.hlx", fileDiags[0].Path)
}

func TestBundleLogsPerFileDiagnostics(t *testing.T) {
	inputs := []Input{
		{Path: "good.hlx", Source: []byte(`agent "a" { model = "gpt-4" }`)},
		{Path: "bad.hlx", Source: []byte(`agent "b" { model = `)},
	}
	log := &recordingLogger{}
	_, fileDiags, err := Bundle(context.Background(), inputs, Options{Logger: log})
	require.NoError(t, err)
	require.Len(t, fileDiags, 1)
	assert.Equal(t, 1, log.warnCalls)
}

type recordingLogger struct {
	logging.Logger
	warnCalls  int
	errorCalls int
}

func (l *recordingLogger) Warn(msg string, fields ...logging.LogField)  { l.warnCalls++ }
func (l *recordingLogger) Error(msg string, fields ...logging.LogField) { l.errorCalls++ }

func propByKeyName(t *testing.T, prog *ir.Program, declIdx int, key string) ir.Expr {
	t.Helper()
	for _, p := range prog.Decls[declIdx].Properties {
		if prog.Strings.Get(p.KeyID) == key {
			return p.Value
		}
	}
	t.Fatalf("no property %q in decl %d", key, declIdx)
	return ir.Expr{}
}
