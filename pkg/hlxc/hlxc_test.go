package hlxc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/parser"
)

func lowerSrc(t *testing.T, src string) *ir.Program {
	t.Helper()
	f, diags := parser.ParseSource([]byte(src), "test.hlx")
	require.Empty(t, diags)
	return ir.Lower(f)
}

func TestToRowsFlattensDeclarationsAndProperties(t *testing.T) {
	prog := lowerSrc(t, `
	agent "researcher" { model = "gpt-4" retries = 3 }
	agent "writer" { mentor = @researcher }
	`)
	rows := ToRows(prog)
	require.Len(t, rows, 3)
	assert.Equal(t, "researcher", rows[0].DeclName)
	assert.Equal(t, "model", rows[0].Key)
	assert.Equal(t, `"gpt-4"`, rows[0].ValueText)
	assert.Equal(t, uint8(ir.EkCall), rows[2].ValueTag)
}

func TestWriteReadRoundTrip(t *testing.T) {
	prog := lowerSrc(t, `agent "a" { model = "gpt-4" enabled = true retries = 3 }`)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, prog))

	h, rows, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, h.Version)
	assert.Equal(t, uint32(3), h.PreviewRowCount)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].DeclName)
	assert.Equal(t, "agent", rows[0].DeclKind)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, _, err := Read(bytes.NewReader([]byte("nope")))
	require.Error(t, err)
}
