package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/helix/pkg/token"
)

func TestNextTokenBasicAgent(t *testing.T) {
	src := `agent "bot" { model = "gpt-4" temperature = 0.7 }`

	want := []token.Kind{
		token.Keyword, token.String, token.LBrace,
		token.Identifier, token.Assign, token.String,
		token.Identifier, token.Assign, token.Number,
		token.RBrace, token.EOF,
	}

	toks := Tokenize([]byte(src), "test.hlx")
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d (%q)", i, toks[i].Text)
	}
}

func TestDurationVsNumberIdentifier(t *testing.T) {
	toks := Tokenize([]byte("30m 30 m"), "test.hlx")
	require.GreaterOrEqual(t, len(toks), 4)
	assert.Equal(t, token.Duration, toks[0].Kind)
	assert.Equal(t, float64(30), toks[0].DurationVal)
	assert.Equal(t, token.UnitMin, toks[0].DurationUnt)

	assert.Equal(t, token.Number, toks[1].Kind)
	assert.Equal(t, token.Identifier, toks[2].Kind)
}

func TestVariableAndMarkerForms(t *testing.T) {
	toks := Tokenize([]byte("$NAME !OTHER! plain!"), "test.hlx")
	assert.Equal(t, token.Variable, toks[0].Kind)
	assert.Equal(t, "NAME", toks[0].StringVal)

	assert.Equal(t, token.Marker, toks[1].Kind)
	assert.Equal(t, "OTHER", toks[1].StringVal)

	// "plain!" is NAME immediately followed by '!' with no leading bang:
	// the lexer only recognizes the !NAME! bracketed form, so this is an
	// identifier followed by a bang.
	assert.Equal(t, token.Identifier, toks[2].Kind)
	assert.Equal(t, token.Bang, toks[3].Kind)
}

func TestReferenceToken(t *testing.T) {
	toks := Tokenize([]byte(`@env["API_KEY"]`), "test.hlx")
	assert.Equal(t, token.Reference, toks[0].Kind)
	assert.Equal(t, "env", toks[0].StringVal)
	assert.Equal(t, token.LBracket, toks[1].Kind)
	assert.Equal(t, token.String, toks[2].Kind)
	assert.Equal(t, "API_KEY", toks[2].StringVal)
	assert.Equal(t, token.RBracket, toks[3].Kind)
}

func TestBlockDelimiterEquivalence(t *testing.T) {
	sources := []string{
		`s "n" {a=1}`,
		`s "n" <a=1>`,
		`s "n" [a=1]`,
		`s "n": a=1 ;`,
	}
	for _, src := range sources {
		toks := Tokenize([]byte(src), "test.hlx")
		require.True(t, toks[2].IsBlockOpener(), "source %q: expected opener token, got %s", src, toks[2].Kind)
	}
}

func TestCommentsAndWhitespace(t *testing.T) {
	src := "# a leading comment\nagent \"bot\" { } # trailing\n"
	toks := Tokenize([]byte(src), "test.hlx")
	require.NotEmpty(t, toks)
	assert.Equal(t, token.Keyword, toks[0].Kind)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}

func TestStringEscapesAndUnterminated(t *testing.T) {
	toks := Tokenize([]byte(`"a\nb\t\"c\""`), "test.hlx")
	require.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "a\nb\t\"c\"", toks[0].StringVal)

	bad := Tokenize([]byte(`"unterminated`), "test.hlx")
	assert.Equal(t, token.Error, bad[0].Kind)
}

func TestScientificNotationNumber(t *testing.T) {
	toks := Tokenize([]byte("1.5e-3"), "test.hlx")
	require.Equal(t, token.Number, toks[0].Kind)
	assert.InDelta(t, 1.5e-3, toks[0].NumberVal, 1e-12)
}

func TestUnknownByteRecovers(t *testing.T) {
	toks := Tokenize([]byte("agent ` bot"), "test.hlx")
	// The backtick is unrecognized; lexing continues past it.
	var sawError bool
	for _, tk := range toks {
		if tk.Kind == token.Error {
			sawError = true
		}
	}
	assert.True(t, sawError)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}

func TestEmptyAndCommentOnlyFiles(t *testing.T) {
	toks := Tokenize([]byte(""), "test.hlx")
	require.Len(t, toks, 1)
	assert.Equal(t, token.EOF, toks[0].Kind)

	toks = Tokenize([]byte("# nothing but a comment\n"), "test.hlx")
	require.Len(t, toks, 1)
	assert.Equal(t, token.EOF, toks[0].Kind)
}
