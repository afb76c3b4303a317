// Package parser implements the Helix recursive-descent parser: declaration
// grammar, property lists, and precedence-climbing expressions, all built on
// top of pkg/lexer's token stream. Parsing never aborts on a malformed
// construct; it records a diag.Diagnostic and synchronizes to the next
// declaration boundary, returning a best-effort partial AST alongside the
// accumulated diagnostics.
package parser

import (
	"fmt"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/diag"
	"github.com/cyber-boost/helix/pkg/lexer"
	"github.com/cyber-boost/helix/pkg/token"
)

// Parser consumes a flat token stream and produces an *ast.File.
type Parser struct {
	fileID string
	toks   []token.Token
	pos    int
	diags  []diag.Diagnostic

	// inPipeline is set while parsing properties of a `pipeline { ... }`
	// section, where `a -> b -> c` is a PipelineExpr rather than a grammar
	// error.
	inPipeline bool
}

// New creates a Parser over a pre-lexed token stream.
func New(toks []token.Token, fileID string) *Parser {
	return &Parser{fileID: fileID, toks: toks}
}

// ParseSource lexes and parses src in one step.
func ParseSource(src []byte, fileID string) (*ast.File, []diag.Diagnostic) {
	toks := lexer.Tokenize(src, fileID)
	return New(toks, fileID).ParseFile()
}

// ParseFile parses the whole token stream into a File, accumulating
// diagnostics rather than stopping at the first one.
func (p *Parser) ParseFile() (*ast.File, []diag.Diagnostic) {
	f := &ast.File{FileID: p.fileID, Version: 1}

	for !p.atEnd() {
		if d, ok := p.parseDeclaration(); ok {
			f.Declarations = append(f.Declarations, d)
		}
	}

	return f, p.diags
}

func (p *Parser) atEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) peek() token.Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(loc token.Location, code, format string, args ...interface{}) {
	p.diags = append(p.diags, diag.Diagnostic{
		Severity: diag.Error,
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	})
}

// expect consumes the current token if it matches kind, else records a
// diagnostic and leaves the token stream positioned where it was so the
// caller's recovery logic decides what to skip.
func (p *Parser) expect(kind token.Kind, code string) (token.Token, bool) {
	t := p.peek()
	if t.Kind == kind {
		return p.advance(), true
	}
	p.errorf(t.Location, code, "expected %s, found %s %q", kind, t.Kind, t.Text)
	return t, false
}

// synchronize advances until the next token that plausibly starts a new
// declaration (a Keyword or a Tilde), or EOF. If the current token already
// looks like a declaration start, it returns immediately without consuming
// it, so the next parseDeclaration call picks it up cleanly.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		switch p.peek().Kind {
		case token.Keyword, token.Tilde:
			return
		}
		p.advance()
	}
}

// synchronizeProperty advances past the current malformed property until the
// next property boundary: a Comma, a block closer, or EOF.
func (p *Parser) synchronizeProperty() {
	for !p.atEnd() {
		switch p.peek().Kind {
		case token.Comma:
			p.advance()
			return
		case token.RBrace, token.RAngle, token.RBracket, token.Semicolon:
			return
		}
		p.advance()
	}
}

func mapKeywordToKind(kw token.KeywordID) ast.DeclarationKind {
	switch kw {
	case token.KwProject:
		return ast.KindProject
	case token.KwAgent:
		return ast.KindAgent
	case token.KwWorkflow:
		return ast.KindWorkflow
	case token.KwTask:
		return ast.KindTask
	case token.KwContext:
		return ast.KindContext
	case token.KwCrew:
		return ast.KindCrew
	case token.KwPipeline:
		return ast.KindPipeline
	case token.KwMemory:
		return ast.KindMemory
	default:
		// step, trigger, capabilities, backstory, tools, secrets,
		// variables, embeddings, cache, retry, import are block-scoped
		// keywords used as property containers within another section,
		// not top-level declaration kinds of their own; the top-level
		// parser only reaches this branch for a leading keyword token,
		// so it still needs a kind and renders as a generic Section.
		return ast.KindSection
	}
}

// parseDeclaration parses one top-level (or nested, for block-scoped
// keywords like `tools { ... }`) section: a leader, an optional name and
// subname, and a block of properties delimited by one of the four
// equivalent opener/closer pairs.
func (p *Parser) parseDeclaration() (ast.Declaration, bool) {
	start := p.peek()

	var leader string
	var kind ast.DeclarationKind
	userKind := false

	switch start.Kind {
	case token.Keyword:
		p.advance()
		leader = start.KeywordVal.String()
		kind = mapKeywordToKind(start.KeywordVal)
	case token.Tilde:
		p.advance()
		nameTok := p.peek()
		if nameTok.Kind != token.Identifier {
			p.errorf(nameTok.Location, "E-PARSE-001", "expected identifier after '~', found %s %q", nameTok.Kind, nameTok.Text)
			p.synchronize()
			return nil, false
		}
		p.advance()
		leader = nameTok.Text
		kind = ast.KindSection
		userKind = true
	case token.Identifier:
		p.advance()
		leader = start.Text
		kind = ast.KindSection
	default:
		p.errorf(start.Location, "E-PARSE-002", "expected a declaration (keyword, ~name, or identifier), found %s %q", start.Kind, start.Text)
		p.synchronize()
		return nil, false
	}

	name, subname := p.parseOptionalNames()

	opener := p.peek()
	if !opener.IsBlockOpener() {
		p.errorf(opener.Location, "E-PARSE-003", "expected a block opener ({, <, [, or :), found %s %q", opener.Kind, opener.Text)
		p.synchronize()
		return nil, false
	}
	p.advance()
	closer, _ := token.MatchingCloser(opener.Kind)

	props := p.parsePropertyList(kind, closer)

	if _, ok := p.expect(closer, "E-PARSE-004"); !ok {
		p.synchronize()
	}

	return &ast.Section{
		Kind:       kind,
		Leader:     leader,
		Name:       name,
		Subname:    subname,
		UserKind:   userKind,
		Properties: props,
		Position:   ast.FromLocation(start.Location),
	}, true
}

// parseOptionalNames reads up to two leading String or bare Identifier
// tokens as the declaration's name and subname. A bare identifier is only
// consumed as a name if it is not itself a block opener (Colon can both open
// a block and never legitimately starts a name, so this is unambiguous).
func (p *Parser) parseOptionalNames() (name, subname string) {
	read := func() (string, bool) {
		t := p.peek()
		switch t.Kind {
		case token.String:
			p.advance()
			return t.StringVal, true
		case token.Identifier:
			p.advance()
			return t.Text, true
		default:
			return "", false
		}
	}

	if n, ok := read(); ok {
		name = n
	} else {
		return
	}
	if n, ok := read(); ok {
		subname = n
	}
	return
}

// parsePropertyList parses `identifier = expression` entries up to (not
// including) the closer token, accepting both newline-implicit and
// comma-explicit separation, with trailing commas allowed. Duplicate keys
// are reported but do not stop parsing; the later value wins in the
// resulting list, matching last-write-wins materialization.
func (p *Parser) parsePropertyList(kind ast.DeclarationKind, closer token.Kind) *ast.PropertyList {
	prevPipeline := p.inPipeline
	p.inPipeline = kind == ast.KindPipeline
	defer func() { p.inPipeline = prevPipeline }()

	return p.parsePropertiesUntil(closer)
}

// parsePropertiesUntil parses `identifier = expression` entries and nested
// named or anonymous sub-blocks up to (not including) the closer token. It
// is shared by top-level declaration bodies and nested block properties
// (`capabilities { ... }`, `tools { ... }`) so both respect the same
// grammar.
func (p *Parser) parsePropertiesUntil(closer token.Kind) *ast.PropertyList {
	props := ast.NewPropertyList()
	seen := map[string]token.Location{}

	for !p.atEnd() && p.peek().Kind != closer {
		keyTok := p.peek()
		if keyTok.Kind != token.Identifier && keyTok.Kind != token.Keyword {
			p.errorf(keyTok.Location, "E-PARSE-005", "expected property name, found %s %q", keyTok.Kind, keyTok.Text)
			p.synchronizeProperty()
			continue
		}
		p.advance()
		key := keyTok.Text

		switch {
		case p.peek().IsBlockOpener():
			// A keyword or identifier directly followed by a block
			// opener (no '=') is an anonymous nested sub-block —
			// `capabilities { ... }`, `tools { ... }`, `retry { ... }`.
			val := p.parseNestedBlock("")
			p.appendRepeatable(props, key, val, keyTok)

		case (p.peek().Kind == token.String || p.peek().Kind == token.Identifier) && p.peekAt(1).IsBlockOpener():
			// A name token then a block opener is a named nested
			// sub-block — `step "fetch" { ... }`, `trigger "on_error"
			// { ... }` — one of potentially several under the same
			// key (e.g. multiple `step` entries), so repeats promote
			// the property to an array of these blocks.
			nameTok := p.advance()
			name := nameTok.Text
			if nameTok.Kind == token.String {
				name = nameTok.StringVal
			}
			val := p.parseNestedBlock(name)
			p.appendRepeatable(props, key, val, keyTok)

		default:
			if _, ok := p.expect(token.Assign, "E-PARSE-006"); !ok {
				p.synchronizeProperty()
				continue
			}
			val := p.parseExpression()

			if prevLoc, dup := seen[key]; dup {
				p.diags = append(p.diags, diag.Diagnostic{
					Severity: diag.Error,
					Code:     "E-PARSE-007",
					Location: keyTok.Location,
					Message:  fmt.Sprintf("duplicate property %q", key),
					Hint:     fmt.Sprintf("first defined at %s", prevLoc),
				})
			}
			seen[key] = keyTok.Location

			props.Append(ast.Property{Key: key, Value: val, Pos: ast.FromLocation(keyTok.Location)})
		}

		if p.peek().Kind == token.Comma {
			p.advance()
		}
	}

	return props
}

// appendRepeatable inserts val under key, promoting the property to an
// ArrayLit the second and subsequent time the same key appears as a nested
// block (e.g. several `step "x" { ... }` entries in one workflow).
func (p *Parser) appendRepeatable(props *ast.PropertyList, key string, val ast.Expression, keyTok token.Token) {
	if existing, ok := props.Get(key); ok {
		if arr, isArr := existing.(*ast.ArrayLit); isArr {
			arr.Elements = append(arr.Elements, val)
			return
		}
		props.Set(key, &ast.ArrayLit{Elements: []ast.Expression{existing, val}, Position: existing.Pos()}, ast.FromLocation(keyTok.Location))
		return
	}
	props.Append(ast.Property{Key: key, Value: val, Pos: ast.FromLocation(keyTok.Location)})
}

// parseExpression is the entry point for the precedence-climbing expression
// grammar: Additive/Multiplicative/Unary/Primary, with the pipeline form
// recognized first when parsing inside a pipeline{} block.
func (p *Parser) parseExpression() ast.Expression {
	if p.inPipeline && p.peek().Kind == token.Identifier && p.peekAt(1).Kind == token.Arrow {
		return p.parsePipeline()
	}
	return p.parseAdditive()
}

func (p *Parser) parsePipeline() ast.Expression {
	start := p.peek()
	var stages []string

	first, ok := p.expect(token.Identifier, "E-PARSE-008")
	if !ok {
		return &ast.NullLit{Position: ast.FromLocation(start.Location)}
	}
	stages = append(stages, first.Text)

	for p.peek().Kind == token.Arrow {
		p.advance()
		next, ok := p.expect(token.Identifier, "E-PARSE-008")
		if !ok {
			break
		}
		stages = append(stages, next.Text)
	}

	return &ast.PipelineExpr{Stages: stages, Position: ast.FromLocation(start.Location)}
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for {
		switch p.peek().Kind {
		case token.Plus:
			p.advance()
			right := p.parseMultiplicative()
			left = &ast.BinaryExpr{Left: left, Right: right, Operator: ast.OpAdd, Position: left.Pos()}
		case token.Minus:
			p.advance()
			right := p.parseMultiplicative()
			left = &ast.BinaryExpr{Left: left, Right: right, Operator: ast.OpSub, Position: left.Pos()}
		default:
			return left
		}
	}
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for {
		switch p.peek().Kind {
		case token.Star:
			p.advance()
			right := p.parseUnary()
			left = &ast.BinaryExpr{Left: left, Right: right, Operator: ast.OpMul, Position: left.Pos()}
		case token.Slash:
			p.advance()
			right := p.parseUnary()
			left = &ast.BinaryExpr{Left: left, Right: right, Operator: ast.OpDiv, Position: left.Pos()}
		default:
			return left
		}
	}
}

func (p *Parser) parseUnary() ast.Expression {
	t := p.peek()
	switch t.Kind {
	case token.Minus:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Operand: operand, Operator: ast.OpNegate, Position: ast.FromLocation(t.Location)}
	case token.Bang:
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Operand: operand, Operator: ast.OpNot, Position: ast.FromLocation(t.Location)}
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	t := p.peek()
	pos := ast.FromLocation(t.Location)

	switch t.Kind {
	case token.String:
		p.advance()
		return &ast.StringLit{Value: t.StringVal, Position: pos}
	case token.Number:
		p.advance()
		return &ast.NumberLit{Value: t.NumberVal, Position: pos}
	case token.Duration:
		p.advance()
		return &ast.DurationLit{Value: t.DurationVal, Unit: t.DurationUnt, Position: pos}
	case token.Bool:
		p.advance()
		return &ast.BoolLit{Value: t.BoolVal, Position: pos}
	case token.Variable:
		p.advance()
		return &ast.VariableExpr{Name: t.StringVal, Position: pos}
	case token.Marker:
		p.advance()
		return &ast.MarkerExpr{Name: t.StringVal, Position: pos}
	case token.Reference:
		return p.parseAtOperatorCall()
	case token.LBracket:
		return p.parseArrayLit()
	case token.LBrace:
		return p.parseObjectLit()
	case token.Identifier:
		p.advance()
		if t.Text == "null" {
			return &ast.NullLit{Position: pos}
		}
		return &ast.IdentifierExpr{Name: t.Text, Position: pos}
	default:
		p.errorf(t.Location, "E-PARSE-009", "expected an expression, found %s %q", t.Kind, t.Text)
		p.advance()
		return &ast.NullLit{Position: pos}
	}
}

// parseArrayLit parses `[ expr, expr, ... ]`, trailing commas allowed.
func (p *Parser) parseArrayLit() ast.Expression {
	start := p.peek()
	p.advance() // consume '['

	var elements []ast.Expression
	for !p.atEnd() && p.peek().Kind != token.RBracket {
		elements = append(elements, p.parseExpression())
		if p.peek().Kind == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RBracket, "E-PARSE-010")

	return &ast.ArrayLit{Elements: elements, Position: ast.FromLocation(start.Location)}
}

// parseNestedBlock parses the body of a sub-block property like
// `capabilities { coding = true }`, `retry < max_attempts = 3 >`, or a named
// block like `step "fetch" { ... }`, one of the four equivalent delimiter
// pairs, into an ObjectLit. When name is non-empty it is recorded as the
// block's own "name" field so later passes (semantic resolution of
// depends_on, workflow step lookups) can find it without a separate node
// kind.
func (p *Parser) parseNestedBlock(name string) ast.Expression {
	opener := p.peek()
	if !opener.IsBlockOpener() {
		p.errorf(opener.Location, "E-PARSE-003", "expected a block opener ({, <, [, or :), found %s %q", opener.Kind, opener.Text)
		return &ast.ObjectLit{Fields: ast.NewPropertyList(), Position: ast.FromLocation(opener.Location)}
	}
	p.advance()
	closer, _ := token.MatchingCloser(opener.Kind)

	fields := p.parsePropertiesUntil(closer)
	if name != "" {
		fields.Append(ast.Property{
			Key:   "name",
			Value: &ast.StringLit{Value: name, Position: ast.FromLocation(opener.Location)},
			Pos:   ast.FromLocation(opener.Location),
		})
	}
	p.expect(closer, "E-PARSE-004")

	return &ast.ObjectLit{Fields: fields, Position: ast.FromLocation(opener.Location)}
}

// parseObjectLit parses an inline `{ identifier = expr, ... }` object
// literal used as a property value, as distinct from a top-level section
// block (the caller only reaches here from parsePrimary, never from
// parseDeclaration).
func (p *Parser) parseObjectLit() ast.Expression {
	start := p.peek()
	p.advance() // consume '{'

	fields := ast.NewPropertyList()
	for !p.atEnd() && p.peek().Kind != token.RBrace {
		keyTok := p.peek()
		if keyTok.Kind != token.Identifier {
			p.errorf(keyTok.Location, "E-PARSE-011", "expected field name, found %s %q", keyTok.Kind, keyTok.Text)
			p.synchronizeProperty()
			continue
		}
		p.advance()
		if _, ok := p.expect(token.Assign, "E-PARSE-006"); !ok {
			p.synchronizeProperty()
			continue
		}
		val := p.parseExpression()
		fields.Append(ast.Property{Key: keyTok.Text, Value: val, Pos: ast.FromLocation(keyTok.Location)})
		if p.peek().Kind == token.Comma {
			p.advance()
		}
	}
	p.expect(token.RBrace, "E-PARSE-012")

	return &ast.ObjectLit{Fields: fields, Position: ast.FromLocation(start.Location)}
}

// parseAtOperatorCall reduces every `@name(...)` call shape into a single
// AtOperatorCall node: `@name`, `@name[key]`, `@name["key"]`,
// `@name(arg, named=value)`, `@name.member[key]`. Whether Name identifies a
// built-in operator family or a reference to another declared section is
// left to semantic analysis, which is the only place that has the full
// symbol table needed to tell them apart.
func (p *Parser) parseAtOperatorCall() ast.Expression {
	start := p.advance() // consume the Reference token itself
	call := &ast.AtOperatorCall{
		Name:     start.StringVal,
		Named:    ast.NewPropertyList(),
		Position: ast.FromLocation(start.Location),
	}

	if p.peek().Kind == token.Dot {
		p.advance()
		memberTok, ok := p.expect(token.Identifier, "E-PARSE-013")
		if ok {
			call.Member = memberTok.Text
		}
	}

	switch p.peek().Kind {
	case token.LBracket:
		p.advance()
		key := p.parseExpression()
		p.expect(token.RBracket, "E-PARSE-014")
		call.Positional = append(call.Positional, key)
	case token.LParen:
		p.advance()
		for !p.atEnd() && p.peek().Kind != token.RParen {
			if p.peek().Kind == token.Identifier && p.peekAt(1).Kind == token.Assign {
				nameTok := p.advance()
				p.advance() // '='
				val := p.parseExpression()
				call.Named.Append(ast.Property{Key: nameTok.Text, Value: val, Pos: ast.FromLocation(nameTok.Location)})
			} else {
				call.Positional = append(call.Positional, p.parseExpression())
			}
			if p.peek().Kind == token.Comma {
				p.advance()
			}
		}
		p.expect(token.RParen, "E-PARSE-015")
	}

	return call
}
