// Package token defines the lexical tokens produced by pkg/lexer and
// consumed by pkg/parser.
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	Invalid Kind = iota
	EOF
	Error

	String
	Number
	Bool
	Identifier
	Variable  // $NAME
	Marker    // !NAME!
	Reference // @identifier
	Keyword
	Duration

	Assign    // =
	Plus      // +
	Minus     // -
	Star      // *
	Slash     // /
	Arrow     // ->
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]
	LParen    // (
	RParen    // )
	LAngle    // <
	RAngle    // >
	Colon     // :
	Semicolon // ;
	Comma     // ,
	Dot       // .
	Tilde     // ~
	At        // @
	Bang      // !
)

var kindNames = map[Kind]string{
	Invalid:    "INVALID",
	EOF:        "EOF",
	Error:      "ERROR",
	String:     "STRING",
	Number:     "NUMBER",
	Bool:       "BOOL",
	Identifier: "IDENTIFIER",
	Variable:   "VARIABLE",
	Marker:     "MARKER",
	Reference:  "REFERENCE",
	Keyword:    "KEYWORD",
	Duration:   "DURATION",
	Assign:     "ASSIGN",
	Plus:       "PLUS",
	Minus:      "MINUS",
	Star:       "STAR",
	Slash:      "SLASH",
	Arrow:      "ARROW",
	LBrace:     "LBRACE",
	RBrace:     "RBRACE",
	LBracket:   "LBRACKET",
	RBracket:   "RBRACKET",
	LParen:     "LPAREN",
	RParen:     "RPAREN",
	LAngle:     "LANGLE",
	RAngle:     "RANGLE",
	Colon:      "COLON",
	Semicolon:  "SEMICOLON",
	Comma:      "COMMA",
	Dot:        "DOT",
	Tilde:      "TILDE",
	At:         "AT",
	Bang:       "BANG",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// KeywordID is the closed set of section-leading keywords.
type KeywordID int

const (
	NoKeyword KeywordID = iota
	KwProject
	KwAgent
	KwWorkflow
	KwTask
	KwContext
	KwCrew
	KwPipeline
	KwMemory
	KwStep
	KwTrigger
	KwCapabilities
	KwBackstory
	KwTools
	KwSecrets
	KwVariables
	KwEmbeddings
	KwCache
	KwRetry
	KwImport
)

// keywords is the perfect lookup table for the closed keyword set.
var keywords = map[string]KeywordID{
	"project":      KwProject,
	"agent":        KwAgent,
	"workflow":     KwWorkflow,
	"task":         KwTask,
	"context":      KwContext,
	"crew":         KwCrew,
	"pipeline":     KwPipeline,
	"memory":       KwMemory,
	"step":         KwStep,
	"trigger":      KwTrigger,
	"capabilities": KwCapabilities,
	"backstory":    KwBackstory,
	"tools":        KwTools,
	"secrets":      KwSecrets,
	"variables":    KwVariables,
	"embeddings":   KwEmbeddings,
	"cache":        KwCache,
	"retry":        KwRetry,
	"import":       KwImport,
}

var keywordNames = map[KeywordID]string{
	KwProject:      "project",
	KwAgent:        "agent",
	KwWorkflow:     "workflow",
	KwTask:         "task",
	KwContext:      "context",
	KwCrew:         "crew",
	KwPipeline:     "pipeline",
	KwMemory:       "memory",
	KwStep:         "step",
	KwTrigger:      "trigger",
	KwCapabilities: "capabilities",
	KwBackstory:    "backstory",
	KwTools:        "tools",
	KwSecrets:      "secrets",
	KwVariables:    "variables",
	KwEmbeddings:   "embeddings",
	KwCache:        "cache",
	KwRetry:        "retry",
	KwImport:       "import",
}

func (k KeywordID) String() string {
	if name, ok := keywordNames[k]; ok {
		return name
	}
	return ""
}

// LookupKeyword returns the KeywordID for an identifier, and whether it is one.
func LookupKeyword(ident string) (KeywordID, bool) {
	kw, ok := keywords[ident]
	return kw, ok
}

// DurationUnit is the closed set of duration suffixes.
type DurationUnit byte

const (
	UnitNone DurationUnit = 0
	UnitSec  DurationUnit = 's'
	UnitMin  DurationUnit = 'm'
	UnitHour DurationUnit = 'h'
	UnitDay  DurationUnit = 'd'
)

// MillisecondsPer returns the canonical millisecond scale of a unit.
func (u DurationUnit) MillisecondsPer() int64 {
	switch u {
	case UnitSec:
		return 1000
	case UnitMin:
		return 60 * 1000
	case UnitHour:
		return 60 * 60 * 1000
	case UnitDay:
		return 24 * 60 * 60 * 1000
	default:
		return 0
	}
}

// Location pins a token (or any AST node) to a point in source.
type Location struct {
	FileID     string
	Line       int
	Column     int
	ByteOffset int
	Length     int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FileID, l.Line, l.Column)
}

// Token is one lexical unit with its source location and decoded payload.
type Token struct {
	Kind     Kind
	Text     string // raw source text (or error message for Kind == Error)
	Location Location

	// Decoded payloads, populated according to Kind.
	StringVal   string
	NumberVal   float64
	BoolVal     bool
	KeywordVal  KeywordID
	DurationVal float64
	DurationUnt DurationUnit
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s %q @%s}", t.Kind, t.Text, t.Location)
}

// IsBlockOpener reports whether the token opens one of the four equivalent
// block delimiter pairs.
func (t Token) IsBlockOpener() bool {
	switch t.Kind {
	case LBrace, LAngle, LBracket, Colon:
		return true
	default:
		return false
	}
}

// MatchingCloser returns the closer token kind for a block opener.
func MatchingCloser(opener Kind) (Kind, bool) {
	switch opener {
	case LBrace:
		return RBrace, true
	case LAngle:
		return RAngle, true
	case LBracket:
		return RBracket, true
	case Colon:
		return Semicolon, true
	default:
		return Invalid, false
	}
}
