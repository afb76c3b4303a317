package errors

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/cyber-boost/helix/pkg/ast"
)

// ErrorClass names which pipeline stage an error originated in, per the
// compiler's lex -> parse -> semantic -> evaluate -> codegen -> binary
// stages plus the surrounding IO/timeout/configuration concerns.
type ErrorClass string

const (
	ErrorClassLex           ErrorClass = "LEX"
	ErrorClassParse         ErrorClass = "PARSE"
	ErrorClassSemantic      ErrorClass = "SEMANTIC"
	ErrorClassEvaluation    ErrorClass = "EVALUATION"
	ErrorClassCodegen       ErrorClass = "CODEGEN"
	ErrorClassBinaryFormat  ErrorClass = "BINARY_FORMAT"
	ErrorClassIO            ErrorClass = "IO"
	ErrorClassTimeout       ErrorClass = "TIMEOUT"
	ErrorClassConfiguration ErrorClass = "CONFIGURATION"
)

// Severity is the severity level of a HelixError.
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
)

// HelixError is a structured error carrying its pipeline class, source
// positions, and an optional wrapped cause.
type HelixError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Positions  []ast.Position         `json:"positions,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Severity   Severity               `json:"severity"`
	Class      ErrorClass             `json:"class"`
	Cause      error                  `json:"-"`
	Wrapped    []error                `json:"-"`
}

// Error implements the error interface.
func (e *HelixError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s][%s] %s", e.Class, e.Code, e.Message))

	if len(e.Positions) == 0 {
		return b.String()
	}

	unique := dedupePositions(e.Positions)
	if len(unique) == 1 {
		p := unique[0]
		b.WriteString(fmt.Sprintf(" at %s:%d:%d", p.FileID, p.Line, p.Column))
		return b.String()
	}

	b.WriteString(" at")
	for i, p := range unique {
		if i > 0 {
			b.WriteString(" and")
		}
		b.WriteString(fmt.Sprintf(" %s:%d:%d", p.FileID, p.Line, p.Column))
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *HelixError) Unwrap() error { return e.Cause }

// Is reports whether target is a HelixError with the same code and class.
func (e *HelixError) Is(target error) bool {
	other, ok := target.(*HelixError)
	if !ok {
		return false
	}
	return e.Code == other.Code && e.Class == other.Class
}

// WithContext attaches a key/value pair of diagnostic context.
func (e *HelixError) WithContext(key string, value interface{}) *HelixError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the error's severity.
func (e *HelixError) WithSeverity(s Severity) *HelixError {
	e.Severity = s
	return e
}

// WithClass overrides the error's pipeline class.
func (e *HelixError) WithClass(c ErrorClass) *HelixError {
	e.Class = c
	return e
}

// WithPosition appends one source position.
func (e *HelixError) WithPosition(pos ast.Position) *HelixError {
	e.Positions = append(e.Positions, pos)
	return e
}

// WithStackTrace captures the current goroutine's stack.
func (e *HelixError) WithStackTrace() *HelixError {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	e.StackTrace = string(buf[:n])
	return e
}

// Wrap records err as this error's cause.
func (e *HelixError) Wrap(err error) *HelixError {
	e.Cause = err
	e.Wrapped = append(e.Wrapped, err)
	return e
}

func newError(class ErrorClass, severity Severity, code, message string) *HelixError {
	return &HelixError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Severity:  severity,
		Class:     class,
		Context:   make(map[string]interface{}),
	}
}

func NewLexError(code, message string) *HelixError {
	return newError(ErrorClassLex, SeverityError, code, message)
}

func NewParseError(code, message string) *HelixError {
	return newError(ErrorClassParse, SeverityError, code, message)
}

func NewSemanticError(code, message string) *HelixError {
	return newError(ErrorClassSemantic, SeverityError, code, message)
}

func NewEvaluationError(code, message string) *HelixError {
	return newError(ErrorClassEvaluation, SeverityError, code, message)
}

func NewCodegenError(code, message string) *HelixError {
	return newError(ErrorClassCodegen, SeverityError, code, message)
}

func NewBinaryFormatError(code, message string) *HelixError {
	return newError(ErrorClassBinaryFormat, SeverityError, code, message)
}

func NewIOError(code, message string) *HelixError {
	return newError(ErrorClassIO, SeverityError, code, message)
}

func NewTimeoutError(code, message string) *HelixError {
	return newError(ErrorClassTimeout, SeverityError, code, message)
}

func NewConfigurationError(code, message string) *HelixError {
	return newError(ErrorClassConfiguration, SeverityWarning, code, message)
}

// NewErrorWithPositions builds a class/code/message error carrying every
// valid position extracted from positions, deduplicated. Each element may
// be an ast.Position, a token.Location-shaped struct, or anything
// reflectable with Line/Column/ByteOffset int fields and a FileID string
// field — the lexer, parser, and
// semantic analyzer hand this function whatever position type they
// happen to have on hand rather than converting up front.
func NewErrorWithPositions(class ErrorClass, code, message string, positions ...interface{}) *HelixError {
	e := newError(class, SeverityError, code, message)

	var extracted []ast.Position
	for _, pos := range positions {
		if p, ok := extractPosition(pos); ok {
			extracted = append(extracted, p)
		}
	}
	if len(extracted) > 0 {
		e.Positions = dedupePositions(extracted)
	}
	return e
}

func extractPosition(pos interface{}) (ast.Position, bool) {
	if pos == nil {
		return ast.Position{}, false
	}
	if p, ok := pos.(ast.Position); ok {
		return p, p.Line > 0
	}
	v := reflect.ValueOf(pos)
	if v.Kind() != reflect.Struct {
		return ast.Position{}, false
	}
	var p ast.Position
	if f := v.FieldByName("Line"); f.IsValid() && f.Kind() == reflect.Int {
		p.Line = int(f.Int())
	}
	if f := v.FieldByName("Column"); f.IsValid() && f.Kind() == reflect.Int {
		p.Column = int(f.Int())
	}
	if f := v.FieldByName("ByteOffset"); f.IsValid() && f.Kind() == reflect.Int {
		p.ByteOffset = int(f.Int())
	}
	if f := v.FieldByName("FileID"); f.IsValid() && f.Kind() == reflect.String {
		p.FileID = f.String()
	}
	return p, p.Line > 0
}

func dedupePositions(positions []ast.Position) []ast.Position {
	if len(positions) <= 1 {
		return positions
	}
	sorted := make([]ast.Position, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Column < sorted[j].Column
	})

	unique := make([]ast.Position, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, p := range sorted {
		key := fmt.Sprintf("%s:%d:%d", p.FileID, p.Line, p.Column)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, p)
		}
	}
	return unique
}

// WrapError wraps err into a new HelixError under class.
func WrapError(class ErrorClass, err error, code, message string) *HelixError {
	e := newError(class, SeverityError, code, message)
	e.Wrap(err)
	return e
}

// IsHelixError reports whether err is a *HelixError.
func IsHelixError(err error) bool {
	_, ok := err.(*HelixError)
	return ok
}

// AsHelixError converts err to *HelixError if possible.
func AsHelixError(err error) (*HelixError, bool) {
	e, ok := err.(*HelixError)
	return e, ok
}

// GetErrorChain flattens err and every wrapped error beneath it.
func GetErrorChain(err error) []error {
	var chain []error
	for err != nil {
		chain = append(chain, err)
		if e, ok := err.(*HelixError); ok && len(e.Wrapped) > 0 {
			chain = append(chain, e.Wrapped...)
		}
		err = unwrapError(err)
	}
	return chain
}

func unwrapError(err error) error {
	if wrapper, ok := err.(interface{ Unwrap() error }); ok {
		return wrapper.Unwrap()
	}
	return nil
}

// IsGlobalDebugEnabled reports whether debug mode is on. Overridden by
// the CLI's config wiring to avoid an import cycle between errors and
// any config package that wants to gate this.
var IsGlobalDebugEnabled = func() bool { return false }

// ShouldShowStackTraces reports whether stack traces should be rendered
// in error output. Overridden the same way as IsGlobalDebugEnabled.
var ShouldShowStackTraces = func() bool { return false }
