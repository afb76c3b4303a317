package operator

import (
	"fmt"

	"github.com/cyber-boost/helix/pkg/ast"
)

// EvalError is the EvaluationError member of the error taxonomy: a stable
// code, a human-readable message, and the source position that triggered
// it (zero value when the failing expression carries none).
type EvalError struct {
	Code     string
	Message  string
	Position ast.Position
}

func (e *EvalError) Error() string {
	if e.Position.Line == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Position, e.Code, e.Message)
}

func newEvalError(code, format string, args ...interface{}) *EvalError {
	return &EvalError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func newEvalErrorAt(pos ast.Position, code, format string, args ...interface{}) *EvalError {
	return &EvalError{Code: code, Message: fmt.Sprintf(format, args...), Position: pos}
}
