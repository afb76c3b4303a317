// Package diag defines the shared Diagnostic type produced by the lexer,
// parser, and semantic analyzer.
package diag

import (
	"fmt"

	"github.com/cyber-boost/helix/pkg/token"
)

// Severity is the diagnostic severity level.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one lexer/parser/semantic finding.
type Diagnostic struct {
	Severity Severity
	Code     string
	Location token.Location
	Message  string
	Hint     string
}

func (d Diagnostic) String() string {
	if d.Hint != "" {
		return fmt.Sprintf("%s: [%s] %s (%s)", d.Location, d.Code, d.Message, d.Hint)
	}
	return fmt.Sprintf("%s: [%s] %s", d.Location, d.Code, d.Message)
}

// HasErrors reports whether any diagnostic in the slice is Error severity.
// "success" means no Error-severity entries, per the semantic analyzer's
// contract.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
