package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is one reported compile error.
type Diagnostic struct {
	Line    int
	Where   string // " at end", " at '<lexeme>'", or empty for lexical errors
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// CompileError is returned when compilation reports at least one diagnostic.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
