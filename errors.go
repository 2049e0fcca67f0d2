package livediff

import (
	"fmt"
	"sort"
	"strings"
)

// CompileError reports a template that could not be compiled, typically
// because an expression tree contains a node kind the analyzer does not
// understand or the event stream is malformed.
type CompileError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compile: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("compile: %s", e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *CompileError) Unwrap() error { return e.Err }

func compileErrorf(format string, args ...interface{}) *CompileError {
	return &CompileError{Reason: fmt.Sprintf(format, args...)}
}

// MissingInputError reports a render that referenced a named input absent
// from the supplied bindings. Available lists the names that were present,
// sorted, so the caller can see what the render actually had to work with.
type MissingInputError struct {
	Input     string
	Available []string
}

// Error implements the error interface.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input %q (available: [%s])",
		e.Input, strings.Join(e.Available, ", "))
}

// missingInput builds a MissingInputError with a sorted list of the names
// present in bindings.
func missingInput(name string, bindings map[string]interface{}) *MissingInputError {
	available := make([]string, 0, len(bindings))
	for k := range bindings {
		available = append(available, k)
	}
	sort.Strings(available)
	return &MissingInputError{Input: name, Available: available}
}
