package thrush

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors for the thrush package.
var (
	// ErrToolFailure is returned when the rrdtool binary exits non-zero.
	ErrToolFailure = errors.New("rrdtool command failed")

	// ErrUnparsableValue is returned when a tool output token is not a number.
	ErrUnparsableValue = errors.New("unparsable value")

	// ErrInvalidSchema is returned when a schema definition fails compilation.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrResultClosed is returned when a fetch result is read after Close.
	ErrResultClosed = errors.New("fetch result is closed")

	// ErrUnknownSource is returned when an update names a field the schema
	// does not declare.
	ErrUnknownSource = errors.New("unknown data source")

	// ErrUnknownArchive is returned when an operation names an archive the
	// schema does not declare.
	ErrUnknownArchive = errors.New("unknown archive")
)

// ToolError reports a failed rrdtool invocation. ExitCode is the process
// exit status and Stderr holds whatever diagnostic text the tool wrote.
// The exit status alone decides failure; stderr content is informational.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg != "" {
		return fmt.Sprintf("rrdtool %s exited %d: %s", e.Command, e.ExitCode, msg)
	}
	return fmt.Sprintf("rrdtool %s exited %d", e.Command, e.ExitCode)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for ToolError.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailure
}

// newToolError creates a new ToolError.
func newToolError(command string, exitCode int, stderr string, cause error) *ToolError {
	return &ToolError{
		Command:  command,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}

// ParseError reports a tool output token that could not be converted to a
// sample value.
type ParseError struct {
	Input string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot parse value %q: %v", e.Input, e.Cause)
	}
	return fmt.Sprintf("cannot parse value %q", e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnparsableValue
}

// newParseError creates a new ParseError.
func newParseError(input string, cause error) *ParseError {
	return &ParseError{
		Input: input,
		Cause: cause,
	}
}

// SchemaError describes a single fault in a schema definition. Element is
// the declared data source or archive name the fault belongs to, or empty
// for schema-wide faults.
type SchemaError struct {
	Element string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("schema element %q: %s", e.Element, e.Message)
	}
	return fmt.Sprintf("schema: %s", e.Message)
}

// Is implements error matching for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// SchemaErrors collects every fault found while compiling a definition so
// callers see all problems at once rather than the first.
type SchemaErrors []*SchemaError

func (e SchemaErrors) Error() string {
	if len(e) == 0 {
		return "schema validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d schema faults: %s", len(e), strings.Join(msgs, "; "))
}

// Is implements error matching for SchemaErrors.
func (e SchemaErrors) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Unwrap exposes the individual faults to errors.As and errors.Is.
func (e SchemaErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}
