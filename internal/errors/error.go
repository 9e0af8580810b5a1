package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryRoutes     Category = "routes"
	CategoryValidation Category = "validation"
	CategoryCLI        Category = "cli"
)

// Location represents a position in a configuration file.
type Location struct {
	File string
	Line int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// SignpostError is a structured error with location, suggestions, and
// documentation.
type SignpostError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (config, routes, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the configuration file position, when known.
	Location *Location

	// Context contains surrounding configuration lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is configuration showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SignpostError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SignpostError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error.
func (e *SignpostError) WithLocation(file string, line int) *SignpostError {
	e.Location = &Location{File: file, Line: line}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SignpostError) WithSuggestion(s string) *SignpostError {
	e.Suggestion = s
	return e
}

// WithExample adds a configuration example to the error.
func (e *SignpostError) WithExample(ex string) *SignpostError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *SignpostError) WithDetail(d string) *SignpostError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *SignpostError) Wrap(err error) *SignpostError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a SignpostError from a registered error code.
func New(code string) *SignpostError {
	template, ok := registry[code]
	if !ok {
		return &SignpostError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SignpostError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new SignpostError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SignpostError {
	return &SignpostError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SignpostError.
func FromError(err error, code string) *SignpostError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SignpostError); ok {
		return se
	}
	return New(code).Wrap(err)
}
