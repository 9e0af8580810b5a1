// Package errors provides structured, code-addressed errors for the
// signpost CLI and configuration loader.
//
// Each registered code (E100, E120, ...) carries a category, a default
// message, and a documentation URL. Errors can be annotated with a file
// location, surrounding context lines, a fix suggestion, and an example,
// then rendered for the terminal with Format or FormatCompact.
package errors
