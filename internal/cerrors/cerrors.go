// Package cerrors defines the compiler's diagnostic error type and a
// Reporter that accumulates diagnostics across a compilation, tracking the
// single success flag the evaluator consults after every AST visit.
package cerrors

import "fmt"

// Error is a single compile diagnostic: a file, a source line, and a
// message. Its Error() string is formatted "file:line: message", matching
// §7 of the grammar compiler specification.
type Error struct {
	File    string
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// New returns an Error for the given file, line, and message.
func New(file string, line int, message string) *Error {
	return &Error{File: file, Line: line, Message: message}
}

// Newf returns an Error built with Sprintf-style formatting.
func Newf(file string, line int, format string, args ...interface{}) *Error {
	return New(file, line, fmt.Sprintf(format, args...))
}

// Reporter accumulates diagnostics for a single compilation and exposes the
// success flag the evaluator checks after each AST visit: once Report has
// been called, Success() is false for the rest of the compilation.
type Reporter struct {
	file     string
	errs     []*Error
	warnings []*Error
}

// NewReporter returns a Reporter that stamps every diagnostic with file.
func NewReporter(file string) *Reporter {
	return &Reporter{file: file}
}

// Report records a fatal diagnostic at line and flips Success() to false.
func (r *Reporter) Report(line int, format string, args ...interface{}) {
	r.errs = append(r.errs, Newf(r.file, line, format, args...))
}

// Warn records a non-fatal diagnostic; it does not affect Success().
func (r *Reporter) Warn(line int, format string, args ...interface{}) {
	r.warnings = append(r.warnings, Newf(r.file, line, format, args...))
}

// Success reports whether no fatal diagnostic has been recorded yet.
func (r *Reporter) Success() bool { return len(r.errs) == 0 }

// Errors returns every fatal diagnostic recorded so far, in report order.
func (r *Reporter) Errors() []*Error { return r.errs }

// Warnings returns every warning recorded so far, in report order.
func (r *Reporter) Warnings() []*Error { return r.warnings }

// Err returns a single combined error summarizing every fatal diagnostic, or
// nil if Success().
func (r *Reporter) Err() error {
	if r.Success() {
		return nil
	}
	if len(r.errs) == 1 {
		return r.errs[0]
	}
	msg := fmt.Sprintf("%d compile errors:", len(r.errs))
	for _, e := range r.errs {
		msg += "\n  " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
