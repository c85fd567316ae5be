package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the stable, machine-checkable category of an engine error.
// The embedding layer maps it onto the matching exception constructor.
type Kind uint8

const (
	KindNone Kind = iota
	KindTypeError
	KindRangeError
	KindSyntaxError
	KindURIError
	KindReferenceError
)

func (k Kind) String() string {
	switch k {
	case KindTypeError:
		return "TypeError"
	case KindRangeError:
		return "RangeError"
	case KindSyntaxError:
		return "SyntaxError"
	case KindURIError:
		return "URIError"
	case KindReferenceError:
		return "ReferenceError"
	default:
		return "Error"
	}
}

// EngineError is the interface implemented by all errors originated by the
// value layer and the layers built on it.
type EngineError interface {
	error
	Kind() Kind
	// Message returns the specific error message without the kind prefix.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// TypeError is raised for illegal coercions, calling a non-callable, and
// writes to null/undefined or read-only members.
type TypeError struct {
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *TypeError) Error() string   { return "TypeError: " + e.Msg }
func (e *TypeError) Kind() Kind      { return KindTypeError }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }
func (e *TypeError) CausedBy(cause error) *TypeError {
	e.Cause = cause
	return e
}

// RangeError is surfaced by higher layers (numeric formatting bounds,
// invalid locale tags).
type RangeError struct {
	Msg   string
	Cause error
}

func (e *RangeError) Error() string   { return "RangeError: " + e.Msg }
func (e *RangeError) Kind() Kind      { return KindRangeError }
func (e *RangeError) Message() string { return e.Msg }
func (e *RangeError) Unwrap() error   { return e.Cause }
func (e *RangeError) CausedBy(cause error) *RangeError {
	e.Cause = cause
	return e
}

// SyntaxError is surfaced by parsing layers.
type SyntaxError struct {
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string   { return "SyntaxError: " + e.Msg }
func (e *SyntaxError) Kind() Kind      { return KindSyntaxError }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// URIError is surfaced by the URI encoding builtins.
type URIError struct {
	Msg   string
	Cause error
}

func (e *URIError) Error() string   { return "URIError: " + e.Msg }
func (e *URIError) Kind() Kind      { return KindURIError }
func (e *URIError) Message() string { return e.Msg }
func (e *URIError) Unwrap() error   { return e.Cause }
func (e *URIError) CausedBy(cause error) *URIError {
	e.Cause = cause
	return e
}

// ReferenceError is surfaced by environment lookups in the evaluator.
type ReferenceError struct {
	Msg   string
	Cause error
}

func (e *ReferenceError) Error() string   { return "ReferenceError: " + e.Msg }
func (e *ReferenceError) Kind() Kind      { return KindReferenceError }
func (e *ReferenceError) Message() string { return e.Msg }
func (e *ReferenceError) Unwrap() error   { return e.Cause }
func (e *ReferenceError) CausedBy(cause error) *ReferenceError {
	e.Cause = cause
	return e
}

// --- Helpers for creating errors ---

func NewTypeError(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

func NewRangeError(format string, args ...any) *RangeError {
	return &RangeError{Msg: fmt.Sprintf(format, args...)}
}

func NewSyntaxError(format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

func NewURIError(format string, args ...any) *URIError {
	return &URIError{Msg: fmt.Sprintf(format, args...)}
}

func NewReferenceError(format string, args ...any) *ReferenceError {
	return &ReferenceError{Msg: fmt.Sprintf(format, args...)}
}

// --- Inspection ---

// KindOf reports the kind of the first EngineError in err's chain,
// or KindNone when err carries no engine error.
func KindOf(err error) Kind {
	var ee EngineError
	if stderrors.As(err, &ee) {
		return ee.Kind()
	}
	return KindNone
}

// IsTypeError reports whether err carries a TypeError-kind failure.
func IsTypeError(err error) bool { return KindOf(err) == KindTypeError }

// IsRangeError reports whether err carries a RangeError-kind failure.
func IsRangeError(err error) bool { return KindOf(err) == KindRangeError }

// IsSyntaxError reports whether err carries a SyntaxError-kind failure.
func IsSyntaxError(err error) bool { return KindOf(err) == KindSyntaxError }

// AsEngineError returns the first EngineError in err's chain.
func AsEngineError(err error) (EngineError, bool) {
	var ee EngineError
	if stderrors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
