package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{io.EOF, KindNone},
		{NewTypeError("x"), KindTypeError},
		{NewRangeError("x"), KindRangeError},
		{NewSyntaxError("x"), KindSyntaxError},
		{NewURIError("x"), KindURIError},
		{NewReferenceError("x"), KindReferenceError},
		{fmt.Errorf("wrapped: %w", NewRangeError("inner")), KindRangeError},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMessageAndPrefix(t *testing.T) {
	err := NewTypeError("Cannot read property '%s' of %s", "x", "null")
	if err.Error() != "TypeError: Cannot read property 'x' of null" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Message() != "Cannot read property 'x' of null" {
		t.Errorf("Message() = %q", err.Message())
	}
	if KindNone.String() != "Error" || KindURIError.String() != "URIError" {
		t.Error("unexpected kind names")
	}
}

func TestCausedBy(t *testing.T) {
	err := NewSyntaxError("bad pattern").CausedBy(io.ErrUnexpectedEOF)
	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause should be reachable through Unwrap")
	}
	ee, ok := AsEngineError(fmt.Errorf("ctx: %w", err))
	if !ok || ee.Kind() != KindSyntaxError || !IsSyntaxError(ee) {
		t.Errorf("AsEngineError = %v, %v", ee, ok)
	}
	if _, ok := AsEngineError(io.EOF); ok {
		t.Error("plain errors are not engine errors")
	}
	if !IsTypeError(NewTypeError("t")) || IsTypeError(NewRangeError("r")) || !IsRangeError(NewRangeError("r")) {
		t.Error("kind predicates disagree with KindOf")
	}
}
