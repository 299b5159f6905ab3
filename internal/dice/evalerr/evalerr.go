// Package evalerr defines the error values produced while evaluating a dice
// expression.
package evalerr

import (
	"errors"
	"fmt"
)

// Kind classifies an evaluation failure.
type Kind uint8

const (
	// Lex reports input the lexer could not tokenize.
	Lex Kind = iota + 1
	// Parse reports a token in an invalid position.
	Parse
	// Type reports an operator applied to an operand of the wrong kind.
	Type
	// Range reports counts, sides or sizes outside their limits.
	Range
	// Resolve reports undefined variables and invalid indexing.
	Resolve
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "lex error"
	case Parse:
		return "parse error"
	case Type:
		return "type error"
	case Range:
		return "range error"
	case Resolve:
		return "resolve error"
	default:
		return "error"
	}
}

// Error is a recoverable evaluation failure. Cause, when set, carries a
// structured detail such as a variable lookup failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Kind.String() + ": " + e.Message
}

// Unwrap returns the structured cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Wrap builds an error of the given kind whose message is cause's message.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var evalErr *Error
	if errors.As(err, &evalErr) {
		return evalErr.Kind
	}
	return 0
}
