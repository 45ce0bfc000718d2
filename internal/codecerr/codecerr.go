// Package codecerr defines the error kinds shared by the codec packages.
package codecerr

import (
	"errors"
	"fmt"
)

// Kind classifies a codec failure.
type Kind int

const (
	// TypeMismatch reports an argument of an unaccepted shape.
	TypeMismatch Kind = iota + 1
	// InvalidArgument reports a well-typed argument with a bad value.
	InvalidArgument
	// InvalidEncoding reports an unknown text codec or data it cannot represent.
	InvalidEncoding
	// NotInitialized reports use of a coder before its setup.
	NotInitialized
	// MalformedInput reports a COBS payload with a non-edge zero byte.
	MalformedInput
)

func (k Kind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case InvalidArgument:
		return "invalid argument"
	case InvalidEncoding:
		return "invalid encoding"
	case NotInitialized:
		return "not initialized"
	case MalformedInput:
		return "malformed input"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrTypeMismatch    = &Error{Kind: TypeMismatch}
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrInvalidEncoding = &Error{Kind: InvalidEncoding}
	ErrNotInitialized  = &Error{Kind: NotInitialized}
	ErrMalformedInput  = &Error{Kind: MalformedInput}
)

// Error is a codec failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return e.Kind.String()
		}
		return e.Kind.String() + ": " + msg
	}
	if msg == "" {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is regardless of Op and Msg.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error with a formatted message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
