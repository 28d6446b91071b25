// Package errs defines the error taxonomy shared by every component of the
// core (spec §7). Cryptographic primitives return these directly; session
// and transport code never lets them escape a message-receive handler.
package errs

import "fmt"

// Kind classifies an error for the caller without requiring type assertions
// on every concrete error value.
type Kind int

const (
	KindInvalidEncoding Kind = iota
	KindInvalidCrypto
	KindInvalidSighashType
	KindProtocolError
	KindValidationError
	KindByzantineFault
	KindTransientNetwork
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEncoding:
		return "InvalidEncoding"
	case KindInvalidCrypto:
		return "InvalidCrypto"
	case KindInvalidSighashType:
		return "InvalidSighashType"
	case KindProtocolError:
		return "ProtocolError"
	case KindValidationError:
		return "ValidationError"
	case KindByzantineFault:
		return "ByzantineFault"
	case KindTransientNetwork:
		return "TransientNetwork"
	case KindExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across the module. Callers can
// branch with errors.As and the Kind field without string matching.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error without a wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
