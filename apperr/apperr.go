// Package apperr classifies failures from the document store, object storage
// and the external blog API so handlers can turn them into short status lines.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an Error.
type Kind uint8

const (
	Unknown Kind = iota
	Validation
	Permission
	NotFound
	Network
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Permission:
		return "permission"
	case NotFound:
		return "not_found"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation ("save", "fetch feed"),
// Field the offending form field for validation failures, and StatusCode the
// upstream HTTP status for non-2xx responses.
type Error struct {
	Kind       Kind
	Op         string
	Field      string
	StatusCode int
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name. A nil err stays nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Explain is E with a short cause shown to the user in place of the kind's
// default wording.
func Explain(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Invalid reports a missing or malformed form field. No write is attempted
// for errors of this kind.
func Invalid(field, msg string) error {
	return &Error{Kind: Validation, Op: "validate", Field: field, Msg: msg}
}

// Status reports a non-2xx response from an upstream HTTP API.
func Status(op string, code int) error {
	return &Error{Kind: Network, Op: op, StatusCode: code, Msg: fmt.Sprintf("API returned %d", code)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldOf returns the form field of a validation error, or "".
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
