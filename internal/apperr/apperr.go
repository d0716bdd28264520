// Package apperr defines the small error-kind vocabulary that HTTP
// handlers translate into status codes. Adapters return plain errors;
// only the layer that knows about a user-facing request wraps them
// with a Kind.
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindUnavailable
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Unavailable(msg string) *Error  { return New(KindUnavailable, msg) }
func Internal(err error) *Error      { return Wrap(KindInternal, "internal error", err) }

// As reports whether err (or something it wraps) is an *Error, and
// returns it if so.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
