package accessor

import (
	"errors"
	"fmt"
)

// Error kinds. Test them with errors.Is.
var (
	ErrAlreadyExists = errors.New("record already exists")
	ErrNotFound      = errors.New("record not found")
	ErrValidation    = errors.New("validation failed")
	ErrBackend       = errors.New("backend failure")
)

// Error is the only error type returned by accessors.
type Error struct {
	// Kind is one of the Err* kinds.
	Kind error
	// Type is the record type name, if known.
	Type string
	// Key is the record key, if known.
	Key string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Type != "" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError returns an accessor error about one record.
func NewError(kind error, rtype, key string) error {
	return &Error{Kind: kind, Type: rtype, Key: key}
}

// Wrap returns an accessor error of the given kind around cause.
func Wrap(kind, cause error) error {
	var ae *Error
	if errors.As(cause, &ae) {
		return cause
	}
	return &Error{Kind: kind, Err: cause}
}
