package store

import (
	"errors"
	"fmt"
)

// ErrNoAccessor is returned when no accessor serves a record type.
var ErrNoAccessor = errors.New("no accessor registered")

// Error is the error surfaced by every Store operation. It wraps the
// accessor error (or any other failure) met while dispatching.
type Error struct {
	// Store is the store name.
	Store string
	// Op is the failed operation.
	Op string
	// Err is the cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) && se.Store == s.name {
		return err
	}
	return &Error{Store: s.name, Op: op, Err: err}
}
