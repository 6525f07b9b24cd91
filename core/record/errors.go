package record

import (
	"errors"
	"fmt"
)

// ErrNoSuchField is returned when a field name is not declared by the record type.
var ErrNoSuchField = errors.New("no such field")

// ErrUnknownType is returned when a type name is not declared by a schema.
var ErrUnknownType = errors.New("unknown record type")

// TypeMismatchError is returned when a value does not satisfy a field's type.
type TypeMismatchError struct {
	Field    string
	Value    any
	Expected string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %s: %v (%T) does not match %s", e.Field, e.Value, e.Value, e.Expected)
}
