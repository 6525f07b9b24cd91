package replication

import (
	"errors"
	"fmt"
)

// ErrUnknownStore is returned when a store name is not managed.
var ErrUnknownStore = errors.New("unknown store")

// Error reports a failed synchronize step.
type Error struct {
	// Source is the store being read.
	Source string
	// Target is the store being written, empty when reading failed.
	Target string
	// Skip is the offset of the failed page.
	Skip int
	// Err is the store error.
	Err error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("synchronize %s at %d: %v", e.Source, e.Skip, e.Err)
	}
	return fmt.Sprintf("synchronize %s -> %s at %d: %v", e.Source, e.Target, e.Skip, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
