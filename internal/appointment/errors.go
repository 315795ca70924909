package appointment

import (
	"errors"
	"fmt"

	"github.com/izzypositivetech-001/IzzyCare/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrConflict          = store.ErrConflict
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("invalid appointment request")
)

// PersistenceError reports a failed store read or write. The cause stays
// reachable through errors.Is, so ErrNotFound and ErrConflict can still be told
// apart.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
