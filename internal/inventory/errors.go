package inventory

import (
	"errors"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the warehouse, item or conflict does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError lists the problems that stopped an action. Nothing was
// written when it is returned.
type ValidationError struct {
	Problems []string
}

func invalid(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
