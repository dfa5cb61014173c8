package service

import (
	"errors"

	"task-tracker/internal/repository"
)

// ErrNotFound is returned when the addressed task does not exist.
var ErrNotFound = repository.ErrNotFound

// ErrValidation is matched by every ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a client input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
