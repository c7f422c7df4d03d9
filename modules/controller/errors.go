package controller

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput  = errors.New("controller: input path is required")
	ErrMissingOutput = errors.New("controller: output path is required")
	ErrInputNotFound = errors.New("controller: input file not found")
	ErrRunActive     = errors.New("controller: a run is already active")
)

// ValidationError is returned by Start when a run cannot begin.
// Field is "input", "output" or "run".
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
