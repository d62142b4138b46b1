package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the root of every input error. Input errors abort an
// invocation before any aggregation runs.
var ErrInvalidInput = errors.New("invalid input")

// Input error kinds. All of them match ErrInvalidInput via errors.Is.
var (
	ErrMissingColumn    = fmt.Errorf("%w: missing column", ErrInvalidInput)
	ErrMissingField     = fmt.Errorf("%w: missing field", ErrInvalidInput)
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid timestamp", ErrInvalidInput)
	ErrReservedAction   = fmt.Errorf("%w: reserved action name", ErrInvalidInput)
	ErrReservedPrefix   = fmt.Errorf("%w: action collides with drop prefix", ErrInvalidInput)
	ErrUnknownEngine    = fmt.Errorf("%w: unknown table engine", ErrInvalidInput)
)
