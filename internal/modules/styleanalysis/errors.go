package styleanalysis

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIndices is returned when an analysis is attempted without any style index.
	ErrNoIndices = errors.New("no indices defined")
	// ErrDuplicateIndex is returned when the same identifier is registered twice.
	ErrDuplicateIndex = errors.New("duplicate index")
	// ErrEmptySeries is returned for an index registered with no returns.
	ErrEmptySeries = errors.New("empty return series")
	// ErrSeriesTooShort is returned when series are too short for a sample variance.
	ErrSeriesTooShort = errors.New("return series needs at least two observations")
	// ErrDimensionMismatch is returned when series are not aligned.
	ErrDimensionMismatch = errors.New("return series lengths differ")
)

// SolverError wraps a failure of the quadratic program solver.
// Analysis never returns partial weights alongside it.
type SolverError struct {
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("style analysis solver failed: %v", e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
