package optimization

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotPositiveDefinite is returned when the quadratic term cannot be factorized.
	ErrNotPositiveDefinite = errors.New("quadratic term is not positive definite")
	// ErrInfeasible is returned when no point satisfies the constraints.
	ErrInfeasible = errors.New("constraints are infeasible")
	// ErrMaxIterations is returned when the active set does not settle in time.
	ErrMaxIterations = errors.New("maximum iterations reached")
	// ErrDimensions is returned for inconsistent problem shapes.
	ErrDimensions = errors.New("inconsistent problem dimensions")
)

// Problem is a convex quadratic program:
//
//	minimize   ½ wᵀQw − cᵀw
//	subject to Aeq·w = Beq
//	           Aineq·w ≥ Bineq
//
// Aeq/Aineq may be nil when the matching target vector is empty.
type Problem struct {
	Q     mat.Symmetric
	C     []float64
	Aeq   mat.Matrix
	Beq   []float64
	Aineq mat.Matrix
	Bineq []float64
}

// Solver solves a Problem and returns the minimizer.
type Solver interface {
	Solve(p Problem) ([]float64, error)
}

// Dim returns the number of variables.
func (p Problem) Dim() int {
	if p.Q == nil {
		return 0
	}
	return p.Q.SymmetricDim()
}

// Validate checks that every component agrees on the number of variables.
func (p Problem) Validate() error {
	n := p.Dim()
	if n == 0 {
		return fmt.Errorf("%w: empty quadratic term", ErrDimensions)
	}
	if len(p.C) != n {
		return fmt.Errorf("%w: linear term has %d entries, expected %d", ErrDimensions, len(p.C), n)
	}
	if err := checkBlock("equality", p.Aeq, p.Beq, n); err != nil {
		return err
	}
	return checkBlock("inequality", p.Aineq, p.Bineq, n)
}

func checkBlock(name string, a mat.Matrix, b []float64, n int) error {
	if a == nil {
		if len(b) != 0 {
			return fmt.Errorf("%w: %s targets without constraint matrix", ErrDimensions, name)
		}
		return nil
	}
	r, c := a.Dims()
	if c != n {
		return fmt.Errorf("%w: %s matrix has %d columns, expected %d", ErrDimensions, name, c, n)
	}
	if r != len(b) {
		return fmt.Errorf("%w: %s matrix has %d rows but %d targets", ErrDimensions, name, r, len(b))
	}
	return nil
}
