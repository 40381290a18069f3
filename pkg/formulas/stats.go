// Package formulas provides the statistical primitives used by style analysis.
package formulas

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrLengthMismatch is returned when two series that must be aligned differ in length.
var ErrLengthMismatch = errors.New("vector lengths must be the same")

// Sum calculates the arithmetic sum of a slice of float64 values.
// NaN and Inf propagate.
func Sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// Variance calculates the sample variance (denominator n-1) using Welford's
// online algorithm. A single observation yields NaN; callers must supply at
// least two.
func Variance(xs []float64) float64 {
	var n, mean, m2 float64
	for _, x := range xs {
		n++
		delta := x - mean
		mean += delta / n
		m2 += delta * (x - mean)
	}
	return m2 / (n - 1)
}

// Covariance calculates the sample covariance (denominator n-1) of two
// aligned series with a two-pass mean subtraction.
func Covariance(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(xs), len(ys))
	}

	n := float64(len(xs))
	xmean := Sum(xs) / n
	ymean := Sum(ys) / n

	var acc float64
	for i := range xs {
		acc += (xs[i] - xmean) * (ys[i] - ymean)
	}
	return acc / (n - 1), nil
}

// CovarianceMatrix builds the symmetric matrix of pairwise covariances of the
// given rows (one series per row). The diagonal holds Variance of each row.
// Only the upper triangle is computed; SymDense storage mirrors it.
func CovarianceMatrix(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return &mat.SymDense{}, nil
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(rows[i]) != len(rows[0]) {
			return nil, fmt.Errorf("row %d: %w: %d != %d", i, ErrLengthMismatch, len(rows[i]), len(rows[0]))
		}
		cov.SetSym(i, i, Variance(rows[i]))
		for j := i + 1; j < n; j++ {
			c, err := Covariance(rows[i], rows[j])
			if err != nil {
				return nil, fmt.Errorf("rows %d/%d: %w", i, j, err)
			}
			cov.SetSym(i, j, c)
		}
	}
	return cov, nil
}

// Relativize converts an absolute-level series into period-over-period
// relative changes. The result has one element fewer than the input:
// out[i] = (xs[i+1] - xs[i]) / xs[i].
func Relativize(xs []float64) []float64 {
	if len(xs) < 2 {
		return []float64{}
	}

	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = (xs[i] - xs[i-1]) / xs[i-1]
	}
	return out
}
