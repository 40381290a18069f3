package styleanalysis

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// pivotTolerance is the smallest absolute value accepted as an elimination pivot.
const pivotTolerance = 1e-8

// MakePositiveDefinite extracts a maximal non-degenerate principal submatrix of
// m by removing rows/columns that are linearly dependent on earlier ones.
//
// A Gauss elimination sweep runs column by column over a working copy; for each
// column the first remaining row (in current order) with a usable pivot is
// swapped into place and eliminated from every row below it. Rows that never
// become a pivot are dropped. The returned matrix holds the ORIGINAL values of
// m restricted to the surviving rows, in elimination order, and included lists
// the original index of each surviving row.
func MakePositiveDefinite(m mat.Symmetric) (reduced *mat.SymDense, included []int) {
	n := m.SymmetricDim()
	if n == 0 {
		return &mat.SymDense{}, []int{}
	}

	work := mat.DenseCopyOf(m)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	last := 0
	for j := 0; j < n && last < n; j++ {
		i := last
		for i < n && math.Abs(work.At(i, j)) < pivotTolerance {
			i++
		}
		if i == n {
			continue
		}

		if i != last {
			swapRows(work, i, last)
			rows[i], rows[last] = rows[last], rows[i]
		}

		pivot := work.At(last, j)
		for r := last + 1; r < n; r++ {
			factor := work.At(r, j) / pivot
			if factor == 0 {
				continue
			}
			for k := 0; k < n; k++ {
				work.Set(r, k, work.At(r, k)-factor*work.At(last, k))
			}
		}
		last++
	}

	included = append([]int{}, rows[:last]...)
	if last == 0 {
		return &mat.SymDense{}, included
	}

	reduced = &mat.SymDense{}
	reduced.SubsetSym(m, included)
	return reduced, included
}

func swapRows(m *mat.Dense, a, b int) {
	ra := mat.Row(nil, a, m)
	rb := mat.Row(nil, b, m)
	m.SetRow(a, rb)
	m.SetRow(b, ra)
}
