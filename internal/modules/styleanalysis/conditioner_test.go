package styleanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMakePositiveDefinite_IndependentRowsKeepEverything(t *testing.T) {
	m := mat.NewSymDense(3, []float64{
		4, 1, 0.5,
		1, 3, 0.2,
		0.5, 0.2, 2,
	})

	reduced, included := MakePositiveDefinite(m)

	require.Equal(t, []int{0, 1, 2}, included)
	require.Equal(t, 3, reduced.SymmetricDim())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, m.At(i, j), reduced.At(i, j))
		}
	}
}

func TestMakePositiveDefinite_DuplicateRowDropped(t *testing.T) {
	m := mat.NewSymDense(3, []float64{
		4, 2, 2,
		2, 3, 3,
		2, 3, 3,
	})

	reduced, included := MakePositiveDefinite(m)

	require.Equal(t, []int{0, 1}, included, "the later duplicate should be eliminated")
	require.Equal(t, 2, reduced.SymmetricDim())
	// Original values survive, not the elimination residue.
	assert.Equal(t, 4.0, reduced.At(0, 0))
	assert.Equal(t, 2.0, reduced.At(0, 1))
	assert.Equal(t, 3.0, reduced.At(1, 1))
}

func TestMakePositiveDefinite_ScaledRowDropped(t *testing.T) {
	// Row 2 is twice row 1 across the board.
	m := mat.NewSymDense(3, []float64{
		1, 0, 0,
		0, 2, 4,
		0, 4, 8,
	})

	reduced, included := MakePositiveDefinite(m)

	assert.Equal(t, []int{0, 1}, included)
	assert.Equal(t, 2, reduced.SymmetricDim())
}

func TestMakePositiveDefinite_ReordersToEliminationOrder(t *testing.T) {
	m := mat.NewSymDense(3, []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 2,
	})

	reduced, included := MakePositiveDefinite(m)

	require.Equal(t, []int{1, 2}, included)
	assert.Equal(t, 1.0, reduced.At(0, 0))
	assert.Equal(t, 2.0, reduced.At(1, 1))
	assert.Equal(t, 0.0, reduced.At(0, 1))
}

func TestMakePositiveDefinite_BelowTolerance(t *testing.T) {
	m := mat.NewSymDense(2, []float64{
		1e-9, 0,
		0, 5e-9,
	})

	reduced, included := MakePositiveDefinite(m)

	assert.Empty(t, included)
	assert.True(t, reduced.IsEmpty())
}

func TestMakePositiveDefinite_Empty(t *testing.T) {
	reduced, included := MakePositiveDefinite(&mat.SymDense{})

	assert.NotNil(t, included)
	assert.Empty(t, included)
	assert.True(t, reduced.IsEmpty())
}

func TestMakePositiveDefinite_DoesNotMutateInput(t *testing.T) {
	data := []float64{
		4, 2, 2,
		2, 3, 3,
		2, 3, 3,
	}
	m := mat.NewSymDense(3, append([]float64(nil), data...))

	MakePositiveDefinite(m)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, data[i*3+j], m.At(i, j))
		}
	}
}
