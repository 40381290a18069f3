package styleanalysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestDiagnose_PerfectReplication(t *testing.T) {
	set := buildSet(t, "A", styleA, "B", styleB)

	d := Diagnose(set, styleA, map[string]float64{"A": 1, "B": 0})

	assert.InDelta(t, 1.0, d.RSquared, 1e-12)
	assert.InDelta(t, 0.0, d.TrackingError, 1e-12)
	require.Contains(t, d.Correlations, "A")
	require.Contains(t, d.Correlations, "B")
	assert.InDelta(t, 1.0, d.Correlations["A"], 1e-9)
	assert.InDelta(t, stat.Correlation(styleA, styleB, nil), d.Correlations["B"], 1e-9)
}

func TestDiagnose_Mismatch(t *testing.T) {
	set := buildSet(t, "A", styleA, "B", styleB)

	d := Diagnose(set, styleA, map[string]float64{"B": 1})

	residual := make([]float64, len(styleA))
	floats.SubTo(residual, styleA, styleB)
	wantR2 := 1 - stat.Variance(residual, nil)/stat.Variance(styleA, nil)
	wantTE := stat.PopStdDev(residual, nil) * math.Sqrt(12)

	assert.InDelta(t, wantR2, d.RSquared, 1e-9)
	assert.InDelta(t, wantTE, d.TrackingError, 1e-9)
	assert.Less(t, d.RSquared, 1.0)
}

func TestDiagnose_FlatFund(t *testing.T) {
	set := buildSet(t, "A", styleA)
	flat := make([]float64, len(styleA))

	d := Diagnose(set, flat, map[string]float64{"A": 1})

	assert.Zero(t, d.RSquared)
	assert.Zero(t, d.Correlations["A"])
}
