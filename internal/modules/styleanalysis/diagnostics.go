package styleanalysis

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// monthsPerYear annualizes the monthly tracking error.
const monthsPerYear = 12

// Diagnostics describes how well the style weights replicate the fund.
type Diagnostics struct {
	// RSquared is the share of fund variance explained by the replicating
	// portfolio: 1 − var(residual)/var(fund).
	RSquared float64 `json:"r_squared"`
	// TrackingError is the annualized standard deviation of the residual.
	TrackingError float64 `json:"tracking_error"`
	// Correlations holds the correlation of the fund with every index,
	// including the excluded ones.
	Correlations map[string]float64 `json:"correlations"`
}

// Diagnose evaluates weights against the fund over the periods of set.
func Diagnose(set *IndexSet, fund []float64, weights map[string]float64) Diagnostics {
	n := len(fund)
	replica := make([]float64, n)
	for id, w := range weights {
		if r, ok := set.returns[id]; ok {
			floats.AddScaled(replica, w, r)
		}
	}
	residual := make([]float64, n)
	floats.SubTo(residual, fund, replica)

	d := Diagnostics{Correlations: make(map[string]float64, set.Len())}

	if fundVar := stat.Variance(fund, nil); fundVar > 0 {
		d.RSquared = 1 - stat.Variance(residual, nil)/fundVar
	}
	if n > 0 {
		d.TrackingError = talib.StdDev(residual, n, 1)[n-1] * math.Sqrt(monthsPerYear)
	}
	for _, id := range set.ids {
		if n > 1 {
			d.Correlations[id] = talib.Correl(fund, set.returns[id], n)[n-1]
		}
	}
	return d
}
