// Package styleanalysis implements returns-based style analysis: it explains a
// fund's return series as a non-negative, fully invested combination of style
// index return series.
package styleanalysis

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/rbsa/internal/modules/optimization"
	"github.com/aristath/rbsa/pkg/formulas"
)

// Result maps each surviving index to its solved weight. Indices removed by
// conditioning are listed in Excluded and are absent from Weights.
type Result struct {
	Weights  map[string]float64
	Excluded []string
	Included []Slot
}

// Engine builds and solves the style analysis quadratic program. It holds no
// per-run state and may be shared between goroutines as long as the solver can.
type Engine struct {
	solver optimization.Solver
	log    zerolog.Logger
}

// NewEngine creates an engine that delegates the optimization to solver.
func NewEngine(solver optimization.Solver, log zerolog.Logger) *Engine {
	return &Engine{
		solver: solver,
		log:    log.With().Str("component", "style_engine").Logger(),
	}
}

// Run computes the style weights of fund against every index of set.
func (e *Engine) Run(set *IndexSet, fund []float64) (*Result, error) {
	if set.Len() == 0 {
		return nil, ErrNoIndices
	}
	if len(fund) != set.Periods() {
		return nil, fmt.Errorf("%w: fund has %d periods, indices have %d", ErrDimensionMismatch, len(fund), set.Periods())
	}

	cov, err := formulas.CovarianceMatrix(set.rows())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}

	fundVariance := formulas.Variance(fund)
	extended := extendedMatrix(cov, fundVariance)

	reduced, included := MakePositiveDefinite(extended)
	slots := layout(set)
	kept := make([]Slot, len(included))
	survived := make(map[int]bool, len(included))
	for k, row := range included {
		kept[k] = slots[row]
		survived[row] = true
	}

	var excluded []string
	for row, slot := range slots {
		if slot.Kind == IndexSlot && !survived[row] {
			excluded = append(excluded, slot.Symbol)
		}
	}

	e.log.Debug().
		Int("indices", set.Len()).
		Int("included", len(kept)).
		Strs("excluded", excluded).
		Msg("Conditioned extended covariance matrix")

	problem, err := buildProblem(reduced, kept, set, fund, fundVariance)
	if err != nil {
		return nil, err
	}

	solution, err := e.solver.Solve(problem)
	if err != nil {
		return nil, &SolverError{Err: err}
	}
	if len(solution) != len(kept) {
		return nil, &SolverError{Err: fmt.Errorf("%w: solution has %d entries, expected %d", optimization.ErrDimensions, len(solution), len(kept))}
	}

	weights := make(map[string]float64, len(kept))
	for k, slot := range kept {
		if slot.Kind == IndexSlot {
			weights[slot.Symbol] = solution[k]
		}
	}

	return &Result{
		Weights:  weights,
		Excluded: excluded,
		Included: kept,
	}, nil
}

// extendedMatrix places the fund at slot 0 with its own variance and the
// doubled index covariances in the interior. Fund/index cross terms stay zero;
// the fund enters the objective through the linear term instead.
func extendedMatrix(cov *mat.SymDense, fundVariance float64) *mat.SymDense {
	n := cov.SymmetricDim()
	ext := mat.NewSymDense(n+1, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			ext.SetSym(i+1, j+1, 2*cov.At(i, j))
		}
	}
	ext.SetSym(0, 0, fundVariance)
	return ext
}

// buildProblem assembles the quadratic program over the surviving slots:
// the fund weight is pinned to one, index weights sum to one and every weight
// is non-negative.
func buildProblem(q *mat.SymDense, slots []Slot, set *IndexSet, fund []float64, fundVariance float64) (optimization.Problem, error) {
	m := len(slots)

	fundPos := -1
	indexCount := 0
	c := make([]float64, m)
	for k, slot := range slots {
		switch slot.Kind {
		case FundSlot:
			fundPos = k
			c[k] = 2 * fundVariance
		case IndexSlot:
			indexCount++
			cv, err := formulas.Covariance(fund, set.returns[slot.Symbol])
			if err != nil {
				return optimization.Problem{}, fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
			}
			c[k] = 2 * cv
		}
	}
	if indexCount == 0 {
		return optimization.Problem{}, &SolverError{Err: fmt.Errorf("%w: every index was eliminated", optimization.ErrInfeasible)}
	}

	var eqRows [][]float64
	if fundPos >= 0 {
		pin := make([]float64, m)
		pin[fundPos] = 1
		eqRows = append(eqRows, pin)
	}
	budget := make([]float64, m)
	for k, slot := range slots {
		if slot.Kind == IndexSlot {
			budget[k] = 1
		}
	}
	eqRows = append(eqRows, budget)

	aeq := mat.NewDense(len(eqRows), m, nil)
	beq := make([]float64, len(eqRows))
	for i, row := range eqRows {
		aeq.SetRow(i, row)
		beq[i] = 1
	}

	aineq := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		aineq.Set(i, i, 1)
	}

	return optimization.Problem{
		Q:     q,
		C:     c,
		Aeq:   aeq,
		Beq:   beq,
		Aineq: aineq,
		Bineq: make([]float64, m),
	}, nil
}
