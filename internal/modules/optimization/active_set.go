package optimization

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// DefaultMaxIterations bounds the number of working-set changes.
	DefaultMaxIterations = 1000
	// DefaultTolerance is the feasibility/optimality tolerance.
	DefaultTolerance = 1e-10

	// activeTolerance decides which inequalities are binding at the start vertex.
	activeTolerance = 1e-9
)

// ActiveSetSolver solves convex quadratic programs with a primal active-set
// method. A feasible starting vertex is found with the simplex method; each
// iteration then solves the equality-constrained subproblem on the current
// working set through its KKT system.
type ActiveSetSolver struct {
	MaxIterations int
	Tolerance     float64
	log           zerolog.Logger
}

// NewActiveSetSolver creates a solver with default limits.
func NewActiveSetSolver(log zerolog.Logger) *ActiveSetSolver {
	return &ActiveSetSolver{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		log:           log.With().Str("component", "qp_solver").Logger(),
	}
}

// constraint is one row aᵀw (= or ≥) b.
type constraint struct {
	a        []float64
	b        float64
	equality bool
}

// Solve implements Solver.
func (s *ActiveSetSolver) Solve(p Problem) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := p.Dim()

	var chol mat.Cholesky
	if ok := chol.Factorize(p.Q); !ok {
		return nil, ErrNotPositiveDefinite
	}

	cons := collectConstraints(p)
	nEq := len(p.Beq)
	if nEq > 0 && rank(cons[:nEq]) < nEq {
		return nil, fmt.Errorf("%w: equality constraints are linearly dependent", ErrDimensions)
	}

	x, err := feasiblePoint(p, n)
	if err != nil {
		return nil, err
	}

	tol := s.tolerance()
	scale := 1 + mat.Norm(p.Q, math.Inf(1))
	lambdaTol := tol * scale

	working := initialWorkingSet(cons, nEq, x, n)
	inWorking := make([]bool, len(cons))
	for _, ci := range working {
		inWorking[ci] = true
	}

	grad := make([]float64, n)
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	for iter := 0; iter < maxIter; iter++ {
		gradient(grad, p.Q, p.C, x)

		step, lambda, err := solveKKT(p.Q, grad, cons, working)
		if err != nil {
			return nil, err
		}

		if floats.Norm(step, math.Inf(1)) <= tol*(1+floats.Norm(x, math.Inf(1))) {
			drop, worst := -1, -lambdaTol
			for k, ci := range working {
				if cons[ci].equality {
					continue
				}
				if lambda[k] < worst {
					drop, worst = k, lambda[k]
				}
			}
			if drop < 0 {
				s.log.Debug().
					Int("iterations", iter).
					Int("active", len(working)).
					Msg("QP converged")
				return x, nil
			}
			inWorking[working[drop]] = false
			working = append(working[:drop], working[drop+1:]...)
			continue
		}

		alpha, blocking := 1.0, -1
		for ci, c := range cons {
			if c.equality || inWorking[ci] {
				continue
			}
			ap := floats.Dot(c.a, step)
			if ap >= -tol {
				continue
			}
			t := (c.b - floats.Dot(c.a, x)) / ap
			if t < alpha {
				alpha, blocking = t, ci
			}
		}
		if alpha < 0 {
			alpha = 0
		}

		floats.AddScaled(x, alpha, step)
		if blocking >= 0 {
			working = append(working, blocking)
			inWorking[blocking] = true
		}
	}

	return nil, ErrMaxIterations
}

func (s *ActiveSetSolver) tolerance() float64 {
	if s.Tolerance <= 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}

// initialWorkingSet starts from every equality constraint and adds the
// inequalities active at x while they stay linearly independent.
func initialWorkingSet(cons []constraint, nEq int, x []float64, n int) []int {
	working := make([]int, 0, n)
	for i := 0; i < nEq; i++ {
		working = append(working, i)
	}

	for ci := nEq; ci < len(cons) && len(working) < n; ci++ {
		if math.Abs(floats.Dot(cons[ci].a, x)-cons[ci].b) > activeTolerance {
			continue
		}
		candidate := make([]constraint, 0, len(working)+1)
		for _, wi := range working {
			candidate = append(candidate, cons[wi])
		}
		candidate = append(candidate, cons[ci])
		if rank(candidate) == len(candidate) {
			working = append(working, ci)
		}
	}
	return working
}

func collectConstraints(p Problem) []constraint {
	cons := make([]constraint, 0, len(p.Beq)+len(p.Bineq))
	for i, b := range p.Beq {
		cons = append(cons, constraint{a: mat.Row(nil, i, p.Aeq), b: b, equality: true})
	}
	for i, b := range p.Bineq {
		cons = append(cons, constraint{a: mat.Row(nil, i, p.Aineq), b: b})
	}
	return cons
}

// gradient stores Qx − c into dst.
func gradient(dst []float64, q mat.Symmetric, c, x []float64) {
	g := mat.NewVecDense(len(dst), dst)
	g.MulVec(q, mat.NewVecDense(len(x), x))
	floats.Sub(dst, c)
}

// solveKKT solves
//
//	[ Q  −Aᵀ ] [ p ]   [ −g ]
//	[ A   0  ] [ λ ] = [  0 ]
//
// for the step p and the working-set multipliers λ.
func solveKKT(q mat.Symmetric, g []float64, cons []constraint, working []int) ([]float64, []float64, error) {
	n := len(g)
	m := len(working)
	size := n + m

	kkt := mat.NewDense(size, size, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kkt.Set(i, j, q.At(i, j))
		}
	}
	for k, ci := range working {
		for j, v := range cons[ci].a {
			kkt.Set(n+k, j, v)
			kkt.Set(j, n+k, -v)
		}
	}

	rhs := mat.NewVecDense(size, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, -g[i])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, nil, fmt.Errorf("KKT system: %w", err)
		}
	}

	step := make([]float64, n)
	lambda := make([]float64, m)
	for i := 0; i < n; i++ {
		step[i] = sol.AtVec(i)
	}
	for k := 0; k < m; k++ {
		lambda[k] = sol.AtVec(n + k)
	}
	return step, lambda, nil
}

// feasiblePoint finds a point satisfying every constraint by solving the
// phase-one linear program with a zero objective.
func feasiblePoint(p Problem, n int) ([]float64, error) {
	if len(p.Beq)+len(p.Bineq) == 0 {
		return make([]float64, n), nil
	}

	var g mat.Matrix
	var h []float64
	if len(p.Bineq) > 0 {
		neg := mat.DenseCopyOf(p.Aineq)
		neg.Scale(-1, neg)
		g = neg
		h = make([]float64, len(p.Bineq))
		for i, b := range p.Bineq {
			h[i] = -b
		}
	}
	var a mat.Matrix
	if len(p.Beq) > 0 {
		a = p.Aeq
	}

	c, std, b := lp.Convert(make([]float64, n), g, h, a, p.Beq)
	rows, cols := std.Dims()

	// Variables absent from every constraint are free; they stay at zero and
	// are removed so the simplex sees no empty columns. Empty rows are either
	// trivially satisfied or make the problem infeasible.
	keepCols := make([]int, 0, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if std.At(i, j) != 0 {
				keepCols = append(keepCols, j)
				break
			}
		}
	}
	keepRows := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		if floats.Norm(std.RawRowView(i), math.Inf(1)) == 0 {
			if math.Abs(b[i]) > DefaultTolerance {
				return nil, fmt.Errorf("%w: empty constraint row %d with target %g", ErrInfeasible, i, b[i])
			}
			continue
		}
		keepRows = append(keepRows, i)
	}
	if len(keepCols) == 0 || len(keepRows) == 0 {
		return make([]float64, n), nil
	}
	if len(keepCols) < len(keepRows) {
		return nil, fmt.Errorf("%w: more constraints than constrained variables", ErrInfeasible)
	}

	reduced := mat.NewDense(len(keepRows), len(keepCols), nil)
	bReduced := make([]float64, len(keepRows))
	cReduced := make([]float64, len(keepCols))
	for r, i := range keepRows {
		for k, j := range keepCols {
			reduced.Set(r, k, std.At(i, j))
		}
		bReduced[r] = b[i]
	}
	for k, j := range keepCols {
		cReduced[k] = c[j]
	}

	_, xt, err := lp.Simplex(cReduced, reduced, bReduced, DefaultTolerance, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
		}
		return nil, fmt.Errorf("phase one: %w", err)
	}

	full := make([]float64, cols)
	for k, j := range keepCols {
		full[j] = xt[k]
	}
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = full[j] - full[n+j]
	}
	return x, nil
}

// rank returns the numerical rank of the stacked constraint rows.
func rank(cons []constraint) int {
	if len(cons) == 0 {
		return 0
	}
	a := mat.NewDense(len(cons), len(cons[0].a), nil)
	for i, c := range cons {
		a.SetRow(i, c.a)
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return 0
	}
	return svd.Rank(1e-10)
}
