package styleanalysis

// Analysis keeps a basket of indices registered one at a time and analyses
// funds against it. Each Run works on a fresh immutable snapshot of the
// basket, so sequential runs against the same indices are independent.
// Analysis is not safe for concurrent use; give each goroutine its own.
type Analysis struct {
	engine  *Engine
	builder *IndexSetBuilder
}

// NewAnalysis creates an empty analysis backed by engine.
func NewAnalysis(engine *Engine) *Analysis {
	return &Analysis{
		engine:  engine,
		builder: NewIndexSetBuilder(),
	}
}

// AddIndex registers a style index and its return series.
func (a *Analysis) AddIndex(id string, returns []float64) error {
	return a.builder.Add(id, returns)
}

// Run analyses fund against every registered index.
func (a *Analysis) Run(fund []float64) (*Result, error) {
	if a.builder.Len() == 0 {
		return nil, ErrNoIndices
	}
	set, err := a.builder.Build()
	if err != nil {
		return nil, err
	}
	return a.engine.Run(set, fund)
}
