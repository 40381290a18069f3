package styleanalysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel provider requests.
const maxConcurrentFetches = 4

// ErrEmptySymbol is returned when no fund symbol is given.
var ErrEmptySymbol = errors.New("fund symbol must not be empty")

// ReturnsProvider fetches the monthly return series of a symbol.
type ReturnsProvider interface {
	FetchReturns(ctx context.Context, symbol string) ([]float64, error)
}

// Archiver persists finished reports.
type Archiver interface {
	Store(ctx context.Context, key string, v any) error
}

// ProviderError wraps a failure to fetch the series of Symbol.
type ProviderError struct {
	Symbol string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to fetch returns for %s: %v", e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Exposure is the solved weight of one style index.
type Exposure struct {
	Symbol string  `json:"symbol"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// Report is the outcome of one style analysis.
type Report struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	AsOf        time.Time   `json:"as_of"`
	Periods     int         `json:"periods"`
	Exposures   []Exposure  `json:"exposures"`
	Excluded    []string    `json:"excluded"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// IndexSeries is a caller-supplied index return series.
type IndexSeries struct {
	Symbol  string    `json:"symbol"`
	Label   string    `json:"label,omitempty"`
	Returns []float64 `json:"returns"`
}

// SeriesRequest analyses caller-supplied series without the provider.
type SeriesRequest struct {
	Name    string        `json:"name,omitempty"`
	Fund    []float64     `json:"fund"`
	Indices []IndexSeries `json:"indices"`
}

// Service fetches series for a basket, runs the engine and reports the
// result. It is safe for concurrent use.
type Service struct {
	engine   *Engine
	provider ReturnsProvider
	basket   Basket
	archive  Archiver
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a style analysis service. archive may be nil.
func NewService(engine *Engine, provider ReturnsProvider, basket Basket, archive Archiver, log zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		provider: provider,
		basket:   basket,
		archive:  archive,
		now:      time.Now,
		log:      log.With().Str("service", "style_analysis").Logger(),
	}
}

// Basket returns the configured basket.
func (s *Service) Basket() Basket {
	return append(Basket(nil), s.basket...)
}

// Analyze explains the fund identified by symbol with the configured basket.
func (s *Service) Analyze(ctx context.Context, symbol string) (*Report, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if err := s.basket.Validate(); err != nil {
		return nil, err
	}

	symbols := append([]string{symbol}, s.basket.Symbols()...)
	series := make([][]float64, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, sym := range symbols {
		g.Go(func() error {
			r, err := s.provider.FetchReturns(gctx, sym)
			if err != nil {
				return &ProviderError{Symbol: sym, Err: err}
			}
			series[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	builder := NewIndexSetBuilder()
	for i, entry := range s.basket {
		if err := builder.Add(entry.Symbol, series[i+1]); err != nil {
			return nil, err
		}
	}
	set, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return s.run(ctx, symbol, set, series[0], s.basket.Label)
}

// AnalyzeSeries explains req.Fund with the indices supplied in req.
func (s *Service) AnalyzeSeries(ctx context.Context, req SeriesRequest) (*Report, error) {
	builder := NewIndexSetBuilder()
	labels := make(map[string]string, len(req.Indices))
	for _, idx := range req.Indices {
		sym := normalizeSymbol(idx.Symbol)
		if err := builder.Add(sym, idx.Returns); err != nil {
			return nil, err
		}
		labels[sym] = idx.Label
	}
	set, err := builder.Build()
	if err != nil {
		return nil, err
	}

	name := normalizeSymbol(req.Name)
	if name == "" {
		name = "CUSTOM"
	}
	label := func(sym string) string {
		if l := labels[sym]; l != "" {
			return l
		}
		return sym
	}
	return s.run(ctx, name, set, req.Fund, label)
}

// Warm fetches every basket series so later analyses hit the cache. Failures
// do not stop the other fetches; they are returned joined.
func (s *Service) Warm(ctx context.Context) (int, error) {
	symbols := s.basket.Symbols()
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, sym := range symbols {
		g.Go(func() error {
			if _, err := s.provider.FetchReturns(ctx, sym); err != nil {
				errs[i] = &ProviderError{Symbol: sym, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	warmed := 0
	for _, err := range errs {
		if err == nil {
			warmed++
		}
	}
	s.log.Info().Int("warmed", warmed).Int("total", len(symbols)).Msg("Basket warm-up finished")
	return warmed, errors.Join(errs...)
}

func (s *Service) run(ctx context.Context, symbol string, set *IndexSet, fund []float64, label func(string) string) (*Report, error) {
	result, err := s.engine.Run(set, fund)
	if err != nil {
		return nil, err
	}

	exposures := make([]Exposure, 0, len(result.Weights))
	for id, w := range result.Weights {
		exposures = append(exposures, Exposure{Symbol: id, Label: label(id), Weight: w})
	}
	sort.Slice(exposures, func(i, j int) bool {
		if exposures[i].Weight != exposures[j].Weight {
			return exposures[i].Weight > exposures[j].Weight
		}
		return exposures[i].Symbol < exposures[j].Symbol
	})

	excluded := result.Excluded
	if excluded == nil {
		excluded = []string{}
	}

	report := &Report{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		AsOf:        s.now().UTC(),
		Periods:     set.Periods(),
		Exposures:   exposures,
		Excluded:    excluded,
		Diagnostics: Diagnose(set, fund, result.Weights),
	}

	s.log.Info().
		Str("symbol", symbol).
		Str("id", report.ID).
		Int("exposures", len(exposures)).
		Strs("excluded", excluded).
		Float64("r_squared", report.Diagnostics.RSquared).
		Msg("Style analysis completed")

	s.store(ctx, report)
	return report, nil
}

// store archives the report. Failures are logged only.
func (s *Service) store(ctx context.Context, report *Report) {
	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("reports/%s/%s/%s.json", report.Symbol, report.AsOf.Format("2006-01"), report.ID)
	if err := s.archive.Store(ctx, key, report); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to archive report")
	}
}
