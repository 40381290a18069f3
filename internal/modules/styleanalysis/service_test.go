package styleanalysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapProvider struct {
	mu      sync.Mutex
	series  map[string][]float64
	failing map[string]error
	calls   []string
}

func (p *mapProvider) FetchReturns(_ context.Context, symbol string) ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, symbol)
	if err := p.failing[symbol]; err != nil {
		return nil, err
	}
	r, ok := p.series[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return append([]float64(nil), r...), nil
}

type memoryArchive struct {
	mu    sync.Mutex
	items map[string]any
	err   error
}

func (a *memoryArchive) Store(_ context.Context, key string, v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.items == nil {
		a.items = make(map[string]any)
	}
	a.items[key] = v
	return nil
}

var testBasket = Basket{
	{Symbol: "A", Label: "Style A"},
	{Symbol: "B", Label: "Style B"},
	{Symbol: "C", Label: "Style C"},
}

func newTestService(provider ReturnsProvider, archive Archiver) *Service {
	svc := NewService(newRealEngine(), provider, testBasket, archive, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func newMapProvider() *mapProvider {
	return &mapProvider{
		series: map[string][]float64{
			"A":    styleA,
			"B":    styleB,
			"C":    styleC,
			"FUND": average(styleA, styleB),
		},
		failing: map[string]error{},
	}
}

func weightsOf(report *Report) map[string]float64 {
	out := make(map[string]float64, len(report.Exposures))
	for _, e := range report.Exposures {
		out[e.Symbol] = e.Weight
	}
	return out
}

func TestService_Analyze(t *testing.T) {
	provider := newMapProvider()
	archive := &memoryArchive{}
	svc := newTestService(provider, archive)

	report, err := svc.Analyze(context.Background(), " fund ")
	require.NoError(t, err)

	assert.Equal(t, "FUND", report.Symbol)
	assert.Equal(t, 8, report.Periods)
	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Empty(t, report.Excluded)
	assert.NotNil(t, report.Excluded)

	weights := weightsOf(report)
	assert.InDelta(t, 0.5, weights["A"], 1e-6)
	assert.InDelta(t, 0.5, weights["B"], 1e-6)
	assert.InDelta(t, 0.0, weights["C"], 1e-6)
	assert.Equal(t, "C", report.Exposures[2].Symbol, "exposures are sorted by weight")
	assert.Equal(t, "Style C", report.Exposures[2].Label)
	assert.InDelta(t, 1.0, report.Diagnostics.RSquared, 1e-6)

	require.Len(t, archive.items, 1)
	for key := range archive.items {
		assert.True(t, strings.HasPrefix(key, "reports/FUND/2024-03/"))
		assert.True(t, strings.HasSuffix(key, report.ID+".json"))
	}
	assert.ElementsMatch(t, []string{"FUND", "A", "B", "C"}, provider.calls)
}

func TestService_Analyze_ProviderFailure(t *testing.T) {
	provider := newMapProvider()
	down := errors.New("provider down")
	provider.failing["B"] = down

	_, err := newTestService(provider, nil).Analyze(context.Background(), "FUND")

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "B", providerErr.Symbol)
	assert.ErrorIs(t, err, down)
}

func TestService_Analyze_MisalignedSeries(t *testing.T) {
	provider := newMapProvider()
	provider.series["C"] = styleC[:6]

	_, err := newTestService(provider, nil).Analyze(context.Background(), "FUND")
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	provider = newMapProvider()
	provider.series["FUND"] = styleA[:7]

	_, err = newTestService(provider, nil).Analyze(context.Background(), "FUND")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestService_Analyze_EmptySymbol(t *testing.T) {
	_, err := newTestService(newMapProvider(), nil).Analyze(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestService_Analyze_ArchiveFailureIsNotFatal(t *testing.T) {
	archive := &memoryArchive{err: errors.New("bucket unavailable")}

	report, err := newTestService(newMapProvider(), archive).Analyze(context.Background(), "FUND")

	require.NoError(t, err)
	assert.NotEmpty(t, report.Exposures)
}

func TestService_AnalyzeSeries(t *testing.T) {
	svc := newTestService(&mapProvider{}, nil)

	report, err := svc.AnalyzeSeries(context.Background(), SeriesRequest{
		Fund: styleC,
		Indices: []IndexSeries{
			{Symbol: "a", Label: "Alpha", Returns: styleA},
			{Symbol: "c", Returns: styleC},
			{Symbol: "d", Returns: styleD},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "CUSTOM", report.Symbol)
	require.NotEmpty(t, report.Exposures)
	assert.Equal(t, "C", report.Exposures[0].Symbol)
	assert.Equal(t, "C", report.Exposures[0].Label)
	assert.InDelta(t, 1.0, report.Exposures[0].Weight, 1e-6)
	assert.Contains(t, report.Diagnostics.Correlations, "A")
}

func TestService_AnalyzeSeries_Invalid(t *testing.T) {
	svc := newTestService(&mapProvider{}, nil)

	_, err := svc.AnalyzeSeries(context.Background(), SeriesRequest{Fund: styleA})
	assert.ErrorIs(t, err, ErrNoIndices)

	_, err = svc.AnalyzeSeries(context.Background(), SeriesRequest{
		Fund:    styleA,
		Indices: []IndexSeries{{Symbol: "A", Returns: styleA}, {Symbol: "a", Returns: styleB}},
	})
	assert.ErrorIs(t, err, ErrDuplicateIndex)

	_, err = svc.AnalyzeSeries(context.Background(), SeriesRequest{
		Fund:    styleA[:3],
		Indices: []IndexSeries{{Symbol: "A", Returns: styleA}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestService_Warm(t *testing.T) {
	provider := newMapProvider()
	provider.failing["C"] = errors.New("timeout")
	svc := newTestService(provider, nil)

	warmed, err := svc.Warm(context.Background())

	assert.Equal(t, 2, warmed)
	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "C", providerErr.Symbol)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, provider.calls)
}

func TestService_BasketIsCopied(t *testing.T) {
	svc := newTestService(newMapProvider(), nil)

	basket := svc.Basket()
	basket[0].Symbol = "MUTATED"

	assert.Equal(t, "A", svc.Basket()[0].Symbol)
}
