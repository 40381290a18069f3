// Package yahoo fetches monthly price history from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rbsa/pkg/formulas"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (compatible; rbsa/1.0)"
)

var (
	// ErrNoData is returned when the API has no price history for a symbol.
	ErrNoData = errors.New("no price data")
	// ErrInsufficientData is returned when fewer closes than requested are available.
	ErrInsufficientData = errors.New("insufficient price history")
)

// Client for the Yahoo Finance chart API
type Client struct {
	baseURL    string
	httpClient *http.Client
	months     int
	now        func() time.Time
	log        zerolog.Logger
}

// NewClient creates a client that fetches months monthly closes per series.
// An empty baseURL selects the public endpoint.
func NewClient(baseURL string, months int, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		months:     months,
		now:        time.Now,
		log:        log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResponse is the subset of the v8 chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Window returns the lookback window for months closes fetched at now. It ends
// on the first day of the current month so only completed months are used.
func Window(now time.Time, months int) (start, end time.Time) {
	now = now.UTC()
	end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start = end.AddDate(0, -(months + 1), 0)
	return start, end
}

// FetchMonthlyCloses returns the last months adjusted monthly closes of
// symbol, oldest first.
func (c *Client) FetchMonthlyCloses(ctx context.Context, symbol string, months int) ([]float64, error) {
	start, end := Window(c.now(), months)

	q := url.Values{}
	q.Set("interval", "1mo")
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("events", "div,splits")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("symbol", symbol).Str("url", endpoint).Msg("Fetching monthly history")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read chart response for %s: %w", symbol, err)
	}

	var parsed chartResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Chart.Error != nil {
			return nil, fmt.Errorf("chart API returned status %d for %s: %s", resp.StatusCode, symbol, parsed.Chart.Error.Description)
		}
		return nil, fmt.Errorf("chart API returned status %d for %s", resp.StatusCode, symbol)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse chart response for %s: %w", symbol, decodeErr)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, parsed.Chart.Error.Description)
	}

	bars := extractCloses(parsed, end.Unix())
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	if len(bars) < months {
		return nil, fmt.Errorf("%w for %s: %d of %d months", ErrInsufficientData, symbol, len(bars), months)
	}

	// A missing bar inside the window would shift every later close by a month.
	bars = bars[len(bars)-months:]
	closes := make([]float64, months)
	for i, v := range bars {
		if v == nil {
			return nil, fmt.Errorf("%w for %s: no close %d months before %s",
				ErrInsufficientData, symbol, months-i, end.Format("2006-01"))
		}
		closes[i] = *v
	}

	c.log.Debug().Str("symbol", symbol).Int("closes", len(closes)).Msg("Fetched monthly history")
	return closes, nil
}

// FetchReturns returns the monthly relative returns of symbol over the
// configured lookback.
func (c *Client) FetchReturns(ctx context.Context, symbol string) ([]float64, error) {
	closes, err := c.FetchMonthlyCloses(ctx, symbol, c.months)
	if err != nil {
		return nil, err
	}
	return formulas.Relativize(closes), nil
}

// extractCloses prefers adjusted closes and falls back to raw closes. Bars at
// or after the window end (the running month) are dropped. Null points stay in
// place as nil so gaps remain visible.
func extractCloses(resp chartResponse, end int64) []*float64 {
	if len(resp.Chart.Result) == 0 {
		return nil
	}
	result := resp.Chart.Result[0]

	var raw []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) > 0 {
		raw = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		raw = result.Indicators.Quote[0].Close
	}

	bars := make([]*float64, 0, len(raw))
	for i, v := range raw {
		if i < len(result.Timestamp) && result.Timestamp[i] >= end {
			continue
		}
		bars = append(bars, v)
	}
	return bars
}
