// Package handlers provides HTTP handlers for style analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/rbsa/internal/modules/styleanalysis"
)

// maxBodyBytes caps POST /analyze payloads.
const maxBodyBytes = 1 << 20

// Analyzer is the part of styleanalysis.Service the handlers use.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*styleanalysis.Report, error)
	AnalyzeSeries(ctx context.Context, req styleanalysis.SeriesRequest) (*styleanalysis.Report, error)
	Warm(ctx context.Context) (int, error)
	Basket() styleanalysis.Basket
}

// Handler handles style analysis HTTP requests
type Handler struct {
	service Analyzer
	log     zerolog.Logger
}

// NewHandler creates a new style analysis handler
func NewHandler(service Analyzer, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "style").Logger(),
	}
}

// HandleGetBasket handles GET /api/style/basket
func (h *Handler) HandleGetBasket(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.service.Basket())
}

// HandleAnalyzeSymbol handles GET /api/style/{symbol}
func (h *Handler) HandleAnalyzeSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	report, err := h.service.Analyze(r.Context(), symbol)
	if err != nil {
		h.writeAnalysisError(w, err, symbol)
		return
	}
	h.writeData(w, http.StatusOK, report)
}

// HandleAnalyzeSeries handles POST /api/style/analyze
func (h *Handler) HandleAnalyzeSeries(w http.ResponseWriter, r *http.Request) {
	var req styleanalysis.SeriesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.service.AnalyzeSeries(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, err, req.Name)
		return
	}
	h.writeData(w, http.StatusOK, report)
}

// HandleWarm handles POST /api/style/warm
func (h *Handler) HandleWarm(w http.ResponseWriter, r *http.Request) {
	warmed, err := h.service.Warm(r.Context())

	failures := []string{}
	if err != nil {
		h.log.Warn().Err(err).Int("warmed", warmed).Msg("Basket warm-up incomplete")
		failures = append(failures, unjoin(err)...)
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"warmed":   warmed,
		"total":    len(h.service.Basket()),
		"failures": failures,
	})
}

// statusFor maps analysis errors to HTTP status codes.
func statusFor(err error) int {
	var providerErr *styleanalysis.ProviderError
	var solverErr *styleanalysis.SolverError
	switch {
	case errors.Is(err, styleanalysis.ErrEmptySymbol),
		errors.Is(err, styleanalysis.ErrNoIndices),
		errors.Is(err, styleanalysis.ErrDuplicateIndex),
		errors.Is(err, styleanalysis.ErrEmptySeries),
		errors.Is(err, styleanalysis.ErrSeriesTooShort),
		errors.Is(err, styleanalysis.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &solverErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeAnalysisError(w http.ResponseWriter, err error, symbol string) {
	status := statusFor(err)
	event := h.log.Warn()
	if status == http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("symbol", symbol).Int("status", status).Msg("Style analysis failed")
	h.writeError(w, status, err.Error())
}

func unjoin(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		out := []string{}
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
