package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all style analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/style", func(r chi.Router) {
		r.Get("/basket", h.HandleGetBasket)
		r.Post("/analyze", h.HandleAnalyzeSeries)
		r.Post("/warm", h.HandleWarm)
		r.Get("/{symbol}", h.HandleAnalyzeSymbol)
	})
}
