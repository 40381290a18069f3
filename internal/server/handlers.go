package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports liveness, uptime, host load and cache database state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	cache := "disabled"
	if s.cacheDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cacheDB.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Cache database health check failed")
			cache = "unavailable"
			status = "degraded"
		} else {
			cache = "ok"
		}
	}

	cpuPercent, ramPercent := s.systemHandlers.hostLoad()

	response := map[string]interface{}{
		"status":         status,
		"service":        "rbsa",
		"version":        "1.0.0",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": ramPercent,
		"cache":          cache,
	}

	s.writeJSON(w, code, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
