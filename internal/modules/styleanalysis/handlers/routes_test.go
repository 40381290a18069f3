package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes(t *testing.T) {
	router := newRouter(t, defaultProvider())

	testCases := []struct {
		method string
		path   string
		name   string
	}{
		{"GET", "/api/style/basket", "Basket"},
		{"GET", "/api/style/FUND", "AnalyzeSymbol"},
		{"POST", "/api/style/warm", "Warm"},
		{"POST", "/api/style/analyze", "AnalyzeSeries"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.NotEqual(t, http.StatusNotFound, rec.Code, "route %s %s should be registered", tc.method, tc.path)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestRegisterRoutes_Walk(t *testing.T) {
	router := newRouter(t, defaultProvider())

	var routes []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"GET /api/style/basket",
		"POST /api/style/analyze",
		"POST /api/style/warm",
		"GET /api/style/{symbol}",
	}, routes)
}
