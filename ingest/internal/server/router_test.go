package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/common/middleware"
	"github.com/factflow-systems/factflow/ingest/internal/handlers"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

type mockIngester struct{}

func (mockIngester) Ingest(context.Context, *models.IngestEnvelope) (*models.IngestResult, error) {
	return &models.IngestResult{}, nil
}

func newTestRouter() http.Handler {
	return NewRouter(handlers.New(handlers.Options{Ingester: mockIngester{}, Logger: logging.Nop()}))
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/webhook/aloware", `{}`, http.StatusOK},
		{http.MethodPost, "/webhook/hubspot", `[]`, http.StatusOK},
		{http.MethodPost, "/webhook/unknown", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/webhook/aloware", ``, http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/agents/sync", `{}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/dlq", ``, http.StatusNotImplemented},
		{http.MethodDelete, "/api/v1/dlq", ``, http.StatusNotImplemented},
		{http.MethodDelete, "/api/v1/dlq/abc", ``, http.StatusNotImplemented},
		{http.MethodPost, "/api/v1/dlq/replay", ``, http.StatusNotImplemented},
		{http.MethodGet, "/health", ``, http.StatusOK},
		{http.MethodGet, "/healthz", ``, http.StatusOK},
		{http.MethodGet, "/readyz", ``, http.StatusOK},
		{http.MethodGet, "/metrics", ``, http.StatusOK},
		{http.MethodGet, "/services/collector/event", ``, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRouter_RequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "upstream-id")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "upstream-id", rr.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_MetricsExposeIngestCounters(t *testing.T) {
	router := newTestRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook/aloware", strings.NewReader(`{}`)))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "factflow_ingest_requests_total")
}
