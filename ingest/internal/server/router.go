package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/factflow-systems/factflow/common/middleware"
	"github.com/factflow-systems/factflow/ingest/internal/handlers"
)

// NewRouter constructs a ServeMux with ingest API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Webhook deliveries
	mux.HandleFunc("POST /webhook/{source}", h.Webhook)

	// Admin
	mux.HandleFunc("POST /api/v1/agents/sync", h.SyncAgents)
	mux.HandleFunc("GET /api/v1/dlq", h.ListDLQ)
	mux.HandleFunc("DELETE /api/v1/dlq", h.PurgeDLQ)
	mux.HandleFunc("DELETE /api/v1/dlq/{id}", h.DeleteDLQ)
	mux.HandleFunc("POST /api/v1/dlq/replay", h.ReplayDLQ)

	// Health endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
