package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/factflow-systems/factflow/common/httputil"
	"github.com/factflow-systems/factflow/ingest/internal/dlq"
)

const readyTimeout = 3 * time.Second

// Health reports liveness plus DLQ counters when the backend exposes them.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "healthy"}
	if stats, ok := h.dlq.(dlq.StatsReporter); ok {
		body["dlq"] = stats.Stats()
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

// Ready runs every readiness check and answers 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.readyChecks))
	for name := range h.readyChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.readyChecks[name](ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	httputil.WriteJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
