package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/factflow-systems/factflow/common/httputil"
	"github.com/factflow-systems/factflow/common/logging"
)

type syncRequest struct {
	DryRun bool `json:"dryRun"`
}

// SyncAgents handles POST /api/v1/agents/sync. An empty body is a full sync.
func (h *Handler) SyncAgents(w http.ResponseWriter, r *http.Request) {
	if h.agentSync == nil {
		httputil.WriteFailure(w, http.StatusServiceUnavailable, "agent sync is not configured")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if r.URL.Query().Get("dryRun") == "true" {
		req.DryRun = true
	}

	res, err := h.agentSync.Sync(r.Context(), req.DryRun)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "agent sync failed", logging.Error(err))
		httputil.WriteFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.WriteOK(w, res)
}
