package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/factflow-systems/factflow/common/httputil"
	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/dlq"
)

const defaultDLQLimit = 100

// ReplayResult totals one POST /api/v1/dlq/replay.
type ReplayResult struct {
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
	Processed int `json:"processed"`
	Posted    int `json:"posted"`
}

func (h *Handler) dlqStore(w http.ResponseWriter) (dlq.Store, bool) {
	store, ok := h.dlq.(dlq.Store)
	if !ok {
		httputil.WriteFailure(w, http.StatusNotImplemented, "dlq backend does not support inspection")
		return nil, false
	}
	return store, true
}

func dlqLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultDLQLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ListDLQ handles GET /api/v1/dlq?limit=N, oldest first.
func (h *Handler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	store, ok := h.dlqStore(w)
	if !ok {
		return
	}
	limit, ok := dlqLimit(r)
	if !ok {
		httputil.WriteFailure(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	entries, err := store.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dlq list failed", logging.Error(err))
		httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []dlq.FailedDelivery{}
	}
	httputil.WriteOK(w, entries)
}

// DeleteDLQ handles DELETE /api/v1/dlq/{id}.
func (h *Handler) DeleteDLQ(w http.ResponseWriter, r *http.Request) {
	store, ok := h.dlqStore(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, dlq.ErrNotFound) {
			httputil.WriteFailure(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteOK(w, map[string]string{"deleted": id})
}

// PurgeDLQ handles DELETE /api/v1/dlq.
func (h *Handler) PurgeDLQ(w http.ResponseWriter, r *http.Request) {
	store, ok := h.dlqStore(w)
	if !ok {
		return
	}
	if err := store.Purge(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "dlq purge failed", logging.Error(err))
		httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.WarnContext(r.Context(), "dlq purged")
	httputil.WriteOK(w, map[string]bool{"purged": true})
}

// ReplayDLQ handles POST /api/v1/dlq/replay?limit=N. Each entry is run through
// the pipeline again and removed once it succeeds; the ledger drops facts
// that were already posted before the failure.
func (h *Handler) ReplayDLQ(w http.ResponseWriter, r *http.Request) {
	store, ok := h.dlqStore(w)
	if !ok {
		return
	}
	limit, ok := dlqLimit(r)
	if !ok {
		httputil.WriteFailure(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	ctx := r.Context()
	entries, err := store.List(ctx, limit)
	if err != nil {
		httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	var res ReplayResult
	for _, fd := range entries {
		if fd.Envelope == nil {
			res.Failed++
			continue
		}
		out, err := h.ingester.Ingest(ctx, fd.Envelope)
		if err != nil {
			h.logger.WarnContext(ctx, "dlq replay failed", "dlq_id", fd.ID, logging.Error(err))
			res.Failed++
			continue
		}
		res.Replayed++
		res.Processed += out.Processed
		res.Posted += out.Posted
		if err := store.Delete(ctx, fd.ID); err != nil {
			h.logger.WarnContext(ctx, "dlq entry replayed but not removed", "dlq_id", fd.ID, logging.Error(err))
		}
	}

	h.logger.InfoContext(ctx, "dlq replay finished",
		"replayed", res.Replayed, "failed", res.Failed, "processed", res.Processed, "posted", res.Posted)
	httputil.WriteOK(w, res)
}
