package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/factflow-systems/factflow/common/httputil"
	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/metrics"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// Webhook handles POST /webhook/{source}.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	source, err := models.ParseSource(r.PathValue("source"))
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("unknown", "invalid").Inc()
		httputil.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	label := source.Slug()

	clientIP := httputil.GetClientIP(r)
	allowed, err := h.limiter.Allow(ctx, label, clientIP)
	if err != nil {
		h.logger.WarnContext(ctx, "rate limit check failed, allowing request", logging.IP(clientIP), logging.Error(err))
		allowed = true
	}
	if !allowed {
		metrics.RequestsTotal.WithLabelValues(label, "rate_limited").Inc()
		httputil.WriteFailure(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RequestsTotal.WithLabelValues(label, "too_large").Inc()
			httputil.WriteFailure(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		metrics.RequestsTotal.WithLabelValues(label, "invalid").Inc()
		httputil.WriteFailure(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	metrics.RequestBytesTotal.WithLabelValues(label).Add(float64(len(body)))

	if !json.Valid(body) {
		metrics.RequestsTotal.WithLabelValues(label, "invalid").Inc()
		httputil.WriteFailure(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	if source == models.SourceHubSpot && h.hubspotSecret != "" &&
		!validHubSpotSignature(h.hubspotSecret, body, r.Header.Get(HubSpotSignatureHeader)) {
		metrics.RequestsTotal.WithLabelValues(label, "unauthorized").Inc()
		h.logger.WarnContext(ctx, "rejected webhook with bad signature", logging.Source(label), logging.IP(clientIP))
		httputil.WriteFailure(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	env := &models.IngestEnvelope{
		Source:     source,
		Headers:    r.Header.Clone(),
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}

	res, err := h.ingester.Ingest(ctx, env)
	if err != nil {
		reason := FailureReason(err)
		h.logger.ErrorContext(ctx, "ingestion failed", logging.Source(label), logging.Reason(reason), logging.Error(err))
		if h.dlq != nil {
			if dlqErr := h.dlq.Write(ctx, env, err, reason); dlqErr != nil {
				h.logger.ErrorContext(ctx, "failed to dead-letter delivery", logging.Source(label), logging.Error(dlqErr))
			}
		}
		metrics.RequestsTotal.WithLabelValues(label, "error").Inc()
		httputil.WriteFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.RequestsTotal.WithLabelValues(label, "ok").Inc()
	httputil.WriteOK(w, res)
}
