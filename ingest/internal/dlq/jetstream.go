package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/common/messaging"
	"github.com/factflow-systems/factflow/common/messaging/nats"
	"github.com/factflow-systems/factflow/common/middleware"
	"github.com/factflow-systems/factflow/ingest/internal/metrics"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// JetStreamQueue publishes failed deliveries to the FACTFLOW_DLQ stream.
// Safe for use across multiple ingest instances.
type JetStreamQueue struct {
	pub     messaging.Publisher
	written atomic.Uint64
	logger  *logging.Logger
}

// NewJetStreamQueue ensures the DLQ stream exists and publishes through js.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *logging.Logger) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}
	cfg := nats.DLQStreamConfig()
	if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}
	q := NewPublisherQueue(js, logger)
	q.logger.Info("dlq stream ready", "stream", cfg.Name)
	return q, nil
}

// NewPublisherQueue publishes through pub without touching stream setup.
func NewPublisherQueue(pub messaging.Publisher, logger *logging.Logger) *JetStreamQueue {
	return &JetStreamQueue{pub: pub, logger: logging.OrDefault(logger)}
}

func (q *JetStreamQueue) Write(ctx context.Context, env *models.IngestEnvelope, err error, reason string) error {
	if q == nil {
		return nil
	}

	fd := newFailedDelivery(env, err, reason)
	data, mErr := json.Marshal(fd)
	if mErr != nil {
		metrics.DLQWrites.WithLabelValues(reason, "error").Inc()
		return fmt.Errorf("marshal dlq entry: %w", mErr)
	}

	opts := []messaging.PublishOption{messaging.WithHeader(messaging.HeaderReason, reason)}
	if env != nil {
		opts = append(opts, messaging.WithHeader(messaging.HeaderSource, env.Source.Slug()))
	}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		opts = append(opts, messaging.WithHeader(messaging.HeaderRequestID, reqID))
	}

	if pErr := q.pub.Publish(ctx, messaging.NewMessage(messaging.DLQSubject(reason), data, opts...)); pErr != nil {
		metrics.DLQWrites.WithLabelValues(reason, "error").Inc()
		return fmt.Errorf("publish dlq entry: %w", pErr)
	}

	q.written.Add(1)
	metrics.DLQWrites.WithLabelValues(reason, "ok").Inc()
	q.logger.WarnContext(ctx, "dead-lettered delivery", logging.Reason(reason), "dlq_id", fd.ID)
	return nil
}

func (q *JetStreamQueue) Stats() map[string]interface{} {
	if q == nil {
		return map[string]interface{}{"enabled": false, "backend": "jetstream"}
	}
	return map[string]interface{}{
		"enabled":       true,
		"backend":       "jetstream",
		"written_local": q.written.Load(),
		"connected":     q.pub.IsConnected(),
	}
}
