// Package dlq keeps webhook deliveries whose ingestion failed so they can be
// replayed later. Replay is safe because the ledger makes ingestion idempotent.
package dlq

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// Failure reasons, also used as the last subject token on JetStream.
const (
	ReasonLedger  = "ledger"
	ReasonSink    = "sink"
	ReasonAdapter = "adapter"
)

// FailedDelivery is one dead-lettered webhook delivery.
type FailedDelivery struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Reason    string                 `json:"reason"`
	Error     string                 `json:"error"`
	Attempts  int                    `json:"attempts"`
	Envelope  *models.IngestEnvelope `json:"envelope"`
}

// Writer stores failed deliveries.
type Writer interface {
	Write(ctx context.Context, env *models.IngestEnvelope, err error, reason string) error
}

// Store is a DLQ backend that can be inspected and drained.
type Store interface {
	List(ctx context.Context, limit int) ([]FailedDelivery, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context) error
}

// StatsReporter exposes backend counters for /health.
type StatsReporter interface {
	Stats() map[string]interface{}
}

// ErrNotFound is returned by Delete for an unknown id.
var ErrNotFound = errors.New("dlq entry not found")

func newFailedDelivery(env *models.IngestEnvelope, err error, reason string) FailedDelivery {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FailedDelivery{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Error:     msg,
		Attempts:  1,
		Envelope:  env,
	}
}
