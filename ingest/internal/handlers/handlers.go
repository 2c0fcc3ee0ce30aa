// Package handlers implements the ingest service HTTP endpoints.
package handlers

import (
	"context"
	"errors"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/adapter"
	"github.com/factflow-systems/factflow/ingest/internal/agentsync"
	"github.com/factflow-systems/factflow/ingest/internal/dlq"
	"github.com/factflow-systems/factflow/ingest/internal/ledger"
	"github.com/factflow-systems/factflow/ingest/internal/models"
	"github.com/factflow-systems/factflow/ingest/internal/ratelimit"
)

const defaultMaxBodyBytes = 1 << 20

// Ingester runs one delivery through the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, env *models.IngestEnvelope) (*models.IngestResult, error)
}

// AgentSyncer rebuilds the agent dimension from the roster.
type AgentSyncer interface {
	Sync(ctx context.Context, dryRun bool) (*agentsync.Result, error)
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Options configures a Handler. Only Ingester is required.
type Options struct {
	Ingester      Ingester
	AgentSync     AgentSyncer
	Limiter       ratelimit.RateLimiter
	DLQ           dlq.Writer
	ReadyChecks   map[string]Check
	MaxBodyBytes  int64
	HubSpotSecret string
	Logger        *logging.Logger
}

type Handler struct {
	ingester      Ingester
	agentSync     AgentSyncer
	limiter       ratelimit.RateLimiter
	dlq           dlq.Writer
	readyChecks   map[string]Check
	maxBodyBytes  int64
	hubspotSecret string
	logger        *logging.Logger
}

func New(opts Options) *Handler {
	h := &Handler{
		ingester:      opts.Ingester,
		agentSync:     opts.AgentSync,
		limiter:       opts.Limiter,
		dlq:           opts.DLQ,
		readyChecks:   opts.ReadyChecks,
		maxBodyBytes:  opts.MaxBodyBytes,
		hubspotSecret: opts.HubSpotSecret,
		logger:        logging.OrDefault(opts.Logger),
	}
	if h.limiter == nil {
		h.limiter = ratelimit.NoOpRateLimiter{}
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = defaultMaxBodyBytes
	}
	return h
}

// FailureReason classifies an ingestion error into a DLQ reason.
func FailureReason(err error) string {
	var storageErr *ledger.StorageError
	switch {
	case errors.As(err, &storageErr):
		return dlq.ReasonLedger
	case errors.Is(err, adapter.ErrNoAdapter):
		return dlq.ReasonAdapter
	default:
		return dlq.ReasonSink
	}
}
