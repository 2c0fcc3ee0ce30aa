// Package pipeline sequences one webhook delivery through adapter, batch
// dedup, roster filter and ledger, then hands admitted rows to the sinks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/adapter"
	"github.com/factflow-systems/factflow/ingest/internal/dedup"
	"github.com/factflow-systems/factflow/ingest/internal/ledger"
	"github.com/factflow-systems/factflow/ingest/internal/metrics"
	"github.com/factflow-systems/factflow/ingest/internal/models"
	"github.com/factflow-systems/factflow/ingest/internal/roster"
)

// DimensionEnsurer upserts the dimension rows referenced by a batch.
type DimensionEnsurer interface {
	EnsureDimensions(ctx context.Context, hints models.DimHints) error
}

// FactPoster writes fact rows and reports how many the sink accepted.
type FactPoster interface {
	PostFacts(ctx context.Context, rows []models.FactEventRow) (int, error)
}

// Orchestrator runs the ingestion steps strictly in order. It holds no state
// between calls; the ledger is the only shared resource.
type Orchestrator struct {
	registry *adapter.Registry
	roster   *roster.Filter
	ledger   ledger.Ledger
	dims     DimensionEnsurer
	facts    FactPoster
	logger   *logging.Logger
}

// New wires an orchestrator. A nil roster filter disables roster gating.
func New(reg *adapter.Registry, rf *roster.Filter, l ledger.Ledger, dims DimensionEnsurer, facts FactPoster, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		roster:   rf,
		ledger:   l,
		dims:     dims,
		facts:    facts,
		logger:   logging.OrDefault(logger),
	}
}

// Ingest processes one envelope. A ledger failure aborts the call; rows
// admitted before it stay marked, so a retry of the same delivery only
// attempts the remainder.
func (o *Orchestrator) Ingest(ctx context.Context, env *models.IngestEnvelope) (*models.IngestResult, error) {
	source := string(env.Source)
	start := time.Now()
	defer func() {
		metrics.IngestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	a, err := o.registry.Find(env.Source)
	if err != nil {
		return nil, err
	}

	result := a.Adapt(env)
	metrics.AdapterEvents.WithLabelValues(source).Add(float64(len(result.Events)))

	unique := dedup.WithinBatch(result.Events)
	if dup := len(result.Events) - len(unique); dup > 0 {
		metrics.BatchDuplicates.WithLabelValues(source).Add(float64(dup))
		o.logger.DebugContext(ctx, "removed duplicate events within delivery",
			logging.Source(source),
			logging.Count(dup),
		)
	}

	candidates := o.roster.Apply(ctx, env.Source, unique)

	kept := make([]models.FactEventRow, 0, len(candidates))
	for _, ev := range candidates {
		key := models.DedupKey(env.Source, ev.EventID)
		admitted, err := o.ledger.CheckAndMark(ctx, key)
		if err != nil {
			metrics.LedgerErrors.WithLabelValues(source).Inc()
			return nil, fmt.Errorf("ledger check for %s: %w", key, err)
		}
		if !admitted {
			metrics.LedgerDuplicates.WithLabelValues(source).Inc()
			o.logger.DebugContext(ctx, "event already admitted, skipping",
				logging.Source(source),
				logging.DedupKey(key),
			)
			continue
		}
		kept = append(kept, ev)
	}
	metrics.EventsAdmitted.WithLabelValues(source).Add(float64(len(kept)))

	if err := o.dims.EnsureDimensions(ctx, models.BuildHints(kept)); err != nil {
		return nil, fmt.Errorf("ensure dimensions: %w", err)
	}

	posted, err := o.facts.PostFacts(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("post facts: %w", err)
	}

	res := &models.IngestResult{Processed: len(kept), Posted: posted}
	o.logger.InfoContext(ctx, "ingestion complete",
		logging.Source(source),
		slog.Int("adapter_events", len(result.Events)),
		slog.Int("processed", res.Processed),
		slog.Int("posted", res.Posted),
	)
	return res, nil
}
