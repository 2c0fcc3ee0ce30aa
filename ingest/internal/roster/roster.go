// Package roster restricts admitted events to agents on an authoritative
// roster fetched fresh for each ingestion call.
package roster

import (
	"context"
	"fmt"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/metrics"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// Fetcher returns the set of agent ids currently in a roster group.
type Fetcher interface {
	FetchRoster(ctx context.Context, groupID string) (map[string]struct{}, error)
}

// FetchError reports a roster that could not be retrieved.
type FetchError struct {
	GroupID string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("roster fetch for group %q: %v", e.GroupID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Filter applies the roster for sources that have a group configured.
type Filter struct {
	fetcher Fetcher
	groups  map[models.Source]string
	logger  *logging.Logger
}

// NewFilter creates a filter. Sources missing from groups pass through.
func NewFilter(fetcher Fetcher, groups map[models.Source]string, logger *logging.Logger) *Filter {
	return &Filter{fetcher: fetcher, groups: groups, logger: logging.OrDefault(logger)}
}

// Apply keeps rows whose agent is on the roster. A failed fetch is logged and
// the rows are returned unchanged.
func (f *Filter) Apply(ctx context.Context, source models.Source, rows []models.FactEventRow) []models.FactEventRow {
	if f == nil || f.fetcher == nil || len(rows) == 0 {
		return rows
	}
	groupID := f.groups[source]
	if groupID == "" {
		return rows
	}

	members, err := f.fetcher.FetchRoster(ctx, groupID)
	if err != nil {
		metrics.RosterFailures.WithLabelValues(string(source)).Inc()
		f.logger.WarnContext(ctx, "roster fetch failed, skipping roster filter",
			logging.Source(string(source)),
			logging.Error(err),
		)
		return rows
	}

	kept := make([]models.FactEventRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := members[r.AgentID]; ok {
			kept = append(kept, r)
			continue
		}
		f.logger.DebugContext(ctx, "agent not on roster, dropping event",
			logging.Source(string(source)),
			logging.EventID(r.EventID),
			logging.AgentID(r.AgentID),
		)
	}
	if dropped := len(rows) - len(kept); dropped > 0 {
		metrics.RosterFiltered.WithLabelValues(string(source)).Add(float64(dropped))
	}
	return kept
}
