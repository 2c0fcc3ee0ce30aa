// Package dedup removes repeated events from a single adapter output.
package dedup

import "github.com/factflow-systems/factflow/ingest/internal/models"

// WithinBatch keeps the first occurrence of each EventID, preserving order.
func WithinBatch(rows []models.FactEventRow) []models.FactEventRow {
	seen := make(map[string]struct{}, len(rows))
	out := make([]models.FactEventRow, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.EventID]; dup {
			continue
		}
		seen[r.EventID] = struct{}{}
		out = append(out, r)
	}
	return out
}
