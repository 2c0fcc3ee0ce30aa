// Package adapter turns source-specific webhook payloads into canonical fact rows.
//
// Adapters never return errors: payloads that cannot be classified are dropped
// and logged at debug level.
package adapter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// ErrNoAdapter is returned when no adapter is registered for a source.
var ErrNoAdapter = errors.New("no adapter registered for source")

// Adapter maps one envelope of a single source to zero or more fact rows.
type Adapter interface {
	Source() models.Source
	Adapt(env *models.IngestEnvelope) models.AdapterResult
}

// Registry selects the adapter for an envelope's source.
type Registry struct {
	adapters map[models.Source]Adapter
}

// NewRegistry registers adapters by their Source. A later adapter for the
// same source replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Source]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Source()] = a
	}
	return r
}

// Find returns the adapter registered for source.
func (r *Registry) Find(source models.Source) (Adapter, error) {
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, source)
	}
	return a, nil
}

// Sources lists registered sources in lexical order.
func (r *Registry) Sources() []models.Source {
	out := make([]models.Source, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func receiptID(env *models.IngestEnvelope) string {
	return strconv.FormatInt(env.ReceivedAt.UnixMilli(), 10)
}

func joinNotes(pieces ...string) string {
	kept := pieces[:0:0]
	for _, p := range pieces {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ";")
}

func single(row models.FactEventRow) models.AdapterResult {
	rows := []models.FactEventRow{row}
	return models.AdapterResult{Events: rows, Hints: models.BuildHints(rows)}
}
