package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// UnknownAgent is recorded when no owner field identifies the agent.
const UnknownAgent = "unknown"

// IngestEnvelope wraps one inbound webhook delivery. It is built once by the
// transport and not modified afterwards.
type IngestEnvelope struct {
	Source     Source          `json:"source"`
	Headers    http.Header     `json:"headers,omitempty"`
	Body       json.RawMessage `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
}

// FactEventRow is one canonical fact. The JSON names are the column names of
// the FactEvent table.
type FactEventRow struct {
	EventID     string   `json:"EventID"`
	AgentID     string   `json:"AgentID"`
	FactDateKey string   `json:"FactDateKey"`
	MetricID    MetricID `json:"MetricID"`
	Notes       string   `json:"Notes"`
}

// DimHints lists the dimension keys touched by a batch, first-seen order.
type DimHints struct {
	AgentIDs []string   `json:"agent_ids"`
	Dates    []string   `json:"dates"`
	Metrics  []MetricID `json:"metrics"`
}

// Empty reports whether the hints reference no dimension keys.
func (h DimHints) Empty() bool {
	return len(h.AgentIDs) == 0 && len(h.Dates) == 0 && len(h.Metrics) == 0
}

// BuildHints collects the distinct agents, dates and metrics of rows.
func BuildHints(rows []FactEventRow) DimHints {
	hints := DimHints{
		AgentIDs: []string{},
		Dates:    []string{},
		Metrics:  []MetricID{},
	}
	agents := make(map[string]struct{})
	dates := make(map[string]struct{})
	metrics := make(map[MetricID]struct{})

	for _, r := range rows {
		if _, ok := agents[r.AgentID]; !ok {
			agents[r.AgentID] = struct{}{}
			hints.AgentIDs = append(hints.AgentIDs, r.AgentID)
		}
		if _, ok := dates[r.FactDateKey]; !ok {
			dates[r.FactDateKey] = struct{}{}
			hints.Dates = append(hints.Dates, r.FactDateKey)
		}
		if _, ok := metrics[r.MetricID]; !ok {
			metrics[r.MetricID] = struct{}{}
			hints.Metrics = append(hints.Metrics, r.MetricID)
		}
	}
	return hints
}

// AdapterResult is what a source adapter produces for one envelope.
type AdapterResult struct {
	Events []FactEventRow
	Hints  DimHints
}

// EmptyResult is the result of an envelope that yields no facts.
func EmptyResult() AdapterResult {
	return AdapterResult{Events: []FactEventRow{}, Hints: BuildHints(nil)}
}

// DedupKey is the ledger key of an event: source and event id joined by ':'.
func DedupKey(source Source, eventID string) string {
	return string(source) + ":" + eventID
}

// LedgerEntry is the record persisted once per admitted dedup key.
type LedgerEntry struct {
	Key       string    `json:"key"`
	SeenAt    time.Time `json:"seen_at"`
	ExpiresAt int64     `json:"expires_at"`
}

// IngestResult summarizes one ingestion call.
type IngestResult struct {
	Processed int `json:"processed"`
	Posted    int `json:"posted"`
}
