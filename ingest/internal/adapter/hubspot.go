package adapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

const hubspotOwnerProperty = "hubspot_owner_id"

// HubSpot adapts HubSpot webhook batches. HubSpot activity is always
// agent-initiated so there is no direction filter.
type HubSpot struct {
	rules  *Rules
	logger *logging.Logger
}

// NewHubSpot creates the HubSpot adapter. Nil rules use the embedded defaults.
func NewHubSpot(rules *Rules, logger *logging.Logger) *HubSpot {
	if rules == nil {
		rules = DefaultRules()
	}
	return &HubSpot{rules: rules, logger: logging.OrDefault(logger)}
}

func (h *HubSpot) Source() models.Source { return models.SourceHubSpot }

// decodeHubSpot accepts a JSON array of event objects or a single object.
func decodeHubSpot(raw []byte) ([]object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	if raw[0] == '{' {
		o, ok := decodeObject(raw)
		if !ok {
			return nil, false
		}
		return []object{o}, true
	}
	if raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]object, 0, len(items))
	for _, item := range items {
		if o, ok := decodeObject(item); ok {
			out = append(out, o)
		}
	}
	return out, true
}

// Adapt emits one fact per classifiable event in the batch.
func (h *HubSpot) Adapt(env *models.IngestEnvelope) models.AdapterResult {
	items, ok := decodeHubSpot(env.Body)
	if !ok {
		h.drop("unrecognized payload shape", "")
		return models.EmptyResult()
	}

	rows := make([]models.FactEventRow, 0, len(items))
	for _, item := range items {
		if row, ok := h.adaptOne(env, item); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return models.EmptyResult()
	}
	return models.AdapterResult{Events: rows, Hints: models.BuildHints(rows)}
}

func (h *HubSpot) adaptOne(env *models.IngestEnvelope, item object) (models.FactEventRow, bool) {
	eventType := FirstPresent(item.text("subscriptionType"), item.text("eventType"))
	metric, ok := h.rules.HubSpotMetric(eventType.Value)
	if !ok {
		h.drop("metric not classified", eventType.Value)
		return models.FactEventRow{}, false
	}

	agent := FirstPresent(hubspotUserID(item), hubspotOwner(item))

	occurredAt := env.ReceivedAt
	if ms := item.number("occurredAt"); ms != nil {
		if t, ok := fromUnixMilli(*ms); ok {
			occurredAt = t
		}
	}

	id := FirstPresent(item.text("eventId"), hubspotObjectKey(item, eventType.Value), Some(receiptID(env)))

	var agentNote string
	if !agent.Present {
		agentNote = "agent=" + models.UnknownAgent
	}

	return models.FactEventRow{
		EventID:     string(models.SourceHubSpot) + ":" + id.Value,
		AgentID:     agent.OrElse(models.UnknownAgent),
		FactDateKey: dateKeyIn(occurredAt, ""),
		MetricID:    metric,
		Notes:       joinNotes("event="+eventType.Value, agentNote),
	}, true
}

// hubspotObjectKey identifies an event by the object it touched and its type.
func hubspotObjectKey(item object, eventType string) Optional {
	objectID := item.text("objectId")
	if !objectID.Present {
		return None()
	}
	return Some(objectID.Value + ":" + strings.ToLower(eventType))
}

// hubspotUserID extracts n from a "userId:n" sourceId.
func hubspotUserID(item object) Optional {
	src := item.text("sourceId")
	if !src.Present {
		return None()
	}
	id, ok := strings.CutPrefix(src.Value, "userId:")
	if !ok || id == "" {
		return None()
	}
	return Some(id)
}

func hubspotOwner(item object) Optional {
	if item.text("propertyName").Value != hubspotOwnerProperty {
		return None()
	}
	return item.text("propertyValue")
}

func (h *HubSpot) drop(reason, eventType string) {
	h.logger.Debug("dropping webhook event",
		logging.Source(string(models.SourceHubSpot)),
		logging.Reason(reason),
		slog.String("event", eventType),
	)
}
