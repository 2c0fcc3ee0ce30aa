package adapter

import (
	"log/slog"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

// Aloware adapts Aloware call and text webhooks. Only outbound activity is
// counted.
type Aloware struct {
	rules  *Rules
	logger *logging.Logger
}

// NewAloware creates the Aloware adapter. Nil rules use the embedded defaults.
func NewAloware(rules *Rules, logger *logging.Logger) *Aloware {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Aloware{rules: rules, logger: logging.OrDefault(logger)}
}

func (a *Aloware) Source() models.Source { return models.SourceAloware }

// alowareEvent is the normalized view of one Aloware payload.
type alowareEvent struct {
	Name      string
	ID        Optional
	Agent     Optional
	Direction *float64
	TypeCode  *float64
	CreatedAt string
	Timezone  string
}

// decodeAloware accepts three encodings:
//
//	{"event": "...", "body": {...}}                  flat
//	{"parsedBody": {"event": "...", "body": {...}}}  wrapped
//	{...}                                            bare record
//
// The flat body is used only when both event and body are present at the top
// level.
func decodeAloware(raw []byte) (alowareEvent, bool) {
	top, ok := decodeObject(raw)
	if !ok {
		return alowareEvent{}, false
	}
	wrapper := top.object("parsedBody")

	name := FirstPresent(top.text("event"), wrapper.text("event"))

	var body object
	switch {
	case top.present("body") && top.text("event").Present:
		body = top.object("body")
	case wrapper.present("body"):
		body = wrapper.object("body")
	default:
		body = top
	}
	if body == nil {
		return alowareEvent{}, false
	}

	ev := alowareEvent{
		Name:      name.Value,
		ID:        FirstPresent(body.text("id"), body.text("uuid_v4")),
		Agent:     FirstPresent(body.text("owner_id"), body.text("user_id")),
		Direction: body.number("direction"),
		TypeCode:  body.number("type"),
		CreatedAt: body.text("created_at").Value,
	}
	if contact := body.object("contact"); contact != nil {
		ev.Timezone = contact.text("timezone").Value
	}
	return ev, true
}

// Adapt classifies the payload and emits at most one fact.
func (a *Aloware) Adapt(env *models.IngestEnvelope) models.AdapterResult {
	ev, ok := decodeAloware(env.Body)
	if !ok {
		a.drop("unrecognized payload shape", "")
		return models.EmptyResult()
	}

	if dir := a.rules.Direction(ev.Name, ev.Direction); dir != DirectionOutbound {
		a.drop("not outbound", ev.Name, slog.String("direction", dir.String()))
		return models.EmptyResult()
	}

	metric, ok := a.rules.Metric(ev.Name, ev.TypeCode)
	if !ok {
		a.drop("metric not classified", ev.Name)
		return models.EmptyResult()
	}

	createdAt, ok := parseCreatedAt(ev.CreatedAt)
	if !ok {
		createdAt = env.ReceivedAt
	}

	var nameNote, tzNote, agentNote string
	if ev.Name != "" {
		nameNote = "event=" + ev.Name
	}
	if ev.Timezone != "" {
		tzNote = "tz=" + ev.Timezone
	}
	if !ev.Agent.Present {
		agentNote = "agent=" + models.UnknownAgent
	}

	id := FirstPresent(ev.ID, Some(receiptID(env)))

	return single(models.FactEventRow{
		EventID:     string(models.SourceAloware) + ":" + id.Value,
		AgentID:     ev.Agent.OrElse(models.UnknownAgent),
		FactDateKey: dateKeyIn(createdAt, ev.Timezone),
		MetricID:    metric,
		Notes:       joinNotes(nameNote, tzNote, agentNote),
	})
}

func (a *Aloware) drop(reason, eventName string, attrs ...any) {
	args := append([]any{
		logging.Source(string(models.SourceAloware)),
		logging.Reason(reason),
		slog.String("event", eventName),
	}, attrs...)
	a.logger.Debug("dropping webhook event", args...)
}
