package adapter

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/common/logging"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

func hubspotEnv(body string) *models.IngestEnvelope {
	return &models.IngestEnvelope{
		Source:     models.SourceHubSpot,
		Body:       []byte(body),
		ReceivedAt: receivedAt,
	}
}

func newHubSpot() *HubSpot {
	return NewHubSpot(nil, logging.Nop())
}

func TestHubSpot_Batch(t *testing.T) {
	occurred := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC).UnixMilli()
	body := `[
		{"eventId": 100, "subscriptionType": "ticket.creation", "objectId": 1, "sourceId": "userId:77", "occurredAt": ` + strconv.FormatInt(occurred, 10) + `},
		{"eventId": 101, "subscriptionType": "contact.creation", "objectId": 2},
		{"eventId": 102, "eventType": "email_sent", "propertyName": "hubspot_owner_id", "propertyValue": "88"}
	]`

	res := newHubSpot().Adapt(hubspotEnv(body))

	require.Len(t, res.Events, 2)

	assert.Equal(t, "HUBSPOT:100", res.Events[0].EventID)
	assert.Equal(t, "77", res.Events[0].AgentID)
	assert.Equal(t, models.MetricCases, res.Events[0].MetricID)
	assert.Equal(t, "2024-02-29", res.Events[0].FactDateKey)

	assert.Equal(t, "HUBSPOT:102", res.Events[1].EventID)
	assert.Equal(t, "88", res.Events[1].AgentID)
	assert.Equal(t, models.MetricEmails, res.Events[1].MetricID)
	assert.Equal(t, "2024-05-01", res.Events[1].FactDateKey)

	assert.Equal(t, []string{"77", "88"}, res.Hints.AgentIDs)
	assert.Equal(t, []models.MetricID{models.MetricCases, models.MetricEmails}, res.Hints.Metrics)
}

func TestHubSpot_OutOfRangeOccurredAtUsesReceipt(t *testing.T) {
	for _, occurred := range []string{"1e300", "-5", "9999999999999999"} {
		res := newHubSpot().Adapt(hubspotEnv(`{"eventId":"e-1","subscriptionType":"ticket.creation","occurredAt":` + occurred + `}`))
		require.Len(t, res.Events, 1, occurred)
		assert.Equal(t, "2024-05-01", res.Events[0].FactDateKey, occurred)
	}
}

func TestHubSpot_SingleObject(t *testing.T) {
	res := newHubSpot().Adapt(hubspotEnv(`{"eventId":"e-1","subscriptionType":"case_created"}`))

	require.Len(t, res.Events, 1)
	assert.Equal(t, models.UnknownAgent, res.Events[0].AgentID)
	assert.Equal(t, "event=case_created;agent=unknown", res.Events[0].Notes)
}

func TestHubSpot_IDFallbacks(t *testing.T) {
	res := newHubSpot().Adapt(hubspotEnv(`{"objectId": 555, "subscriptionType": "Ticket.Creation"}`))
	require.Len(t, res.Events, 1)
	assert.Equal(t, "HUBSPOT:555:ticket.creation", res.Events[0].EventID)

	res = newHubSpot().Adapt(hubspotEnv(`{"subscriptionType": "ticket.creation"}`))
	require.Len(t, res.Events, 1)
	assert.Equal(t, "HUBSPOT:1714564800000", res.Events[0].EventID)
}

func TestHubSpot_DuplicateIDsInBatch(t *testing.T) {
	res := newHubSpot().Adapt(hubspotEnv(`[
		{"eventId": 1, "subscriptionType": "ticket.creation"},
		{"eventId": 1, "subscriptionType": "ticket.creation"}
	]`))
	// The adapter does not dedup; that is the batch deduplicator's job.
	assert.Len(t, res.Events, 2)
}

func TestHubSpot_OwnerPropertyOnlyForOwnerField(t *testing.T) {
	res := newHubSpot().Adapt(hubspotEnv(`{"eventId":1,"subscriptionType":"ticket.creation","propertyName":"dealstage","propertyValue":"won"}`))
	require.Len(t, res.Events, 1)
	assert.Equal(t, models.UnknownAgent, res.Events[0].AgentID)
}

func TestHubSpot_SourceIDWithoutUserPrefix(t *testing.T) {
	res := newHubSpot().Adapt(hubspotEnv(`{"eventId":1,"subscriptionType":"ticket.creation","sourceId":"integration:4"}`))
	require.Len(t, res.Events, 1)
	assert.Equal(t, models.UnknownAgent, res.Events[0].AgentID)
}

func TestHubSpot_Unrecognized(t *testing.T) {
	for _, body := range []string{``, `"x"`, `[1,2]`, `{"eventId":1}`, `[{`} {
		res := newHubSpot().Adapt(hubspotEnv(body))
		assert.Empty(t, res.Events, body)
		assert.True(t, res.Hints.Empty())
	}
}
