package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/ingest/internal/models"
)

func f64(v float64) *float64 { return &v }

func TestDefaultRules_Direction(t *testing.T) {
	r := DefaultRules()

	tests := []struct {
		name  string
		event string
		code  *float64
		want  Direction
	}{
		{"outbound keyword", "call.outbound.completed", nil, DirectionOutbound},
		{"outgoing keyword", "Outgoing_Text", nil, DirectionOutbound},
		{"inbound keyword", "sms.inbound.received", f64(2), DirectionInbound},
		{"keyword beats code", "call.outbound", f64(1), DirectionOutbound},
		{"code 2", "call.created", f64(2), DirectionOutbound},
		{"code 1", "call.created", f64(1), DirectionInbound},
		{"unknown code", "call.created", f64(3), DirectionUnknown},
		{"fractional code", "call.created", f64(2.5), DirectionUnknown},
		{"nothing", "call.created", nil, DirectionUnknown},
		{"empty name", "", nil, DirectionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Direction(tt.event, tt.code))
		})
	}
}

func TestDefaultRules_Metric(t *testing.T) {
	r := DefaultRules()

	tests := []struct {
		name   string
		event  string
		code   *float64
		want   models.MetricID
		wantOK bool
	}{
		{"sms keyword", "sms.outbound.delivered", nil, models.MetricTexts, true},
		{"text keyword", "outbound_text", nil, models.MetricTexts, true},
		{"call keyword", "outbound_call", nil, models.MetricCalls, true},
		{"keyword beats code", "call.outbound", f64(2), models.MetricCalls, true},
		{"type code 2", "outbound", f64(2), models.MetricTexts, true},
		{"type code 1", "outbound", f64(1), models.MetricCalls, true},
		{"inconclusive", "outbound.activity", nil, "", false},
		{"unknown code", "outbound.activity", f64(9), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Metric(tt.event, tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultRules_HubSpot(t *testing.T) {
	r := DefaultRules()

	m, ok := r.HubSpotMetric("ticket.creation")
	require.True(t, ok)
	assert.Equal(t, models.MetricCases, m)

	m, ok = r.HubSpotMetric("Email_Sent")
	require.True(t, ok)
	assert.Equal(t, models.MetricEmails, m)

	_, ok = r.HubSpotMetric("contact.creation")
	assert.False(t, ok)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown metric", "metrics:\n  - metric: VOICEMAILS\n    keywords: [vm]\n"},
		{"unknown direction", "direction:\n  codes:\n    3: sideways\n"},
		{"unknown hubspot metric", "hubspot_event_types:\n  deal.creation: DEALS\n"},
		{"unknown field", "directions: {}\n"},
		{"not yaml", "metrics: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		r, err := LoadRules("")
		require.NoError(t, err)
		_, ok := r.Metric("sms", nil)
		assert.True(t, ok)
	})

	t.Run("override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		doc := `
direction:
  outbound_keywords: [dialed]
metrics:
  - metric: CALLS
    keywords: [dialed]
`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		r, err := LoadRules(path)
		require.NoError(t, err)
		assert.Equal(t, DirectionOutbound, r.Direction("agent.dialed", nil))
		assert.Equal(t, DirectionUnknown, r.Direction("call.outbound", nil))
		_, ok := r.Metric("sms", nil)
		assert.False(t, ok)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
