package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{"aloware", SourceAloware, false},
		{"ALOWARE", SourceAloware, false},
		{" HubSpot ", SourceHubSpot, false},
		{"twilio", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownSource))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSourceSlug(t *testing.T) {
	assert.Equal(t, "aloware", SourceAloware.Slug())
	assert.Equal(t, "hubspot", SourceHubSpot.Slug())
}

func TestParseMetric(t *testing.T) {
	for _, m := range AllMetrics() {
		got, err := ParseMetric(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMetric("texts")
	require.NoError(t, err)
	assert.Equal(t, MetricTexts, got)

	_, err = ParseMetric("VOICEMAILS")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMetricDisplayName(t *testing.T) {
	assert.Equal(t, "Calls", MetricCalls.DisplayName())
	assert.Equal(t, "Cases", MetricCases.DisplayName())
	assert.Equal(t, "OTHER", MetricID("OTHER").DisplayName())
}

func TestBuildHints(t *testing.T) {
	rows := []FactEventRow{
		{EventID: "a", AgentID: "7", FactDateKey: "2024-03-10", MetricID: MetricCalls},
		{EventID: "b", AgentID: "8", FactDateKey: "2024-03-10", MetricID: MetricTexts},
		{EventID: "c", AgentID: "7", FactDateKey: "2024-03-11", MetricID: MetricCalls},
	}

	hints := BuildHints(rows)

	assert.Equal(t, []string{"7", "8"}, hints.AgentIDs)
	assert.Equal(t, []string{"2024-03-10", "2024-03-11"}, hints.Dates)
	assert.Equal(t, []MetricID{MetricCalls, MetricTexts}, hints.Metrics)
	assert.False(t, hints.Empty())
}

func TestBuildHints_Empty(t *testing.T) {
	hints := BuildHints(nil)
	assert.True(t, hints.Empty())
	assert.NotNil(t, hints.AgentIDs)

	res := EmptyResult()
	assert.Empty(t, res.Events)
	assert.True(t, res.Hints.Empty())
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "ALOWARE:ALOWARE:123", DedupKey(SourceAloware, "ALOWARE:123"))
}

func TestFactEventRow_WireNames(t *testing.T) {
	row := FactEventRow{EventID: "ALOWARE:1", AgentID: "42", FactDateKey: "2024-01-02", MetricID: MetricTexts}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"EventID":"ALOWARE:1","AgentID":"42","FactDateKey":"2024-01-02","MetricID":"TEXTS","Notes":""}`, string(b))
}

func TestIngestResult_JSON(t *testing.T) {
	b, err := json.Marshal(IngestResult{Processed: 1, Posted: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed":1,"posted":1}`, string(b))
}
