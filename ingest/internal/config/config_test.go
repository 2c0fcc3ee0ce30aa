package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factflow-systems/factflow/ingest/internal/dims"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_WithDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, LedgerMemory, cfg.Ledger.Backend)
	assert.Equal(t, 14*24*time.Hour, cfg.Ledger.TTL)
	assert.Equal(t, SinkLog, cfg.Sink.Backend)
	assert.Equal(t, "https://api.powerbi.com/v1.0/myorg", cfg.Sink.PowerBI.BaseURL)
	assert.Equal(t, "factflow", cfg.Sink.OpenSearch.IndexPrefix)
	assert.Equal(t, int64(1048576), cfg.Ingestion.MaxBodyBytes)
	assert.True(t, cfg.Ingestion.RateLimitEnabled)
	assert.Equal(t, time.Minute, cfg.Ingestion.RateLimitWindow)
	assert.True(t, cfg.DLQ.Enabled)
	assert.Equal(t, DLQFile, cfg.DLQ.Backend)
	assert.Empty(t, cfg.HubSpot.ClientSecret)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
redis:
  enabled: true
ledger:
  backend: redis
  ttl: 48h
aloware:
  ring_group_id: "42"
roster:
  enabled: true
sink:
  backend: powerbi
  powerbi:
    tenant_id: t1
    workspace_id: ws
dims:
  goals:
    CALLS:
      default_goal: 75
      yellow_floor_pct: 0.9
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, LedgerRedis, cfg.Ledger.Backend)
	assert.Equal(t, 48*time.Hour, cfg.Ledger.TTL)
	assert.Equal(t, "t1", cfg.Sink.PowerBI.TenantID)
	assert.Equal(t, map[models.Source]string{models.SourceAloware: "42"}, cfg.RosterGroups())

	goals, err := cfg.MetricGoals()
	require.NoError(t, err)
	assert.Equal(t, dims.Goal{DefaultGoal: 75, YellowFloorPct: 0.9}, goals[models.MetricCalls])
	assert.Equal(t, dims.DefaultGoals()[models.MetricTexts], goals[models.MetricTexts])
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FACTFLOW_SINK_POWERBI_CLIENT_SECRET", "from-env")
	t.Setenv("FACTFLOW_SERVER_PORT", "9100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Sink.PowerBI.ClientSecret)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: yaml: : :"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown ledger", "ledger:\n  backend: dynamo\n", "unknown ledger backend"},
		{"redis ledger without redis", "ledger:\n  backend: redis\n", "requires redis.enabled"},
		{"postgres ledger without dsn", "ledger:\n  backend: postgres\n", "requires ledger.postgres.dsn"},
		{"zero ttl", "ledger:\n  ttl: 0s\n", "ledger.ttl must be positive"},
		{"unknown sink", "sink:\n  backend: kafka\n", "unknown sink backend"},
		{"unknown dlq", "dlq:\n  backend: s3\n", "unknown dlq backend"},
		{"unknown metric goal", "dims:\n  goals:\n    meetings:\n      default_goal: 1\n", "unknown metric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRosterGroups_Disabled(t *testing.T) {
	cfg := &Config{Aloware: AlowareConfig{RingGroupID: "42"}}
	assert.Empty(t, cfg.RosterGroups())
}
