package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/factflow-systems/factflow/ingest/internal/dims"
	"github.com/factflow-systems/factflow/ingest/internal/models"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Aloware   AlowareConfig   `mapstructure:"aloware"`
	Roster    RosterConfig    `mapstructure:"roster"`
	Adapter   AdapterConfig   `mapstructure:"adapter"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Dims      DimsConfig      `mapstructure:"dims"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	HubSpot   HubSpotConfig   `mapstructure:"hubspot"`
	DLQ       DLQConfig       `mapstructure:"dlq"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
)

type LedgerConfig struct {
	Backend   string         `mapstructure:"backend"`
	TTL       time.Duration  `mapstructure:"ttl"`
	KeyPrefix string         `mapstructure:"key_prefix"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	DSN            string        `mapstructure:"dsn"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type AlowareConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIToken    string        `mapstructure:"api_token"`
	RingGroupID string        `mapstructure:"ring_group_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RosterConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AdapterConfig struct {
	RulesPath string `mapstructure:"rules_path"`
}

// Sink backends.
const (
	SinkLog        = "log"
	SinkOpenSearch = "opensearch"
	SinkPowerBI    = "powerbi"
)

type SinkConfig struct {
	Backend    string           `mapstructure:"backend"`
	PowerBI    PowerBIConfig    `mapstructure:"powerbi"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
}

type PowerBIConfig struct {
	TenantID     string        `mapstructure:"tenant_id"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	WorkspaceID  string        `mapstructure:"workspace_id"`
	DatasetID    string        `mapstructure:"dataset_id"`
	BaseURL      string        `mapstructure:"base_url"`
	AuthorityURL string        `mapstructure:"authority_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type OpenSearchConfig struct {
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	IndexPrefix   string `mapstructure:"index_prefix"`
}

type GoalConfig struct {
	DefaultGoal    int64   `mapstructure:"default_goal"`
	YellowFloorPct float64 `mapstructure:"yellow_floor_pct"`
}

type DimsConfig struct {
	// Goals is keyed by metric name, case-insensitive.
	Goals map[string]GoalConfig `mapstructure:"goals"`
}

type IngestionConfig struct {
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type HubSpotConfig struct {
	// ClientSecret enables signature verification when set.
	ClientSecret string `mapstructure:"client_secret"`
}

// DLQ backends.
const (
	DLQFile      = "file"
	DLQJetStream = "jetstream"
)

type DLQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Backend  string `mapstructure:"backend"`
	NATSURL  string `mapstructure:"nats_url"`
	BasePath string `mapstructure:"base_path"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("ledger.backend", LedgerMemory)
	v.SetDefault("ledger.ttl", "336h")
	v.SetDefault("ledger.key_prefix", "ledger:")
	v.SetDefault("ledger.postgres.dsn", "")
	v.SetDefault("ledger.postgres.migrations_path", "file://ingest/migrations")
	v.SetDefault("ledger.postgres.sweep_interval", "1h")
	v.SetDefault("aloware.base_url", "https://app.aloware.com")
	v.SetDefault("aloware.api_token", "")
	v.SetDefault("aloware.ring_group_id", "")
	v.SetDefault("aloware.timeout", "10s")
	v.SetDefault("roster.enabled", false)
	v.SetDefault("adapter.rules_path", "")
	v.SetDefault("sink.backend", SinkLog)
	v.SetDefault("sink.powerbi.tenant_id", "")
	v.SetDefault("sink.powerbi.client_id", "")
	v.SetDefault("sink.powerbi.client_secret", "")
	v.SetDefault("sink.powerbi.workspace_id", "")
	v.SetDefault("sink.powerbi.dataset_id", "")
	v.SetDefault("sink.powerbi.base_url", "https://api.powerbi.com/v1.0/myorg")
	v.SetDefault("sink.powerbi.authority_url", "https://login.microsoftonline.com")
	v.SetDefault("sink.powerbi.timeout", "30s")
	v.SetDefault("sink.opensearch.url", "https://localhost:9200")
	v.SetDefault("sink.opensearch.username", "admin")
	v.SetDefault("sink.opensearch.password", "")
	v.SetDefault("sink.opensearch.tls_skip_verify", true)
	v.SetDefault("sink.opensearch.index_prefix", "factflow")
	v.SetDefault("ingestion.max_body_bytes", 1048576)
	v.SetDefault("ingestion.rate_limit_enabled", true)
	v.SetDefault("ingestion.rate_limit_requests", 600)
	v.SetDefault("ingestion.rate_limit_window", "1m")
	v.SetDefault("hubspot.client_secret", "")
	v.SetDefault("dlq.enabled", true)
	v.SetDefault("dlq.backend", DLQFile)
	v.SetDefault("dlq.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("dlq.base_path", "/var/lib/factflow/dlq")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/factflow/ingest")
	}

	// FACTFLOW_SINK_POWERBI_CLIENT_SECRET overrides sink.powerbi.client_secret
	v.SetEnvPrefix("FACTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend names and the settings each backend depends on.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerRedis:
		if !c.Redis.Enabled {
			return errors.New("ledger backend redis requires redis.enabled")
		}
	case LedgerPostgres:
		if c.Ledger.Postgres.DSN == "" {
			return errors.New("ledger backend postgres requires ledger.postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Ledger.TTL <= 0 {
		return fmt.Errorf("ledger.ttl must be positive, got %s", c.Ledger.TTL)
	}

	switch c.Sink.Backend {
	case SinkLog, SinkOpenSearch, SinkPowerBI:
	default:
		return fmt.Errorf("unknown sink backend %q", c.Sink.Backend)
	}

	if c.DLQ.Enabled {
		switch c.DLQ.Backend {
		case DLQFile, DLQJetStream:
		default:
			return fmt.Errorf("unknown dlq backend %q", c.DLQ.Backend)
		}
	}

	if _, err := c.MetricGoals(); err != nil {
		return err
	}
	return nil
}

// MetricGoals returns the default goals with configured overrides applied.
func (c *Config) MetricGoals() (map[models.MetricID]dims.Goal, error) {
	goals := dims.DefaultGoals()
	for name, g := range c.Dims.Goals {
		m, err := models.ParseMetric(name)
		if err != nil {
			return nil, fmt.Errorf("dims.goals: %w", err)
		}
		goals[m] = dims.Goal{DefaultGoal: g.DefaultGoal, YellowFloorPct: g.YellowFloorPct}
	}
	return goals, nil
}

// RosterGroups maps each source to the ring group whose members may post
// facts. Sources without an entry are not filtered.
func (c *Config) RosterGroups() map[models.Source]string {
	groups := map[models.Source]string{}
	if c.Roster.Enabled && c.Aloware.RingGroupID != "" {
		groups[models.SourceAloware] = c.Aloware.RingGroupID
	}
	return groups
}
