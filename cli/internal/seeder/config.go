package seeder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Event kinds the generator can emit.
const (
	KindOutboundCall = "outbound_call"
	KindOutboundText = "outbound_text"
	KindInboundCall  = "inbound_call"
	KindInboundText  = "inbound_text"
)

var knownKinds = map[string]bool{
	KindOutboundCall: true,
	KindOutboundText: true,
	KindInboundCall:  true,
	KindInboundText:  true,
}

// Config represents the complete seeder configuration
type Config struct {
	Version  string         `mapstructure:"version" yaml:"version"`
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
}

// DefaultsConfig holds default seeder settings
type DefaultsConfig struct {
	IngestURL  string        `mapstructure:"ingest_url" yaml:"ingest_url"`
	Count      int           `mapstructure:"count" yaml:"count"`
	Duplicates float64       `mapstructure:"duplicates" yaml:"duplicates"`
	Agents     int           `mapstructure:"agents" yaml:"agents"`
	TimeSpread time.Duration `mapstructure:"time_spread" yaml:"time_spread"`
	Interval   time.Duration `mapstructure:"interval" yaml:"interval"`
	EventKinds []string      `mapstructure:"event_kinds" yaml:"event_kinds"`
	Timezones  []string      `mapstructure:"timezones" yaml:"timezones"`
	Seed       int64         `mapstructure:"seed" yaml:"seed"`
}

// LoadConfig loads configuration with cascade: flags > ./seeder.yaml > ~/.factctl/seeder.yaml > defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("seeder")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SEEDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".factctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")

	v.SetDefault("defaults.ingest_url", "http://localhost:8088")
	v.SetDefault("defaults.count", 500)
	v.SetDefault("defaults.duplicates", 0.1)
	v.SetDefault("defaults.agents", 12)
	v.SetDefault("defaults.time_spread", 7*24*time.Hour)
	v.SetDefault("defaults.interval", 0)
	v.SetDefault("defaults.event_kinds", []string{
		KindOutboundCall, KindOutboundCall, KindOutboundText, KindInboundCall, KindInboundText,
	})
	v.SetDefault("defaults.timezones", []string{
		"America/New_York", "America/Chicago", "America/Denver", "America/Los_Angeles",
	})
	v.SetDefault("defaults.seed", 0)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	d := c.Defaults
	if d.IngestURL == "" {
		return errors.New("ingest_url is required")
	}
	if d.Count < 1 {
		return fmt.Errorf("count must be positive, got %d", d.Count)
	}
	if d.Duplicates < 0 || d.Duplicates >= 1 {
		return fmt.Errorf("duplicates must be in [0, 1), got %v", d.Duplicates)
	}
	if d.Agents < 1 {
		return fmt.Errorf("agents must be positive, got %d", d.Agents)
	}
	if len(d.EventKinds) == 0 {
		return errors.New("at least one event kind is required")
	}
	for _, k := range d.EventKinds {
		if !knownKinds[k] {
			return fmt.Errorf("unknown event kind %q", k)
		}
	}
	return nil
}
