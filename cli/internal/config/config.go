package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIngestURL = "http://localhost:8088"
	DefaultTimeout   = 30 * time.Second
)

type Config struct {
	CurrentProfile string              `mapstructure:"current_profile" yaml:"current_profile"`
	Profiles       map[string]*Profile `mapstructure:"profiles" yaml:"profiles"`
	Timeout        time.Duration       `mapstructure:"timeout" yaml:"timeout"`
	path           string
}

// Profile points factctl at one ingest deployment.
type Profile struct {
	IngestURL     string `mapstructure:"ingest_url" yaml:"ingest_url"`
	HubSpotSecret string `mapstructure:"hubspot_secret" yaml:"hubspot_secret,omitempty"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
		Timeout:        DefaultTimeout,
	}
}

// DefaultPath is $HOME/.factctl/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".factctl", "config.yaml"), nil
}

// Load reads cfgFile (or the default path). A missing file yields defaults.
// FACTCTL_CURRENT_PROFILE and FACTCTL_TIMEOUT override the file.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FACTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("current_profile", "default")
	v.SetDefault("timeout", DefaultTimeout)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	cfg.path = cfgFile
	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

func (c *Config) SaveProfile(name, ingestURL, hubspotSecret string) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	c.Profiles[name] = &Profile{
		IngestURL:     strings.TrimRight(ingestURL, "/"),
		HubSpotSecret: hubspotSecret,
	}
	c.CurrentProfile = name
	return c.Save()
}

// GetProfile returns the named profile, or the current one when name is
// empty. The implicit "default" profile targets a local service.
func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if name == "default" {
		return &Profile{IngestURL: DefaultIngestURL}, nil
	}
	return nil, fmt.Errorf("profile '%s' not found", name)
}

func (c *Config) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	delete(c.Profiles, name)
	if c.CurrentProfile == name {
		c.CurrentProfile = "default"
	}
	return c.Save()
}
