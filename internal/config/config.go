package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models opsdesk.yml.
type Config struct {
	Business struct {
		Name     string `yaml:"name"`
		Currency string `yaml:"currency"`
	} `yaml:"business"`
	Scoring struct {
		// ClientRule selects the client importance rule: constant or history.
		ClientRule string   `yaml:"client_rule"`
		// TeamLoad overrides the load derived from staff when set.
		TeamLoad   *float64 `yaml:"team_load"`
	} `yaml:"scoring"`
	Inventory struct {
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"inventory"`
	Decisions struct {
		Backend     string `yaml:"backend"`
		RedisURL    string `yaml:"redis_url"`
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"decisions"`
	Log      LogConfig    `yaml:"log"`
	Server   ServerConfig `yaml:"server"`
	Webhooks []Webhook    `yaml:"webhooks"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Addr             string `yaml:"addr"`
	BasePath         string `yaml:"base_path"`
	JWTSecret        string `yaml:"jwt_secret"`
	AllowActorHeader bool   `yaml:"allow_actor_header"`
}

type Webhook struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with opsdesk config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Scoring.ClientRule {
	case "", "constant", "history":
	default:
		return fmt.Errorf("config.scoring.client_rule must be constant or history")
	}
	if c.Scoring.TeamLoad != nil && (*c.Scoring.TeamLoad < 0 || *c.Scoring.TeamLoad > 100) {
		return fmt.Errorf("config.scoring.team_load must be within [0,100]")
	}
	if c.Inventory.SweepInterval != "" {
		d, err := time.ParseDuration(c.Inventory.SweepInterval)
		if err != nil {
			return fmt.Errorf("config.inventory.sweep_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config.inventory.sweep_interval must be positive")
		}
	}
	switch c.Decisions.Backend {
	case "", BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Decisions.RedisURL == "" {
			return fmt.Errorf("config.decisions.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("config.decisions.backend must be sqlite, memory or redis")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	for i, h := range c.Webhooks {
		if h.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if h.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must be >= 0", i)
		}
	}
	return nil
}

// SweepInterval returns the parsed restock sweep interval, zero when disabled.
func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Inventory.SweepInterval)
	return d
}

// Backend returns the decision backend, defaulting to sqlite.
func (c *Config) Backend() string {
	if c.Decisions.Backend == "" {
		return BackendSQLite
	}
	return c.Decisions.Backend
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "opsdesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(businessName string) string {
	return fmt.Sprintf(defaultTemplate, businessName)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default(businessName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, businessName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `business:
  name: %q
  currency: INR

scoring:
  client_rule: constant

inventory:
  sweep_interval: ""

decisions:
  backend: sqlite

log:
  level: info
  format: text
  max_size_mb: 50
  max_backups: 3
  max_age_days: 28

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  allow_actor_header: true
`
