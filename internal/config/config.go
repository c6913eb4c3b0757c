package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig  BasicConfig               `json:"basic_config"`
	Orchestrator OrchestratorConfig        `json:"orchestrator"`
	Providers    map[string]ProviderConfig `json:"providers"`
	Databases    map[string]DatabaseConfig `json:"databases"`
	Redis        RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// DemoMode forces every role onto templated replies; no provider is
	// ever called while it is set.
	DemoMode bool `json:"demo_mode"`
}

// ProviderConfig is the process-wide fallback for roles whose own
// credentials are missing or invalid.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// OrchestratorConfig holds the group-chat pacing tunables. Zero values mean
// "use the default"; call Normalize before use.
type OrchestratorConfig struct {
	BatchSize           int `json:"batch_size"`
	BatchDelayMS        int `json:"batch_delay_ms"`
	PerRoleDelayMS      int `json:"per_role_delay_ms"`
	FirstMessageDelayMS int `json:"first_message_delay_ms"`
	RequestTimeoutMS    int `json:"request_timeout_ms"`
}

const (
	DefaultBatchSize      = 3
	DefaultRequestTimeout = 30 * time.Second
)

// Normalize fills unset tunables with their documented defaults.
func (c OrchestratorConfig) Normalize() OrchestratorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.RequestTimeoutMS <= 0 {
		c.RequestTimeoutMS = int(DefaultRequestTimeout / time.Millisecond)
	}
	if c.BatchDelayMS < 0 {
		c.BatchDelayMS = 0
	}
	if c.PerRoleDelayMS < 0 {
		c.PerRoleDelayMS = 0
	}
	if c.FirstMessageDelayMS < 0 {
		c.FirstMessageDelayMS = 0
	}
	return c
}

// RequestTimeout returns the per-completion deadline as a duration.
func (c OrchestratorConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// relativeSQLiteDSN reports whether the DSN is a plain relative file path
// that should be resolved against the config directory. In-memory and
// file: URI DSNs pass through untouched.
func relativeSQLiteDSN(dsn string) bool {
	if dsn == "" || dsn == ":memory:" {
		return false
	}
	if strings.HasPrefix(dsn, "file:") {
		return false
	}
	return !filepath.IsAbs(dsn)
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	for name, db := range cfg.Databases {
		if (name == "sqlite" || name == "sqlite3") && relativeSQLiteDSN(db.DSN) {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}
	cfg.Orchestrator = cfg.Orchestrator.Normalize()

	return &cfg, nil
}
