package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/BerndBr/taskana/pkg/cache"
	"github.com/BerndBr/taskana/pkg/database"
	"github.com/BerndBr/taskana/pkg/events"
	"github.com/BerndBr/taskana/pkg/logging"
	"github.com/BerndBr/taskana/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvTaskanaEnv             = "TASKANA_ENV"
	EnvTaskanaShutdownTimeout = "TASKANA_SHUTDOWN_TIMEOUT"
	EnvTaskanaVersion         = "TASKANA_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "TASKANA_DB_HOST",
	Port:            "TASKANA_DB_PORT",
	Name:            "TASKANA_DB_NAME",
	User:            "TASKANA_DB_USER",
	Password:        "TASKANA_DB_PASSWORD",
	SSLMode:         "TASKANA_DB_SSL_MODE",
	MaxOpenConns:    "TASKANA_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "TASKANA_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "TASKANA_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "TASKANA_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "TASKANA_STORAGE_ENABLED",
	ContainerName:    "TASKANA_STORAGE_CONTAINER_NAME",
	ConnectionString: "TASKANA_STORAGE_CONNECTION_STRING",
	Prefix:           "TASKANA_STORAGE_PREFIX",
}

var cacheEnv = &cache.Env{
	Enabled:   "TASKANA_CACHE_ENABLED",
	URL:       "TASKANA_CACHE_URL",
	KeyPrefix: "TASKANA_CACHE_KEY_PREFIX",
	TTL:       "TASKANA_CACHE_TTL",
	PoolSize:  "TASKANA_CACHE_POOL_SIZE",
}

var eventsEnv = &events.Env{
	Enabled:        "TASKANA_EVENTS_ENABLED",
	Brokers:        "TASKANA_EVENTS_BROKERS",
	Topic:          "TASKANA_EVENTS_TOPIC",
	ClientID:       "TASKANA_EVENTS_CLIENT_ID",
	ProduceTimeout: "TASKANA_EVENTS_PRODUCE_TIMEOUT",
}

var loggingEnv = &logging.Env{
	Level:  "TASKANA_LOG_LEVEL",
	Format: "TASKANA_LOG_FORMAT",
}

// Config is the root configuration for the Taskana classification service.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        database.Config       `toml:"database"`
	Storage         storage.Config        `toml:"storage"`
	Cache           cache.Config          `toml:"cache"`
	Events          events.Config         `toml:"events"`
	Logging         logging.Config        `toml:"logging"`
	API             APIConfig             `toml:"api"`
	Classifications ClassificationsConfig `toml:"classifications"`
	ShutdownTimeout string                `toml:"shutdown_timeout"`
	Version         string                `toml:"version"`
}

// Env returns the TASKANA_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvTaskanaEnv); env != "" {
		return env
	}
	return "local"
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadClassifications reads the same files as Load but finalizes only the
// classifications section, for tools that never touch a backend.
func LoadClassifications() (*ClassificationsConfig, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Classifications.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: classifications: %w", err)
	}
	return &cfg.Classifications, nil
}

// read merges the overlay onto the base file. Either may be absent.
func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}
	return cfg, nil
}

// Merge applies an environment overlay. Zero values in overlay never
// clear a base setting.
func (c *Config) Merge(overlay *Config) {
	override(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	override(&c.Version, overlay.Version)
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.Events.Merge(&overlay.Events)
	c.Logging.Merge(&overlay.Logging)
	c.API.Merge(&overlay.API)
	c.Classifications.Merge(&overlay.Classifications)
}

func (c *Config) finalize() error {
	fallback(&c.ShutdownTimeout, "30s")
	fallback(&c.Version, "0.1.0")
	lookup(EnvTaskanaShutdownTimeout, &c.ShutdownTimeout, asString)
	lookup(EnvTaskanaVersion, &c.Version, asString)

	if err := durations([2]string{"shutdown_timeout", c.ShutdownTimeout}); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"cache", func() error { return c.Cache.Finalize(cacheEnv) }},
		{"events", func() error { return c.Events.Finalize(eventsEnv) }},
		{"logging", func() error { return c.Logging.Finalize(loggingEnv) }},
		{"api", c.API.Finalize},
		{"classifications", c.Classifications.Finalize},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// load decodes a TOML file. Unknown keys are rejected so typos in a config
// file surface at startup.
func load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func overlayPath() string {
	env := os.Getenv(EnvTaskanaEnv)
	if env == "" {
		return ""
	}
	path := fmt.Sprintf(OverlayConfigPattern, env)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
