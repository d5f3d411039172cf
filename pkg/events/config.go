package events

import (
	"fmt"
	"time"

	"github.com/BerndBr/taskana/pkg/env"
)

// Config holds Kafka producer settings. When Enabled is false a no-op publisher is used.
type Config struct {
	Enabled        bool     `toml:"enabled"`
	Brokers        []string `toml:"brokers"`
	Topic          string   `toml:"topic"`
	ClientID       string   `toml:"client_id"`
	ProduceTimeout string   `toml:"produce_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled        string
	Brokers        string
	Topic          string
	ClientID       string
	ProduceTimeout string
}

// ProduceTimeoutDuration returns ProduceTimeout as a time.Duration.
func (c *Config) ProduceTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ProduceTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(vars *Env) error {
	c.loadDefaults()
	if vars != nil {
		c.loadEnv(vars)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Enabled always applies.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.Brokers != nil {
		c.Brokers = overlay.Brokers
	}
	if overlay.Topic != "" {
		c.Topic = overlay.Topic
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.ProduceTimeout != "" {
		c.ProduceTimeout = overlay.ProduceTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Topic == "" {
		c.Topic = "taskana.classifications"
	}
	if c.ClientID == "" {
		c.ClientID = "taskana"
	}
	if c.ProduceTimeout == "" {
		c.ProduceTimeout = "10s"
	}
}

func (c *Config) loadEnv(vars *Env) {
	env.Bool(vars.Enabled, &c.Enabled)
	env.List(vars.Brokers, &c.Brokers)
	env.String(vars.Topic, &c.Topic)
	env.String(vars.ClientID, &c.ClientID)
	env.String(vars.ProduceTimeout, &c.ProduceTimeout)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ProduceTimeout); err != nil {
		return fmt.Errorf("invalid produce_timeout: %w", err)
	}
	if c.Enabled && len(c.Brokers) == 0 {
		return fmt.Errorf("brokers required when events are enabled")
	}
	return nil
}
