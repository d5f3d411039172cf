package cache

import (
	"fmt"
	"time"

	"github.com/BerndBr/taskana/pkg/env"
)

// Config holds Redis connection and expiry settings.
// When Enabled is false a no-op cache is used.
type Config struct {
	Enabled      bool   `toml:"enabled"`
	URL          string `toml:"url"`
	KeyPrefix    string `toml:"key_prefix"`
	TTL          string `toml:"ttl"`
	PoolSize     int    `toml:"pool_size"`
	DialTimeout  string `toml:"dial_timeout"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled   string
	URL       string
	KeyPrefix string
	TTL       string
	PoolSize  string
}

// TTLDuration returns TTL as a time.Duration.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
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
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.KeyPrefix != "" {
		c.KeyPrefix = overlay.KeyPrefix
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.PoolSize != 0 {
		c.PoolSize = overlay.PoolSize
	}
	if overlay.DialTimeout != "" {
		c.DialTimeout = overlay.DialTimeout
	}
	if overlay.ReadTimeout != "" {
		c.ReadTimeout = overlay.ReadTimeout
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "taskana"
	}
	if c.TTL == "" {
		c.TTL = "10m"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

func (c *Config) loadEnv(vars *Env) {
	env.Bool(vars.Enabled, &c.Enabled)
	env.String(vars.URL, &c.URL)
	env.String(vars.KeyPrefix, &c.KeyPrefix)
	env.String(vars.TTL, &c.TTL)
	env.Int(vars.PoolSize, &c.PoolSize)
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"ttl":           c.TTL,
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.Enabled && c.URL == "" {
		return fmt.Errorf("url required when cache is enabled")
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
