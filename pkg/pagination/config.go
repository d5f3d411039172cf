// Package pagination provides page requests, page results, and the limits
// that bound them.
package pagination

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Config bounds page sizes for list endpoints.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
}

// Finalize fills defaults, applies env overrides, and validates.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = defaultPageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = maxPageSize
	}

	if env != nil {
		if err := envInt(env.DefaultPageSize, &c.DefaultPageSize); err != nil {
			return err
		}
		if err := envInt(env.MaxPageSize, &c.MaxPageSize); err != nil {
			return err
		}
	}

	switch {
	case c.DefaultPageSize < 1:
		return fmt.Errorf("default_page_size must be positive")
	case c.MaxPageSize < 1:
		return fmt.Errorf("max_page_size must be positive")
	case c.DefaultPageSize > c.MaxPageSize:
		return fmt.Errorf("default_page_size %d exceeds max_page_size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// Merge applies non-zero values from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultPageSize != 0 {
		c.DefaultPageSize = overlay.DefaultPageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
}

func envInt(name string, dst *int) error {
	if name == "" {
		return nil
	}
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", name, v)
	}
	*dst = n
	return nil
}
