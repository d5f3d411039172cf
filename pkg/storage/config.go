package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultContainer = "classification-imports"
	defaultPrefix    = "imports"
)

// Config holds Azure Blob Storage connection parameters. A disabled store
// archives nothing.
type Config struct {
	Enabled          bool   `toml:"enabled"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	Prefix           string `toml:"prefix"`
}

// Env names the environment variables that override Config.
type Env struct {
	Enabled          string
	ContainerName    string
	ConnectionString string
	Prefix           string
}

func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = defaultContainer
	}
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}

	if env != nil {
		if b, err := strconv.ParseBool(getenv(env.Enabled)); err == nil {
			c.Enabled = b
		}
		for _, f := range []struct {
			name string
			dst  *string
		}{
			{env.ContainerName, &c.ContainerName},
			{env.ConnectionString, &c.ConnectionString},
			{env.Prefix, &c.Prefix},
		} {
			if v := getenv(f.name); v != "" {
				*f.dst = v
			}
		}
	}

	switch {
	case strings.Contains(c.Prefix, ".."):
		return fmt.Errorf("prefix contains invalid path segment")
	case !c.Enabled:
		return nil
	case c.ContainerName == "":
		return fmt.Errorf("container_name required")
	case c.ConnectionString == "":
		return fmt.Errorf("connection_string required")
	}
	return nil
}

// Merge applies overlay. Enabled always applies, strings only when set.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	for _, f := range []struct{ dst, src *string }{
		{&c.ContainerName, &overlay.ContainerName},
		{&c.ConnectionString, &overlay.ConnectionString},
		{&c.Prefix, &overlay.Prefix},
	} {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
