package config

import (
	"fmt"
	"slices"
	"time"
)

const (
	EnvClassificationsAllowedTypes     = "TASKANA_CLASSIFICATIONS_ALLOWED_TYPES"
	EnvClassificationsDefaultType      = "TASKANA_CLASSIFICATIONS_DEFAULT_TYPE"
	EnvClassificationsDefaultCategory  = "TASKANA_CLASSIFICATIONS_DEFAULT_CATEGORY"
	EnvClassificationsImportConcurrent = "TASKANA_CLASSIFICATIONS_IMPORT_CONCURRENCY"
	EnvClassificationsImportWait       = "TASKANA_CLASSIFICATIONS_IMPORT_WAIT"
)

// ClassificationsConfig holds the classification type rules and the limits
// placed on concurrent imports.
type ClassificationsConfig struct {
	AllowedTypes      []string `toml:"allowed_types"`
	DefaultType       string   `toml:"default_type"`
	DefaultCategory   string   `toml:"default_category"`
	ImportConcurrency int      `toml:"import_concurrency"`
	ImportWait        string   `toml:"import_wait"`
}

// ImportWaitDuration is how long an import may queue for a free slot.
func (c *ClassificationsConfig) ImportWaitDuration() time.Duration {
	return duration(c.ImportWait)
}

func (c *ClassificationsConfig) Finalize() error {
	if len(c.AllowedTypes) == 0 {
		c.AllowedTypes = []string{"TASK", "DOCUMENT"}
	}
	fallback(&c.DefaultType, "TASK")
	fallback(&c.DefaultCategory, "EXTERNAL")
	fallback(&c.ImportConcurrency, 4)
	fallback(&c.ImportWait, "5s")

	lookup(EnvClassificationsAllowedTypes, &c.AllowedTypes, asList)
	lookup(EnvClassificationsDefaultType, &c.DefaultType, asString)
	lookup(EnvClassificationsDefaultCategory, &c.DefaultCategory, asString)
	lookup(EnvClassificationsImportConcurrent, &c.ImportConcurrency, asInt)
	lookup(EnvClassificationsImportWait, &c.ImportWait, asString)

	switch {
	case !slices.Contains(c.AllowedTypes, c.DefaultType):
		return fmt.Errorf("default_type %q is not an allowed type %v", c.DefaultType, c.AllowedTypes)
	case c.ImportConcurrency < 1:
		return fmt.Errorf("import_concurrency must be positive: %d", c.ImportConcurrency)
	}
	return durations([2]string{"import_wait", c.ImportWait})
}

func (c *ClassificationsConfig) Merge(overlay *ClassificationsConfig) {
	if len(overlay.AllowedTypes) > 0 {
		c.AllowedTypes = overlay.AllowedTypes
	}
	override(&c.DefaultType, overlay.DefaultType)
	override(&c.DefaultCategory, overlay.DefaultCategory)
	override(&c.ImportConcurrency, overlay.ImportConcurrency)
	override(&c.ImportWait, overlay.ImportWait)
}
