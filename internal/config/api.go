package config

import (
	"fmt"

	"github.com/BerndBr/taskana/pkg/formatting"
	"github.com/BerndBr/taskana/pkg/middleware"
	"github.com/BerndBr/taskana/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "TASKANA_CORS_ENABLED",
	Origins:          "TASKANA_CORS_ORIGINS",
	AllowedMethods:   "TASKANA_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "TASKANA_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "TASKANA_CORS_EXPOSED_HEADERS",
	AllowCredentials: "TASKANA_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "TASKANA_CORS_MAX_AGE",
}

var rateLimitEnv = &middleware.RateLimitEnv{
	RequestsPerSecond: "TASKANA_RATE_LIMIT_REQUESTS_PER_SECOND",
	Burst:             "TASKANA_RATE_LIMIT_BURST",
	IdleTTL:           "TASKANA_RATE_LIMIT_IDLE_TTL",
}

const (
	EnvAPIBasePath      = "TASKANA_API_BASE_PATH"
	EnvAPIMaxUploadSize = "TASKANA_API_MAX_UPLOAD_SIZE"

	defaultMaxUploadSize = 10 << 20
)

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "TASKANA_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "TASKANA_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, rate limit, and pagination settings.
type APIConfig struct {
	BasePath      string                     `toml:"base_path"`
	MaxUploadSize string                     `toml:"max_upload_size"`
	CORS          middleware.CORSConfig      `toml:"cors"`
	RateLimit     middleware.RateLimitConfig `toml:"rate_limit"`
	Pagination    pagination.Config          `toml:"pagination"`
}

// MaxUploadSizeBytes is the archive upload limit. Finalize has already
// rejected unparsable sizes.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return defaultMaxUploadSize
	}
	return size
}

// Finalize covers the nested CORS, rate limit and pagination configs too.
func (c *APIConfig) Finalize() error {
	fallback(&c.BasePath, "/api")
	fallback(&c.MaxUploadSize, "10MB")
	lookup(EnvAPIBasePath, &c.BasePath, asString)
	lookup(EnvAPIMaxUploadSize, &c.MaxUploadSize, asString)

	if size, err := formatting.ParseBytes(c.MaxUploadSize); err != nil || size <= 0 {
		return fmt.Errorf("invalid max_upload_size %q", c.MaxUploadSize)
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.RateLimit.Finalize(rateLimitEnv); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	override(&c.BasePath, overlay.BasePath)
	override(&c.MaxUploadSize, overlay.MaxUploadSize)

	c.CORS.Merge(&overlay.CORS)
	c.RateLimit.Merge(&overlay.RateLimit)
	c.Pagination.Merge(&overlay.Pagination)
}
