package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "TASKANA_SERVER_HOST"
	EnvServerPort            = "TASKANA_SERVER_PORT"
	EnvServerReadTimeout     = "TASKANA_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "TASKANA_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout = "TASKANA_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration     { return duration(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration    { return duration(c.WriteTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return duration(c.ShutdownTimeout) }

// Finalize fills defaults, applies TASKANA_SERVER_* overrides, then validates.
func (c *ServerConfig) Finalize() error {
	fallback(&c.Host, "0.0.0.0")
	fallback(&c.Port, 8080)
	fallback(&c.ReadTimeout, "1m")
	fallback(&c.WriteTimeout, "15m")
	fallback(&c.ShutdownTimeout, "30s")

	lookup(EnvServerHost, &c.Host, asString)
	lookup(EnvServerPort, &c.Port, asInt)
	lookup(EnvServerReadTimeout, &c.ReadTimeout, asString)
	lookup(EnvServerWriteTimeout, &c.WriteTimeout, asString)
	lookup(EnvServerShutdownTimeout, &c.ShutdownTimeout, asString)

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return durations(
		[2]string{"read_timeout", c.ReadTimeout},
		[2]string{"write_timeout", c.WriteTimeout},
		[2]string{"shutdown_timeout", c.ShutdownTimeout},
	)
}

func (c *ServerConfig) Merge(overlay *ServerConfig) {
	override(&c.Host, overlay.Host)
	override(&c.Port, overlay.Port)
	override(&c.ReadTimeout, overlay.ReadTimeout)
	override(&c.WriteTimeout, overlay.WriteTimeout)
	override(&c.ShutdownTimeout, overlay.ShutdownTimeout)
}
