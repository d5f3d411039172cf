package database

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	defaultHost            = "localhost"
	defaultPort            = 5432
	defaultSSLMode         = "disable"
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = "15m"
	defaultConnTimeout     = "5s"
)

// Config holds PostgreSQL connection parameters.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the environment variables that override each Config field.
// Blank names are skipped.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// URL renders the connection as a postgres:// URL. Both the pgx driver and
// golang-migrate accept this form, and credentials are percent-encoded.
func (c *Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize fills defaults, applies env overrides, then validates.
func (c *Config) Finalize(env *Env) error {
	fallback(&c.Host, defaultHost)
	fallback(&c.Port, defaultPort)
	fallback(&c.SSLMode, defaultSSLMode)
	fallback(&c.MaxOpenConns, defaultMaxOpenConns)
	fallback(&c.MaxIdleConns, defaultMaxIdleConns)
	fallback(&c.ConnMaxLifetime, defaultConnMaxLifetime)
	fallback(&c.ConnTimeout, defaultConnTimeout)

	if env != nil {
		lookup(env.Host, &c.Host, parseString)
		lookup(env.Port, &c.Port, strconv.Atoi)
		lookup(env.Name, &c.Name, parseString)
		lookup(env.User, &c.User, parseString)
		lookup(env.Password, &c.Password, parseString)
		lookup(env.SSLMode, &c.SSLMode, parseString)
		lookup(env.MaxOpenConns, &c.MaxOpenConns, strconv.Atoi)
		lookup(env.MaxIdleConns, &c.MaxIdleConns, strconv.Atoi)
		lookup(env.ConnMaxLifetime, &c.ConnMaxLifetime, parseString)
		lookup(env.ConnTimeout, &c.ConnTimeout, parseString)
	}

	return c.validate()
}

// Merge copies every non-zero field of overlay onto c.
func (c *Config) Merge(overlay *Config) {
	override(&c.Host, overlay.Host)
	override(&c.Port, overlay.Port)
	override(&c.Name, overlay.Name)
	override(&c.User, overlay.User)
	override(&c.Password, overlay.Password)
	override(&c.SSLMode, overlay.SSLMode)
	override(&c.MaxOpenConns, overlay.MaxOpenConns)
	override(&c.MaxIdleConns, overlay.MaxIdleConns)
	override(&c.ConnMaxLifetime, overlay.ConnMaxLifetime)
	override(&c.ConnTimeout, overlay.ConnTimeout)
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("name required")
	case c.User == "":
		return fmt.Errorf("user required")
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func fallback[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

// lookup reads the named variable through parse. Unset names, empty values
// and parse failures leave dst unchanged.
func lookup[T any](name string, dst *T, parse func(string) (T, error)) {
	if name == "" {
		return
	}
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if v, err := parse(raw); err == nil {
		*dst = v
	}
}

func parseString(s string) (string, error) { return s, nil }
