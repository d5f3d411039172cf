package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// override copies v onto dst unless v is the zero value.
func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// fallback sets dst to def when dst is still the zero value.
func fallback[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

// lookup reads env var name through parse. Unset or unparsable values leave
// dst unchanged.
func lookup[T any](name string, dst *T, parse func(string) (T, error)) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if v, err := parse(raw); err == nil {
		*dst = v
	}
}

func asString(s string) (string, error) { return s, nil }

var asInt = strconv.Atoi

// asList splits a comma-separated value and drops blank items.
func asList(s string) ([]string, error) {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}

// durations validates each named duration string in order.
func durations(fields ...[2]string) error {
	for _, f := range fields {
		if _, err := time.ParseDuration(f[1]); err != nil {
			return fmt.Errorf("invalid %s: %w", f[0], err)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
