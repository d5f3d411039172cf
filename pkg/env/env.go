// Package env overlays environment variables onto config fields.
//
// Unset or malformed variables leave the destination unchanged.
package env

import (
	"os"
	"strconv"
	"strings"
)

// String sets *dst to the value of name when it is non-empty.
func String(name string, dst *string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func Bool(name string, dst *bool) {
	parsed(name, dst, strconv.ParseBool)
}

func Int(name string, dst *int) {
	parsed(name, dst, strconv.Atoi)
}

func Float(name string, dst *float64) {
	parsed(name, dst, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// List reads a comma-separated list, dropping blank entries. A value with
// no entries leaves *dst unchanged.
func List(name string, dst *[]string) {
	var v string
	String(name, &v)

	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func parsed[T any](name string, dst *T, parse func(string) (T, error)) {
	var v string
	String(name, &v)
	if v == "" {
		return
	}
	if x, err := parse(v); err == nil {
		*dst = x
	}
}
