// Package formatting parses and formats the human-readable values found in
// configuration and import documents: byte sizes and JSON/YAML payloads.
package formatting

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// base-1024 units; int64 tops out in the exbibyte range
var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n in the largest unit that keeps the value at or
// above one, with precision decimals. Plain bytes never carry decimals.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes reads sizes such as "50MB", "1.5 gb", or "1024". Units are
// case-insensitive and a bare number counts bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.ToUpper(strings.TrimSpace(s[split:]))
	}
	if number == "" {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number %q: %w", number, err)
	}

	if unit == "" {
		return int64(value), nil
	}

	exp := slices.Index(units, unit)
	if exp < 0 {
		return 0, fmt.Errorf("unknown byte size unit: %q", unit)
	}
	return int64(value * float64(int64(1)<<(10*exp))), nil
}
