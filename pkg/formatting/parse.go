package formatting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrParseFailed is returned when content is neither valid JSON nor valid YAML.
var ErrParseFailed = errors.New("failed to parse document")

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format: %q", s)
}

// FormatFromPath infers the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// ToJSON normalizes content to JSON. YAML documents are decoded to generic
// values and re-encoded so that JSON field names apply to both encodings.
func ToJSON(content []byte, format Format) ([]byte, error) {
	content = bytes.TrimSpace(content)

	if format == FormatJSON {
		if !json.Valid(content) {
			return nil, fmt.Errorf("%w: invalid json", ErrParseFailed)
		}
		return content, nil
	}

	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return b, nil
}

// Parse decodes content into T. JSON is tried first and YAML second.
func Parse[T any](content []byte) (T, error) {
	var result T

	if err := json.Unmarshal(bytes.TrimSpace(content), &result); err == nil {
		return result, nil
	}

	normalized, err := ToJSON(content, FormatYAML)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(normalized, &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return result, nil
}

// Marshal encodes v in the given format. YAML output keeps the JSON field names.
func Marshal(v any, format Format) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return b, nil
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
