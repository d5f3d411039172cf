package classifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/BerndBr/taskana/pkg/formatting"
)

const definitionsSchemaURL = "https://taskana.schemas.local/classification-definitions.schema.json"

const definitionsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["classifications"],
  "properties": {
    "classifications": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "classification_id": {"type": ["string", "null"]},
          "key": {"type": ["string", "null"]},
          "domain": {"type": ["string", "null"]},
          "parent_id": {"type": ["string", "null"]},
          "parent_key": {"type": ["string", "null"]},
          "category": {"type": ["string", "null"]},
          "type": {"type": ["string", "null"]},
          "is_valid_in_domain": {"type": ["boolean", "null"]},
          "created": {"type": ["string", "null"], "format": "date-time"},
          "modified": {"type": ["string", "null"], "format": "date-time"},
          "name": {"type": ["string", "null"]},
          "description": {"type": ["string", "null"]},
          "priority": {"type": ["integer", "null"]},
          "service_level": {"type": ["string", "null"]},
          "application_entry_point": {"type": ["string", "null"]},
          "custom_1": {"type": ["string", "null"]},
          "custom_2": {"type": ["string", "null"]},
          "custom_3": {"type": ["string", "null"]},
          "custom_4": {"type": ["string", "null"]},
          "custom_5": {"type": ["string", "null"]},
          "custom_6": {"type": ["string", "null"]},
          "custom_7": {"type": ["string", "null"]},
          "custom_8": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(definitionsSchemaURL, strings.NewReader(definitionsSchema)); err != nil {
		return nil, fmt.Errorf("load definitions schema: %w", err)
	}
	return c.Compile(definitionsSchemaURL)
})

// DecodeDefinitions validates an import document against the definitions
// schema and decodes its records. YAML documents are normalized to JSON
// first. Malformed documents are validation failures.
func DecodeDefinitions(content []byte, format formatting.Format) ([]Record, error) {
	doc, err := formatting.ToJSON(content, format)
	if err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("decode document: %v", err)}
	}
	if err := schema.Validate(v); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("document does not match schema: %v", err)}
	}

	var defs Definitions
	if err := json.Unmarshal(doc, &defs); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("decode classifications: %v", err)}
	}
	return defs.Classifications, nil
}
