// Package schema validates transformation specs structurally before
// they run: step shapes, known op names, and per-op required fields.
// Validation is advisory; the interpreter still rejects malformed
// steps at run time with fuller context.
package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const stepSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "step": {
      "type": "object",
      "properties": {
        "op": {
          "type": "string",
          "enum": ["set", "copy", "delete", "update", "distinct",
                   "assert", "patch", "foreach", "while", "if",
                   "exec", "try"]
        }
      },
      "allOf": [
        {
          "if": {"properties": {"op": {"const": "set"}}, "required": ["op"]},
          "then": {"required": ["path", "value"]}
        },
        {
          "if": {"properties": {"op": {"const": "copy"}}, "required": ["op"]},
          "then": {"required": ["from", "path"]}
        },
        {
          "if": {"properties": {"op": {"const": "delete"}}, "required": ["op"]},
          "then": {"required": ["path"]}
        },
        {
          "if": {"properties": {"op": {"const": "update"}}, "required": ["op"]},
          "then": {"required": ["path"]}
        },
        {
          "if": {"properties": {"op": {"const": "distinct"}}, "required": ["op"]},
          "then": {"required": ["path"]}
        },
        {
          "if": {"properties": {"op": {"const": "patch"}}, "required": ["op"]},
          "then": {"required": ["patch"], "properties": {"patch": {"type": "array"}}}
        },
        {
          "if": {"properties": {"op": {"const": "foreach"}}, "required": ["op"]},
          "then": {"required": ["in", "do"]}
        },
        {
          "if": {"properties": {"op": {"const": "while"}}, "required": ["op"]},
          "then": {"required": ["do"]}
        },
        {
          "if": {"properties": {"op": {"const": "try"}}, "required": ["op"]},
          "then": {"required": ["do"]}
        }
      ]
    }
  },
  "oneOf": [
    {"$ref": "#/definitions/step"},
    {"type": "array", "items": {"$ref": "#/definitions/step"}}
  ]
}`

var schemaLoader = gojsonschema.NewStringLoader(stepSchema)

// Validate checks a spec document and returns one message per
// problem.  An empty slice means the spec passed.
func Validate(spec interface{}) ([]string, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(spec))
	if err != nil {
		return nil, fmt.Errorf("spec validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return issues, nil
}
