package submission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rawSchema is the shape contract for submission files. It guards field types
// only; the semantic rules (reserved labels, target formats, kind rules) live
// in the Validator.
const rawSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "subdomain submission",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "minLength": 1},
    "content": {"type": "string"},
    "value": {"type": "string"},
    "target": {"type": "string"},
    "url": {"type": "string"},
    "cname": {"type": "string"},
    "ip": {"type": "string"},
    "ipv6": {"type": "string"},
    "txt": {"type": "string"},
    "mx": {"type": "string"},
    "proxied": {"type": "boolean"},
    "priority": {"type": "integer", "minimum": 0, "maximum": 65535},
    "owner": {
      "type": "object",
      "properties": {
        "username": {"type": "string"}
      }
    }
  }
}`

var submissionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("submission.schema.json", strings.NewReader(rawSchema)); err != nil {
		panic(fmt.Sprintf("add submission schema: %v", err))
	}
	return compiler.MustCompile("submission.schema.json")
}

// ParseSubmission strips comments, checks the document against the schema,
// and decodes it. Any failure is a shape problem scoped to this one file.
func ParseSubmission(data []byte) (Raw, error) {
	stripped := StripComments(data)

	var doc any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return Raw{}, fmt.Errorf("parse json: %w", err)
	}
	if err := submissionSchema.Validate(doc); err != nil {
		return Raw{}, fmt.Errorf("schema: %w", err)
	}

	var raw Raw
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return Raw{}, fmt.Errorf("decode submission: %w", err)
	}
	return raw, nil
}
