package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/youssefsiam38/memorykeep"
)

var (
	importanceSchema = jsonschema.MustCompileString("importance.json", `{
		"type": "object",
		"required": ["important"],
		"properties": {
			"important": {"type": "boolean"},
			"category": {"type": ["string", "null"]},
			"fact": {"type": ["string", "null"]},
			"reason": {"type": ["string", "null"]}
		}
	}`)

	searchSchema = jsonschema.MustCompileString("search.json", `{
		"type": "object",
		"required": ["needs_search"],
		"properties": {
			"needs_search": {"type": "boolean"},
			"search_query": {"type": ["string", "null"]},
			"reason": {"type": ["string", "null"]}
		}
	}`)

	summarySchema = jsonschema.MustCompileString("summary.json", `{
		"type": "object",
		"properties": {
			"summary": {"type": ["string", "null"]},
			"patterns": {
				"type": ["array", "null"],
				"items": {"type": "string"}
			}
		}
	}`)
)

// ExtractJSON returns the text between the first '{' and the last '}'.
// Models often wrap their JSON in prose or code fences.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in response", memorykeep.ErrMalformedOutput)
	}
	return text[start : end+1], nil
}

// decode extracts a JSON object from text, validates it against schema and
// unmarshals it into out.
func decode(text string, schema *jsonschema.Schema, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%w: %v", memorykeep.ErrMalformedOutput, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", memorykeep.ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", memorykeep.ErrMalformedOutput, err)
	}
	return nil
}
