package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeEstimate strips fences, validates strictly, and on failure retries
// once after the lenient pass. touched lists keys the lenient pass rewrote.
func DecodeEstimate(content string, schema map[string]any) (EstimateFields, []byte, []string, error) {
	raw := []byte(StripCodeFence(content))
	if len(bytes.TrimSpace(raw)) == 0 {
		return EstimateFields{}, raw, nil, fmt.Errorf("empty model response")
	}

	var touched []string
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		cleaned, t, sErr := NormalizeEstimateJSON(raw)
		if sErr != nil {
			return EstimateFields{}, raw, nil, fmt.Errorf("lenient sanitize failed: %w", sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return EstimateFields{}, cleaned, t, fmt.Errorf("schema validation failed: %w", vErr)
		}
		raw, touched = cleaned, t
	}

	var out EstimateFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return EstimateFields{}, raw, touched, fmt.Errorf("unmarshal fields: %w", err)
	}
	return out, raw, touched, nil
}
