package llm

import "github.com/ict-ryuma/document-ocr/constants"

// BuildEstimateJSONSchema returns the schema used to validate vision output
// after the lenient pass has coerced amounts to integers.
func BuildEstimateJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item_name_raw":   map[string]any{"type": "string"},
			"quantity":        map[string]any{"type": "integer", "minimum": 0},
			"amount_excl_tax": map[string]any{"type": "integer"},
			"cost_type": map[string]any{
				"type": "string",
				"enum": constants.CostTypesAsStringSlice(),
			},
		},
		"required": []string{"item_name_raw", "amount_excl_tax"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendor_name":           map[string]any{"type": "string"},
			"vendor_address":        map[string]any{"type": "string"},
			"estimate_date":         map[string]any{"type": "string"},
			"total_amount_excl_tax": amountProp(),
			"total_amount_incl_tax": amountProp(),
			"items":                 map[string]any{"type": "array", "items": item},
			"validation_warnings":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"items"},
	}
}

// BuildCompletionJSONSchema returns the schema for the semantic-completion pass.
func BuildCompletionJSONSchema() map[string]any {
	s := BuildEstimateJSONSchema()
	props := s["properties"].(map[string]any)
	itemProps := props["items"].(map[string]any)["items"].(map[string]any)["properties"].(map[string]any)
	itemProps["item_name_corrected"] = map[string]any{"type": "string"}
	itemProps["confidence"] = map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}}
	itemProps["correction_notes"] = map[string]any{"type": "string"}
	props["processing_notes"] = map[string]any{"type": "string"}
	return s
}

func amountProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0}
}
