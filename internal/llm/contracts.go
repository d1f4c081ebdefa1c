package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the one go-openai call the extractors depend on, so tests
// can substitute a fake backend.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// EstimateItem is one row as reported by a model.
type EstimateItem struct {
	ItemNameRaw       string `json:"item_name_raw"`
	ItemNameCorrected string `json:"item_name_corrected,omitempty"`
	Quantity          int    `json:"quantity,omitempty"`
	AmountExclTax     int64  `json:"amount_excl_tax"`
	CostType          string `json:"cost_type,omitempty"`
	Confidence        string `json:"confidence,omitempty"`
	CorrectionNotes   string `json:"correction_notes,omitempty"`
}

// EstimateFields is the JSON document shape shared by the vision and completion prompts.
type EstimateFields struct {
	VendorName         string         `json:"vendor_name,omitempty"`
	VendorAddress      string         `json:"vendor_address,omitempty"`
	EstimateDate       string         `json:"estimate_date,omitempty"`
	TotalAmountExclTax *int64         `json:"total_amount_excl_tax,omitempty"`
	TotalAmountInclTax *int64         `json:"total_amount_incl_tax,omitempty"`
	Items              []EstimateItem `json:"items"`
	ValidationWarnings []string       `json:"validation_warnings,omitempty"`
	ProcessingNotes    string         `json:"processing_notes,omitempty"`
}
