package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/llm"
)

// Completer is the chat-completion call used for the semantic pass.
type Completer interface {
	Available() bool
	Complete(ctx context.Context, raw llm.EstimateFields) (llm.EstimateFields, []byte, error)
}

// CompletionEnhancer repairs OCR names and totals with a language model.
// It never fails the extraction: on error the input is returned with a warning.
type CompletionEnhancer struct {
	client Completer
	logger *slog.Logger
}

func NewCompletionEnhancer(client Completer, logger *slog.Logger) *CompletionEnhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionEnhancer{client: client, logger: logger}
}

func (e *CompletionEnhancer) Available() bool {
	return e != nil && e.client != nil && e.client.Available()
}

// Enhance returns raw with corrections applied and reports whether the pass ran.
func (e *CompletionEnhancer) Enhance(ctx context.Context, raw entity.RawExtraction) (entity.RawExtraction, bool) {
	if !e.Available() {
		raw.Warnings = append(raw.Warnings, "completion not available")
		return raw, false
	}
	if len(raw.Items) == 0 {
		return raw, false
	}

	start := time.Now()
	out, _, err := e.client.Complete(ctx, fieldsFromRaw(raw))
	if err != nil {
		e.logger.Warn("extract.completion.skipped", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		raw.Warnings = append(raw.Warnings, "completion skipped: "+err.Error())
		return raw, false
	}

	merged := mergeCompletion(raw, out)
	e.logger.Info("extract.completion.ok",
		"items", len(merged.Items),
		"warnings", len(out.ValidationWarnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return merged, true
}

// mergeCompletion pairs corrected items back to the originals by index.
// Amounts are only taken from the model when the original had none.
func mergeCompletion(raw entity.RawExtraction, out llm.EstimateFields) entity.RawExtraction {
	items := make([]entity.RawLineItem, len(raw.Items))
	copy(items, raw.Items)

	for i := range items {
		if i >= len(out.Items) {
			break
		}
		c := out.Items[i]
		if name := strings.TrimSpace(c.ItemNameCorrected); name != "" && name != items[i].RawName {
			items[i].CorrectedName = name
		}
		if items[i].AmountExclTax <= 0 && c.AmountExclTax > 0 {
			items[i].AmountExclTax = c.AmountExclTax
		}
		if c.Quantity > 0 && items[i].Quantity < 1 {
			items[i].Quantity = c.Quantity
		}
		if c.Confidence != "" {
			items[i].Confidence = c.Confidence
		}
		if ct, ok := constants.ParseCostType(c.CostType); ok && items[i].CostTypeHint == "" {
			items[i].CostTypeHint = ct
		}
	}
	raw.Items = items

	if raw.VendorName == "" {
		raw.VendorName = strings.TrimSpace(out.VendorName)
	}
	if raw.VendorAddress == "" {
		raw.VendorAddress = strings.TrimSpace(out.VendorAddress)
	}
	if raw.EstimateDate == "" {
		raw.EstimateDate = strings.TrimSpace(out.EstimateDate)
	}
	if p := positive(out.TotalAmountExclTax); p != nil {
		raw.TotalExclTax = p
	}
	if p := positive(out.TotalAmountInclTax); p != nil {
		raw.TotalInclTax = p
	}
	raw.Warnings = append(raw.Warnings, out.ValidationWarnings...)
	return raw
}
