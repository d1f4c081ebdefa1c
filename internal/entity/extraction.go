package entity

import (
	"github.com/ict-ryuma/document-ocr/constants"
)

// RawLineItem is a single estimate row as returned by an adapter.
type RawLineItem struct {
	RawName       string             `json:"item_name_raw"`
	CorrectedName string             `json:"item_name_corrected,omitempty"`
	AmountExclTax int64              `json:"amount_excl_tax"`
	Quantity      int                `json:"quantity"`
	CostTypeHint  constants.CostType `json:"cost_type,omitempty"`
	Confidence    string             `json:"confidence,omitempty"`
}

// DisplayName prefers the completion-corrected name over the raw OCR text.
func (it RawLineItem) DisplayName() string {
	if it.CorrectedName != "" {
		return it.CorrectedName
	}
	return it.RawName
}

// RawExtraction is what an adapter hands back before classification.
type RawExtraction struct {
	VendorName    string        `json:"vendor_name"`
	VendorAddress string        `json:"vendor_address,omitempty"`
	EstimateDate  string        `json:"estimate_date,omitempty"`
	TotalExclTax  *int64        `json:"total_amount_excl_tax,omitempty"`
	TotalInclTax  *int64        `json:"total_amount_incl_tax,omitempty"`
	Items         []RawLineItem `json:"items"`
	Warnings      []string      `json:"validation_warnings,omitempty"`
	Method        string        `json:"-"`
}

// NormalizedLineItem is a classified line item.
type NormalizedLineItem struct {
	RawLineItem
	CanonicalName string             `json:"item_name_norm"`
	CostType      constants.CostType `json:"cost_type"`
}

// ExtractionResult is the final output of one orchestrated extraction.
type ExtractionResult struct {
	VendorName    string               `json:"vendor_name"`
	VendorAddress string               `json:"vendor_address,omitempty"`
	EstimateDate  string               `json:"estimate_date"`
	TotalExclTax  *int64               `json:"total_excl_tax,omitempty"`
	TotalInclTax  *int64               `json:"total_incl_tax,omitempty"`
	Items         []NormalizedLineItem `json:"items"`
	Warnings      []string             `json:"warnings"`
	Method        string               `json:"method"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
