package entity

import (
	"time"

	"github.com/ict-ryuma/document-ocr/constants"
)

// Estimate is a persisted estimate header.
type Estimate struct {
	ID            int64          `json:"id"`
	VendorName    string         `json:"vendor_name"`
	VendorAddress string         `json:"vendor_address,omitempty"`
	EstimateDate  string         `json:"estimate_date"`
	TotalExclTax  int64          `json:"total_excl_tax"`
	TotalInclTax  int64          `json:"total_incl_tax"`
	Method        string         `json:"method"`
	Warnings      []string       `json:"warnings,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []EstimateItem `json:"items,omitempty"`
}

// EstimateItem is a persisted line item.
type EstimateItem struct {
	ID            int64              `json:"id"`
	EstimateID    int64              `json:"estimate_id"`
	RawName       string             `json:"item_name_raw"`
	CanonicalName string             `json:"item_name_norm"`
	CostType      constants.CostType `json:"cost_type"`
	AmountExclTax int64              `json:"amount_excl_tax"`
	Quantity      int                `json:"quantity"`
}

// CategoryItem is an item joined with its source estimate, as returned by category lookups.
type CategoryItem struct {
	EstimateItem
	VendorName    string `json:"vendor_name"`
	VendorAddress string `json:"vendor_address,omitempty"`
	EstimateDate  string `json:"estimate_date"`
}

// ItemStatistics summarizes amounts for items matching a keyword.
type ItemStatistics struct {
	Keyword     string  `json:"keyword"`
	TotalItems  int     `json:"total_items"`
	VendorCount int     `json:"vendor_count"`
	Average     float64 `json:"average"`
	Min         int64   `json:"min"`
	Max         int64   `json:"max"`
}

// AveragePrice is the mean amount per canonical name and cost type.
type AveragePrice struct {
	CanonicalName string             `json:"item_name_norm"`
	CostType      constants.CostType `json:"cost_type"`
	Average       float64            `json:"average"`
	Samples       int                `json:"samples"`
}
