package entity

// Recommendation ranks stored estimates for one canonical category.
type Recommendation struct {
	Category             string        `json:"category"`
	SingleVendorBest     VendorTotal   `json:"single_vendor_best"`
	SplitTheoreticalBest SplitBest     `json:"split_theoretical_best"`
	TotalsPerVendor      []VendorTotal `json:"totals_per_vendor"`
}

// VendorTotal is the category total of one estimate.
type VendorTotal struct {
	EstimateID int64  `json:"estimate_id"`
	Vendor     string `json:"vendor"`
	Total      int64  `json:"total"`
}

// SplitBest combines the cheapest parts and cheapest labor across vendors.
type SplitBest struct {
	PartsMin int64 `json:"parts_min"`
	LaborMin int64 `json:"labor_min"`
	Total    int64 `json:"total"`
}
