package constants

import (
	"strings"
)

// CostType classifies an estimate line item.
type CostType string

const (
	CostTypeParts         CostType = "parts"
	CostTypeLabor         CostType = "labor"
	CostTypeStatutoryFees CostType = "statutory_fees"
	CostTypeOther         CostType = "other"
)

var allCostTypes = []CostType{
	CostTypeParts,
	CostTypeLabor,
	CostTypeStatutoryFees,
	CostTypeOther,
}

func CostTypesAsStringSlice() []string {
	result := make([]string, len(allCostTypes))
	for i, ct := range allCostTypes {
		result[i] = string(ct)
	}
	return result
}

// Valid reports whether ct is one of the four known cost types.
func (ct CostType) Valid() bool {
	for _, c := range allCostTypes {
		if ct == c {
			return true
		}
	}
	return false
}

// ParseCostType maps model output such as "Labor" or "statutory-fees" onto a CostType.
func ParseCostType(input string) (CostType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	normalized = strings.ReplaceAll(normalized, "-", "_")

	synonyms := map[string]CostType{
		"part":          CostTypeParts,
		"labour":        CostTypeLabor,
		"statutory":     CostTypeStatutoryFees,
		"statutory_fee": CostTypeStatutoryFees,
		"legal_fees":    CostTypeStatutoryFees,
	}
	if ct, ok := synonyms[normalized]; ok {
		return ct, true
	}

	ct := CostType(normalized)
	if ct.Valid() {
		return ct, true
	}
	return "", false
}
