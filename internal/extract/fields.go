package extract

import (
	"strings"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/llm"
)

// rawFromFields maps model output onto a RawExtraction, dropping rows with
// no name or no positive amount and defaulting quantity to 1.
func rawFromFields(f llm.EstimateFields) entity.RawExtraction {
	raw := entity.RawExtraction{
		VendorName:    strings.TrimSpace(f.VendorName),
		VendorAddress: strings.TrimSpace(f.VendorAddress),
		EstimateDate:  strings.TrimSpace(f.EstimateDate),
		TotalExclTax:  positive(f.TotalAmountExclTax),
		TotalInclTax:  positive(f.TotalAmountInclTax),
		Items:         make([]entity.RawLineItem, 0, len(f.Items)),
		Warnings:      append([]string(nil), f.ValidationWarnings...),
	}
	for _, it := range f.Items {
		name := strings.TrimSpace(it.ItemNameRaw)
		if name == "" || it.AmountExclTax <= 0 {
			continue
		}
		item := entity.RawLineItem{
			RawName:       name,
			CorrectedName: strings.TrimSpace(it.ItemNameCorrected),
			AmountExclTax: it.AmountExclTax,
			Quantity:      it.Quantity,
			Confidence:    it.Confidence,
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if ct, ok := constants.ParseCostType(it.CostType); ok {
			item.CostTypeHint = ct
		}
		raw.Items = append(raw.Items, item)
	}
	return raw
}

// fieldsFromRaw is the inverse, used to feed the completion pass.
func fieldsFromRaw(raw entity.RawExtraction) llm.EstimateFields {
	f := llm.EstimateFields{
		VendorName:         raw.VendorName,
		VendorAddress:      raw.VendorAddress,
		EstimateDate:       raw.EstimateDate,
		TotalAmountExclTax: raw.TotalExclTax,
		TotalAmountInclTax: raw.TotalInclTax,
		Items:              make([]llm.EstimateItem, 0, len(raw.Items)),
	}
	for _, it := range raw.Items {
		f.Items = append(f.Items, llm.EstimateItem{
			ItemNameRaw:   it.RawName,
			Quantity:      it.Quantity,
			AmountExclTax: it.AmountExclTax,
			CostType:      string(it.CostTypeHint),
		})
	}
	return f
}

func positive(p *int64) *int64 {
	if p == nil || *p <= 0 {
		return nil
	}
	return entity.Int64Ptr(*p)
}
