package extract

import (
	"context"
	"log/slog"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

var dummyItems = []entity.RawLineItem{
	{RawName: "ワイパーブレード", AmountExclTax: 3800, Quantity: 1},
	{RawName: "ワイパー交換工賃", AmountExclTax: 2200, Quantity: 1},
	{RawName: "エンジンオイル 5W-30", AmountExclTax: 4800, Quantity: 1},
	{RawName: "オイル交換工賃", AmountExclTax: 1500, Quantity: 1},
	{RawName: "エアフィルター", AmountExclTax: 2800, Quantity: 1},
}

// DummyAdapter returns a fixed sample estimate. Development and test only.
type DummyAdapter struct {
	base
}

func NewDummyAdapter(logger *slog.Logger) *DummyAdapter {
	return &DummyAdapter{base: newBase(NameDummy, logger)}
}

func (a *DummyAdapter) Available() bool { return true }

func (a *DummyAdapter) Extract(ctx context.Context, path string) (entity.RawExtraction, error) {
	start := a.start(path)
	if err := a.validateFile(path); err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "", err)
	}
	a.logger.Warn("extract.dummy.sample_data", "note", "no recognition backend was called")

	items := make([]entity.RawLineItem, len(dummyItems))
	copy(items, dummyItems)

	var excl int64
	for _, it := range items {
		excl += it.AmountExclTax
	}
	incl := excl * (100 + constants.ConsumptionTaxPercent) / 100

	raw := entity.RawExtraction{
		Items:        items,
		TotalExclTax: entity.Int64Ptr(excl),
		TotalInclTax: entity.Int64Ptr(incl),
		Method:       a.name,
	}
	a.ok(path, start, raw)
	return raw, nil
}
