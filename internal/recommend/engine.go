package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

// ItemFinder loads persisted items for a canonical category.
type ItemFinder interface {
	FindByCategory(ctx context.Context, category string) ([]entity.CategoryItem, error)
}

// NotFoundError reports a category with no stored items.
type NotFoundError struct {
	Category string
}

func (e *NotFoundError) Error() string { return "no items found for " + e.Category }

func (e *NotFoundError) Unwrap() error { return common.ErrNotFound }

// Engine computes price recommendations. It only reads.
type Engine struct {
	items  ItemFinder
	logger *slog.Logger
}

func NewEngine(items ItemFinder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{items: items, logger: logger}
}

// Recommend returns the cheapest single estimate, the split lower bound and
// every estimate's total for category, cheapest first.
func (e *Engine) Recommend(ctx context.Context, category string) (entity.Recommendation, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return entity.Recommendation{}, common.WrapError(common.ErrInvalidInput, "category is required")
	}
	start := time.Now()

	items, err := e.items.FindByCategory(ctx, category)
	if err != nil {
		return entity.Recommendation{}, fmt.Errorf("find items for %s: %w", category, err)
	}
	if len(items) == 0 {
		return entity.Recommendation{}, &NotFoundError{Category: category}
	}

	rec := Compute(category, items)
	e.logger.Info("recommend.ok",
		"category", category,
		"items", len(items),
		"vendors", len(rec.TotalsPerVendor),
		"single_best", rec.SingleVendorBest.Total,
		"split_best", rec.SplitTheoreticalBest.Total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// Compute is the pure part of Recommend.
func Compute(category string, items []entity.CategoryItem) entity.Recommendation {
	if len(items) == 0 {
		return entity.Recommendation{Category: category, TotalsPerVendor: []entity.VendorTotal{}}
	}
	totals := make(map[int64]*entity.VendorTotal)
	var (
		partsMin, laborMin int64
		hasParts, hasLabor bool
	)
	for _, it := range items {
		vt, ok := totals[it.EstimateID]
		if !ok {
			vt = &entity.VendorTotal{EstimateID: it.EstimateID, Vendor: it.VendorName}
			totals[it.EstimateID] = vt
		}
		vt.Total += it.AmountExclTax

		switch it.CostType {
		case constants.CostTypeParts:
			if !hasParts || it.AmountExclTax < partsMin {
				partsMin, hasParts = it.AmountExclTax, true
			}
		case constants.CostTypeLabor:
			if !hasLabor || it.AmountExclTax < laborMin {
				laborMin, hasLabor = it.AmountExclTax, true
			}
		}
	}

	perVendor := make([]entity.VendorTotal, 0, len(totals))
	for _, vt := range totals {
		perVendor = append(perVendor, *vt)
	}
	sort.Slice(perVendor, func(i, j int) bool { return perVendor[i].EstimateID < perVendor[j].EstimateID })
	sort.SliceStable(perVendor, func(i, j int) bool { return perVendor[i].Total < perVendor[j].Total })

	return entity.Recommendation{
		Category:         category,
		SingleVendorBest: perVendor[0],
		SplitTheoreticalBest: entity.SplitBest{
			PartsMin: partsMin,
			LaborMin: laborMin,
			Total:    partsMin + laborMin,
		},
		TotalsPerVendor: perVendor,
	}
}
