package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

type fakeSource struct {
	ests  []entity.Estimate
	err   error
	limit int
}

func (f *fakeSource) LoadWithItems(_ context.Context, limit int) ([]entity.Estimate, error) {
	f.limit = limit
	return f.ests, f.err
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportEstimatesXLSX(t *testing.T) {
	src := &fakeSource{ests: []entity.Estimate{
		{
			ID: 7, VendorName: "A自動車", EstimateDate: "2025-07-21",
			TotalExclTax: 6000, TotalInclTax: 6600, Method: "vision",
			Warnings:  []string{"date unresolved: x", strings.Repeat("長", 200)},
			CreatedAt: time.Date(2025, 7, 22, 1, 2, 3, 0, time.UTC),
			Items: []entity.EstimateItem{
				{ID: 1, EstimateID: 7, RawName: "ワイパーブレード", CanonicalName: "wiper_blade", CostType: constants.CostTypeParts, AmountExclTax: 3800, Quantity: 2},
				{ID: 2, EstimateID: 7, RawName: "交換工賃", CanonicalName: "wiper_blade", CostType: constants.CostTypeLabor, AmountExclTax: 2200, Quantity: 1},
			},
		},
	}}
	b, err := NewService(src, nil).ExportEstimatesXLSX(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, src.limit)

	f := open(t, b)
	assert.Equal(t, []string{SheetEstimates, SheetItems}, f.GetSheetList())

	rows, err := f.GetRows(SheetEstimates)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Vendor", rows[0][1])
	assert.Equal(t, []string{"7", "A自動車", "", "2025-07-21", "6000", "6600", "vision"}, rows[1][:7])
	assert.Equal(t, 140, len([]rune(rows[1][7])))
	assert.Equal(t, "2025-07-22T01:02:03Z", rows[1][8])

	items, err := f.GetRows(SheetItems)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"7", "A自動車", "ワイパーブレード", "wiper_blade", "parts", "2", "3800"}, items[1])
	assert.Equal(t, "labor", items[2][4])
}

func TestExportEstimatesXLSX_SourceError(t *testing.T) {
	_, err := NewService(&fakeSource{err: errors.New("db down")}, nil).ExportEstimatesXLSX(context.Background(), 0)
	assert.ErrorContains(t, err, "query estimates: db down")
}

func TestExportRecommendationXLSX(t *testing.T) {
	rec := entity.Recommendation{
		Category:             "wiper_blade",
		SingleVendorBest:     entity.VendorTotal{EstimateID: 2, Vendor: "B", Total: 5700},
		SplitTheoreticalBest: entity.SplitBest{PartsMin: 3800, LaborMin: 1500, Total: 5300},
		TotalsPerVendor: []entity.VendorTotal{
			{EstimateID: 2, Vendor: "B", Total: 5700},
			{EstimateID: 1, Vendor: "A", Total: 6000},
		},
	}
	b, err := NewService(nil, nil).ExportRecommendationXLSX(context.Background(), rec)
	require.NoError(t, err)

	f := open(t, b)
	assert.Equal(t, []string{SheetSummary, SheetVendors}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "wiper_blade", v)
	v, err = f.GetCellValue(SheetSummary, "B8")
	require.NoError(t, err)
	assert.Equal(t, "400", v)

	rows, err := f.GetRows(SheetVendors)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "2", "B", "5700"}, rows[1])
	assert.Equal(t, []string{"2", "1", "A", "6000"}, rows[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "見積…", truncate("見積明細", 3))
}
