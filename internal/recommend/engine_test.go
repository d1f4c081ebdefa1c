package recommend

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

type fakeFinder struct {
	items []entity.CategoryItem
	err   error
	got   string
}

func (f *fakeFinder) FindByCategory(_ context.Context, category string) ([]entity.CategoryItem, error) {
	f.got = category
	return f.items, f.err
}

func item(estimateID int64, vendor string, ct constants.CostType, amount int64) entity.CategoryItem {
	return entity.CategoryItem{
		EstimateItem: entity.EstimateItem{
			EstimateID:    estimateID,
			CanonicalName: "wiper_blade",
			CostType:      ct,
			AmountExclTax: amount,
			Quantity:      1,
		},
		VendorName: vendor,
	}
}

func TestRecommend_TwoVendors(t *testing.T) {
	finder := &fakeFinder{items: []entity.CategoryItem{
		item(2, "B", constants.CostTypeParts, 4200),
		item(1, "A", constants.CostTypeParts, 3800),
		item(2, "B", constants.CostTypeLabor, 2500),
		item(1, "A", constants.CostTypeLabor, 2200),
	}}

	rec, err := NewEngine(finder, nil).Recommend(context.Background(), " wiper_blade ")
	require.NoError(t, err)

	assert.Equal(t, "wiper_blade", finder.got)
	assert.Equal(t, entity.VendorTotal{EstimateID: 1, Vendor: "A", Total: 6000}, rec.SingleVendorBest)
	assert.Equal(t, entity.SplitBest{PartsMin: 3800, LaborMin: 2200, Total: 6000}, rec.SplitTheoreticalBest)
	assert.Equal(t, []entity.VendorTotal{
		{EstimateID: 1, Vendor: "A", Total: 6000},
		{EstimateID: 2, Vendor: "B", Total: 6700},
	}, rec.TotalsPerVendor)
}

func TestRecommend_TieBreaksOnLowestEstimateID(t *testing.T) {
	finder := &fakeFinder{items: []entity.CategoryItem{
		item(9, "Z", constants.CostTypeParts, 5000),
		item(4, "Y", constants.CostTypeParts, 5000),
		item(7, "X", constants.CostTypeParts, 5000),
	}}
	rec, err := NewEngine(finder, nil).Recommend(context.Background(), "tire")
	require.NoError(t, err)

	assert.Equal(t, int64(4), rec.SingleVendorBest.EstimateID)
	ids := []int64{}
	for _, vt := range rec.TotalsPerVendor {
		ids = append(ids, vt.EstimateID)
	}
	assert.Equal(t, []int64{4, 7, 9}, ids)
	assert.Equal(t, int64(0), rec.SplitTheoreticalBest.LaborMin)
	assert.Equal(t, int64(5000), rec.SplitTheoreticalBest.Total)
}

func TestRecommend_NotFound(t *testing.T) {
	_, err := NewEngine(&fakeFinder{}, nil).Recommend(context.Background(), "battery")
	require.Error(t, err)

	assert.ErrorIs(t, err, common.ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "battery", nf.Category)
	assert.Equal(t, "no items found for battery", err.Error())
}

func TestRecommend_Errors(t *testing.T) {
	_, err := NewEngine(&fakeFinder{}, nil).Recommend(context.Background(), "  ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	boom := errors.New("connection refused")
	_, err = NewEngine(&fakeFinder{err: boom}, nil).Recommend(context.Background(), "tire")
	assert.ErrorIs(t, err, boom)
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		estimates := 1 + rng.Intn(8)
		var items []entity.CategoryItem
		for id := 1; id <= estimates; id++ {
			// every estimate carries at least one parts and one labor line
			items = append(items,
				item(int64(id), "v", constants.CostTypeParts, int64(rng.Intn(10000))),
				item(int64(id), "v", constants.CostTypeLabor, int64(rng.Intn(5000))),
			)
			for extra := rng.Intn(3); extra > 0; extra-- {
				cts := []constants.CostType{constants.CostTypeParts, constants.CostTypeLabor, constants.CostTypeStatutoryFees, constants.CostTypeOther}
				items = append(items, item(int64(id), "v", cts[rng.Intn(len(cts))], int64(rng.Intn(8000))))
			}
		}
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

		rec := Compute("x", items)

		assert.LessOrEqual(t, rec.SplitTheoreticalBest.Total, rec.SingleVendorBest.Total)
		assert.Len(t, rec.TotalsPerVendor, estimates)
		assert.True(t, sort.SliceIsSorted(rec.TotalsPerVendor, func(i, j int) bool {
			a, b := rec.TotalsPerVendor[i], rec.TotalsPerVendor[j]
			return a.Total < b.Total || (a.Total == b.Total && a.EstimateID < b.EstimateID)
		}))
		assert.Equal(t, rec.TotalsPerVendor[0], rec.SingleVendorBest)
	}
}

func TestCompute_Empty(t *testing.T) {
	rec := Compute("x", nil)
	assert.Empty(t, rec.TotalsPerVendor)
	assert.Zero(t, rec.SingleVendorBest.Total)
}
