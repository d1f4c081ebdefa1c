package estimates

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/orchestrator"
	"github.com/ict-ryuma/document-ocr/internal/recommend"
	"github.com/ict-ryuma/document-ocr/internal/repository"
)

type fakeExtractor struct {
	results map[string]entity.ExtractionResult
	err     error
	reqs    []orchestrator.Request
}

func (f *fakeExtractor) Extract(_ context.Context, req orchestrator.Request) (entity.ExtractionResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return entity.ExtractionResult{}, f.err
	}
	res := f.results[req.Path]
	if req.VendorName != "" {
		res.VendorName = req.VendorName
	}
	return res, nil
}

func (f *fakeExtractor) Adapters() []orchestrator.AdapterStatus {
	return []orchestrator.AdapterStatus{{Name: "vision", Available: true}}
}

func item(raw, canonical string, ct constants.CostType, amount int64) entity.NormalizedLineItem {
	return entity.NormalizedLineItem{
		RawLineItem:   entity.RawLineItem{RawName: raw, AmountExclTax: amount, Quantity: 1},
		CanonicalName: canonical,
		CostType:      ct,
	}
}

func estimate(vendor, address string, items ...entity.NormalizedLineItem) entity.ExtractionResult {
	var sum int64
	for _, it := range items {
		sum += it.AmountExclTax
	}
	return entity.ExtractionResult{
		VendorName:    vendor,
		VendorAddress: address,
		EstimateDate:  "2025-07-21",
		TotalExclTax:  entity.Int64Ptr(sum),
		TotalInclTax:  entity.Int64Ptr(sum * 110 / 100),
		Items:         items,
		Method:        "vision",
	}
}

func newService(t *testing.T, ex Extractor) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: filepath.Join(t.TempDir(), "svc.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return NewService(ex, repository.NewEstimateRepository(db, nil), nil)
}

func scenario() *fakeExtractor {
	return &fakeExtractor{results: map[string]entity.ExtractionResult{
		"a.pdf": estimate("A", "東京都港区",
			item("ワイパーブレード", "wiper_blade", constants.CostTypeParts, 3800),
			item("ワイパー交換工賃", "wiper_blade", constants.CostTypeLabor, 2200),
		),
		"b.pdf": estimate("B", "大阪府堺市",
			item("ワイパーブレード", "wiper_blade", constants.CostTypeParts, 4200),
			item("ワイパー交換工賃", "wiper_blade", constants.CostTypeLabor, 1500),
		),
	}}
}

func TestImportThenRecommend(t *testing.T) {
	ex := scenario()
	svc := newService(t, ex)
	ctx := context.Background()

	a, err := svc.Import(ctx, "a.pdf", "")
	require.NoError(t, err)
	b, err := svc.Import(ctx, "b.pdf", "")
	require.NoError(t, err)
	assert.Less(t, a.EstimateID, b.EstimateID)
	assert.Equal(t, "A", a.Result.VendorName)

	rec, err := svc.Recommend(ctx, "wiper_blade")
	require.NoError(t, err)
	assert.Equal(t, entity.VendorTotal{EstimateID: b.EstimateID, Vendor: "B", Total: 5700}, rec.SingleVendorBest)
	assert.Equal(t, entity.SplitBest{PartsMin: 3800, LaborMin: 1500, Total: 5300}, rec.SplitTheoreticalBest)
	require.Len(t, rec.TotalsPerVendor, 2)
	assert.Equal(t, int64(6000), rec.TotalsPerVendor[1].Total)

	got, err := svc.Get(ctx, a.EstimateID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	all, err := svc.LoadWithItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all[0].Items, 2)
}

func TestImport_VendorOverride(t *testing.T) {
	ex := scenario()
	svc := newService(t, ex)

	res, err := svc.Import(context.Background(), "a.pdf", "C整備")
	require.NoError(t, err)
	assert.Equal(t, "C整備", res.Result.VendorName)
	require.Len(t, ex.reqs, 1)
	assert.Equal(t, "C整備", ex.reqs[0].VendorName)
}

func TestImport_ExtractionFailureSavesNothing(t *testing.T) {
	ex := &fakeExtractor{err: &orchestrator.AllAdaptersFailedError{Attempts: []orchestrator.Attempt{{Adapter: "vision", Err: errors.New("boom")}}}}
	svc := newService(t, ex)

	_, err := svc.Import(context.Background(), "a.pdf", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAllAdaptersFailed)

	list, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestValidation(t *testing.T) {
	svc := newService(t, scenario())
	ctx := context.Background()

	_, err := svc.Import(ctx, " ", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.FindCheapest(ctx, "", "", 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Get(ctx, 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Recommend(ctx, "  ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.FindCheapest(ctx, "工賃", "", 1000)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.Recommend(ctx, "battery")
	var nf *recommend.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindCheapestAndStatistics(t *testing.T) {
	svc := newService(t, scenario())
	ctx := context.Background()
	for _, p := range []string{"a.pdf", "b.pdf"} {
		_, err := svc.Import(ctx, p, "")
		require.NoError(t, err)
	}

	items, err := svc.FindCheapest(ctx, "工賃", "", 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].VendorName)
	assert.Equal(t, int64(1500), items[0].AmountExclTax)

	items, err = svc.FindCheapest(ctx, "", "東京", 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	stats, err := svc.Statistics(ctx, "ワイパー")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalItems)
	assert.Equal(t, int64(1500), stats.Min)
	assert.Equal(t, int64(4200), stats.Max)

	avgs, err := svc.AveragePrices(ctx)
	require.NoError(t, err)
	assert.Len(t, avgs, 2)

	assert.Equal(t, "vision", svc.Adapters()[0].Name)
}
