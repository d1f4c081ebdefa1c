package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/extract"
)

type fakeAdapter struct {
	name      string
	available bool
	raw       entity.RawExtraction
	err       error
	block     bool // wait for ctx
	before    func()

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Name() string    { return f.name }
func (f *fakeAdapter) Available() bool { return f.available }

func (f *fakeAdapter) Extract(ctx context.Context, _ string) (entity.RawExtraction, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.before != nil {
		f.before()
	}
	if f.block {
		<-ctx.Done()
		return entity.RawExtraction{}, extract.NewTimeoutError(f.name, ctx.Err())
	}
	return f.raw, f.err
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var fixedNow = func() time.Time { return time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC) }

func tempFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "estimate.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF"), 0o644))
	return p
}

func visionRaw() entity.RawExtraction {
	return entity.RawExtraction{
		VendorName:   "ABC自動車",
		EstimateDate: "令和7年7月21日",
		TotalExclTax: entity.Int64Ptr(6000),
		Items:        []entity.RawLineItem{{RawName: "ワイパー", AmountExclTax: 6000, Quantity: 1}},
		Warnings:     []string{"vision warning"},
	}
}

func documentRaw() entity.RawExtraction {
	return entity.RawExtraction{
		VendorName: "ABC",
		Items: []entity.RawLineItem{
			{RawName: "ワイパーブレード", AmountExclTax: 3800, Quantity: 1},
			{RawName: "ワイパー交換工賃", AmountExclTax: 2200, Quantity: 1},
		},
		Warnings: []string{"document warning"},
	}
}

func TestFallback_PrimaryTimeoutUsesSecondary(t *testing.T) {
	primary := &fakeAdapter{name: extract.NameVision, available: true, err: extract.NewTimeoutError(extract.NameVision, context.DeadlineExceeded)}
	secondary := &fakeAdapter{name: extract.NameDocument, available: true, raw: documentRaw()}

	o := New(Config{Strategy: constants.StrategyFallback}, []extract.Adapter{primary, secondary}, nil, WithClock(fixedNow))
	res, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)

	assert.Equal(t, extract.NameDocument, res.Method)
	assert.Equal(t, 1, primary.callCount())
	require.Len(t, res.Items, 2)
	assert.Equal(t, "wiper_blade", res.Items[0].CanonicalName)
	assert.Equal(t, constants.CostTypeParts, res.Items[0].CostType)
	assert.Equal(t, constants.CostTypeLabor, res.Items[1].CostType)
	assert.Equal(t, int64(6000), *res.TotalExclTax)
	assert.Equal(t, int64(6600), *res.TotalInclTax)
}

func TestFallback_SkipsUnavailable(t *testing.T) {
	primary := &fakeAdapter{name: extract.NameVision}
	secondary := &fakeAdapter{name: extract.NameDocument, available: true, raw: documentRaw()}

	o := New(Config{}, []extract.Adapter{primary, secondary}, nil, WithClock(fixedNow))
	res, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)
	assert.Equal(t, 0, primary.callCount())
	assert.Equal(t, extract.NameDocument, res.Method)
}

func TestFallback_AllFail(t *testing.T) {
	primary := &fakeAdapter{name: extract.NameVision, available: true, err: extract.NewExtractionError(extract.NameVision, "bad json", nil)}
	secondary := &fakeAdapter{name: extract.NameDocument}

	o := New(Config{}, []extract.Adapter{primary, secondary, extract.NewDummyAdapter(nil)}, nil)
	_, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.Error(t, err)

	assert.ErrorIs(t, err, common.ErrAllAdaptersFailed)
	var all *AllAdaptersFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 2, "dummy must not run when disallowed")
	assert.Equal(t, extract.NameVision, all.Attempts[0].Adapter)
	assert.True(t, extract.IsConfiguration(all.Attempts[1].Err))
	assert.Contains(t, err.Error(), "vision: vision: bad json")
	assert.Contains(t, err.Error(), "document:")
}

func TestFallback_DummyAtTail(t *testing.T) {
	primary := &fakeAdapter{name: extract.NameVision, available: true, err: errors.New("boom")}

	o := New(Config{AllowDummy: true}, []extract.Adapter{primary}, nil, WithClock(fixedNow))
	res, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)
	assert.Equal(t, extract.NameDummy, res.Method)
	assert.Len(t, res.Items, 5)
	assert.Equal(t, int64(15100), *res.TotalExclTax)
	assert.Equal(t, int64(16610), *res.TotalInclTax)
	assert.Equal(t, constants.DefaultVendorName, res.VendorName)
}

func TestHybrid_Merge(t *testing.T) {
	vision := &fakeAdapter{name: extract.NameVision, available: true, raw: visionRaw()}
	document := &fakeAdapter{name: extract.NameDocument, available: true, raw: documentRaw()}

	o := New(Config{Strategy: constants.StrategyHybrid}, []extract.Adapter{vision, document}, nil, WithClock(fixedNow))
	res, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "hybrid(header:vision, items:document)", res.Method)
	assert.Equal(t, "ABC自動車", res.VendorName)
	assert.Equal(t, "2025-07-21", res.EstimateDate)
	assert.Equal(t, int64(6000), *res.TotalExclTax)
	assert.Equal(t, int64(6600), *res.TotalInclTax)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "ワイパーブレード", res.Items[0].RawName)
	assert.Equal(t, []string{"vision warning", "document warning"}, res.Warnings)
}

func TestHybrid_RunsConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	both := make(chan struct{})
	go func() { started.Wait(); close(both) }()
	barrier := func() {
		started.Done()
		select {
		case <-both:
		case <-time.After(2 * time.Second):
		}
	}

	vision := &fakeAdapter{name: extract.NameVision, available: true, raw: visionRaw(), before: barrier}
	document := &fakeAdapter{name: extract.NameDocument, available: true, raw: documentRaw(), before: barrier}

	o := New(Config{Strategy: constants.StrategyHybrid}, []extract.Adapter{vision, document}, nil, WithClock(fixedNow))
	start := time.Now()
	_, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHybrid_OneSideFails(t *testing.T) {
	vision := &fakeAdapter{name: extract.NameVision, available: true, err: extract.NewExtractionError(extract.NameVision, "empty response", nil)}
	document := &fakeAdapter{name: extract.NameDocument, available: true, raw: documentRaw()}

	o := New(Config{Strategy: constants.StrategyHybrid}, []extract.Adapter{vision, document}, nil, WithClock(fixedNow))
	res, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)

	assert.Equal(t, extract.NameDocument, res.Method)
	assert.Contains(t, res.Warnings, "vision extraction failed: vision: empty response")
}

func TestHybrid_BothFailDummyDisallowed(t *testing.T) {
	vision := &fakeAdapter{name: extract.NameVision, available: true, err: extract.NewTimeoutError(extract.NameVision, context.DeadlineExceeded)}
	document := &fakeAdapter{name: extract.NameDocument, available: true, err: extract.NewExtractionError(extract.NameDocument, "status 500", nil)}

	o := New(Config{Strategy: constants.StrategyHybrid}, []extract.Adapter{vision, document}, nil)
	_, err := o.Extract(context.Background(), Request{Path: tempFile(t)})

	var all *AllAdaptersFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 2)
	assert.True(t, extract.IsTimeout(all.Attempts[0].Err))
	assert.ErrorIs(t, all.Attempts[1].Err, extract.ErrExtraction)
	assert.ErrorIs(t, err, common.ErrAllAdaptersFailed)
}

func TestHybrid_BothFailDummyAllowed(t *testing.T) {
	vision := &fakeAdapter{name: extract.NameVision}
	document := &fakeAdapter{name: extract.NameDocument, available: true, err: errors.New("boom")}

	o := New(Config{Strategy: constants.StrategyHybrid, AllowDummy: true}, []extract.Adapter{vision, document}, nil, WithClock(fixedNow))
	res, err := o.Extract(context.Background(), Request{Path: tempFile(t)})
	require.NoError(t, err)
	assert.Equal(t, extract.NameDummy, res.Method)
	assert.Len(t, res.Warnings, 3, "two side failures plus unresolved date")
}

func TestExtract_Canceled(t *testing.T) {
	for _, strategy := range []string{constants.StrategyFallback, constants.StrategyHybrid} {
		t.Run(strategy, func(t *testing.T) {
			vision := &fakeAdapter{name: extract.NameVision, available: true, block: true}
			document := &fakeAdapter{name: extract.NameDocument, available: true, block: true}
			o := New(Config{Strategy: strategy, AllowDummy: true}, []extract.Adapter{vision, document}, nil)

			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(20*time.Millisecond, cancel)

			_, err := o.Extract(ctx, Request{Path: tempFile(t)})
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestFinalize(t *testing.T) {
	o := New(Config{}, nil, nil, WithClock(fixedNow))

	t.Run("vendor override and hints", func(t *testing.T) {
		raw := entity.RawExtraction{
			VendorName:   "OCR Vendor",
			EstimateDate: "2025/7/1",
			TotalInclTax: entity.Int64Ptr(9999),
			Items: []entity.RawLineItem{
				{RawName: "車検代行", AmountExclTax: 10000, Quantity: 0, CostTypeHint: constants.CostTypeStatutoryFees},
				{RawName: "ブレーキパッド", CorrectedName: "タイヤ", AmountExclTax: 5000, Quantity: 2},
			},
		}
		res := o.finalize(o.logger, raw, Request{VendorName: " 指定業者 "})
		assert.Equal(t, "指定業者", res.VendorName)
		assert.Equal(t, "2025-07-01", res.EstimateDate)
		assert.Equal(t, int64(15000), *res.TotalExclTax)
		assert.Equal(t, int64(9999), *res.TotalInclTax)
		assert.Equal(t, constants.CostTypeStatutoryFees, res.Items[0].CostType)
		assert.Equal(t, 1, res.Items[0].Quantity)
		assert.Equal(t, "tire", res.Items[1].CanonicalName)
		assert.Empty(t, res.Warnings)
	})

	t.Run("unresolved date and default vendor", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil)).With("req_id", "req-42")
		res := o.finalize(log, entity.RawExtraction{EstimateDate: "近日中", Method: "vision"}, Request{})
		assert.Contains(t, buf.String(), "msg=orchestrator.date.fallback")
		assert.Contains(t, buf.String(), "req_id=req-42")
		assert.Equal(t, constants.DefaultVendorName, res.VendorName)
		assert.Equal(t, "2025-08-01", res.EstimateDate)
		assert.Equal(t, []string{"date unresolved: 近日中"}, res.Warnings)
		assert.Equal(t, int64(0), *res.TotalExclTax)
		assert.Equal(t, int64(0), *res.TotalInclTax)
	})

	t.Run("tax truncates", func(t *testing.T) {
		excl, incl := resolveTotals(entity.RawExtraction{Items: []entity.RawLineItem{{AmountExclTax: 1234}}})
		assert.Equal(t, int64(1234), *excl)
		assert.Equal(t, int64(1357), *incl)
	})
}

func TestExtract_EmptyPath(t *testing.T) {
	_, err := New(Config{}, nil, nil).Extract(context.Background(), Request{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestAdapters(t *testing.T) {
	o := New(Config{AllowDummy: true}, []extract.Adapter{
		&fakeAdapter{name: extract.NameVision, available: true},
		&fakeAdapter{name: extract.NameDocument},
	}, nil)
	assert.Equal(t, []AdapterStatus{
		{Name: extract.NameVision, Available: true},
		{Name: extract.NameDocument, Available: false},
		{Name: extract.NameDummy, Available: true},
	}, o.Adapters())
}

func ExampleAllAdaptersFailedError() {
	err := &AllAdaptersFailedError{Attempts: []Attempt{
		{Adapter: "vision", Err: errors.New("timeout")},
		{Adapter: "document", Err: errors.New("not configured")},
	}}
	fmt.Println(err)
	// Output: all extraction adapters failed: vision: timeout; document: not configured
}
