package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ict-ryuma/document-ocr/internal/entity"
)

const (
	SheetEstimates = "Estimates"
	SheetItems     = "Items"
	SheetSummary   = "Summary"
	SheetVendors   = "Vendors"
)

// EstimateSource loads stored estimates with their items.
type EstimateSource interface {
	LoadWithItems(ctx context.Context, limit int) ([]entity.Estimate, error)
}

// Service produces XLSX bytes for estimate and recommendation exports.
type Service struct {
	source EstimateSource
	logger *slog.Logger
}

func NewService(source EstimateSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// ExportEstimatesXLSX returns a workbook with one row per estimate and one
// row per line item. limit <= 0 exports everything.
func (s *Service) ExportEstimatesXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	ests, err := s.source.LoadWithItems(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	w, err := newWorkbook(f, SheetEstimates, SheetItems)
	if err != nil {
		return nil, err
	}

	w.header(SheetEstimates, "ID", "Vendor", "Address", "Estimate Date", "Total (excl. tax)", "Total (incl. tax)", "Method", "Warnings", "Created At")
	w.header(SheetItems, "Estimate ID", "Vendor", "Item", "Category", "Cost Type", "Quantity", "Amount (excl. tax)")

	row, itemRow := 2, 2
	items := 0
	for _, e := range ests {
		w.row(SheetEstimates, row,
			e.ID, e.VendorName, e.VendorAddress, e.EstimateDate,
			e.TotalExclTax, e.TotalInclTax, e.Method,
			truncate(strings.Join(e.Warnings, "; "), 140), e.CreatedAt.UTC().Format(time.RFC3339),
		)
		row++
		for _, it := range e.Items {
			w.row(SheetItems, itemRow,
				e.ID, e.VendorName, it.RawName, it.CanonicalName, string(it.CostType), it.Quantity, it.AmountExclTax,
			)
			itemRow++
			items++
		}
	}

	_ = f.SetColWidth(SheetEstimates, "A", "A", 8)
	_ = f.SetColWidth(SheetEstimates, "B", "C", 28)
	_ = f.SetColWidth(SheetEstimates, "D", "G", 16)
	_ = f.SetColWidth(SheetEstimates, "H", "H", 48)
	_ = f.SetColWidth(SheetEstimates, "I", "I", 22)
	_ = f.SetColWidth(SheetItems, "B", "C", 28)
	_ = f.SetColWidth(SheetItems, "D", "G", 16)
	if err := w.err(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"kind", "estimates",
		"rows", len(ests),
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportRecommendationXLSX renders a recommendation as a summary sheet and a
// per-vendor ranking.
func (s *Service) ExportRecommendationXLSX(_ context.Context, rec entity.Recommendation) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	w, err := newWorkbook(f, SheetSummary, SheetVendors)
	if err != nil {
		return nil, err
	}

	w.row(SheetSummary, 1, "Category", rec.Category)
	w.row(SheetSummary, 2, "Best single vendor", rec.SingleVendorBest.Vendor)
	w.row(SheetSummary, 3, "Best single estimate ID", rec.SingleVendorBest.EstimateID)
	w.row(SheetSummary, 4, "Best single total", rec.SingleVendorBest.Total)
	w.row(SheetSummary, 5, "Cheapest parts", rec.SplitTheoreticalBest.PartsMin)
	w.row(SheetSummary, 6, "Cheapest labor", rec.SplitTheoreticalBest.LaborMin)
	w.row(SheetSummary, 7, "Split theoretical total", rec.SplitTheoreticalBest.Total)
	w.row(SheetSummary, 8, "Savings vs single", rec.SingleVendorBest.Total-rec.SplitTheoreticalBest.Total)

	w.header(SheetVendors, "Rank", "Estimate ID", "Vendor", "Total (excl. tax)")
	for i, vt := range rec.TotalsPerVendor {
		w.row(SheetVendors, i+2, i+1, vt.EstimateID, vt.Vendor, vt.Total)
	}

	_ = f.SetColWidth(SheetSummary, "A", "A", 26)
	_ = f.SetColWidth(SheetSummary, "B", "B", 28)
	_ = f.SetColWidth(SheetVendors, "C", "C", 28)
	_ = f.SetColWidth(SheetVendors, "D", "D", 18)
	if err := w.err(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"kind", "recommendation",
		"category", rec.Category,
		"rows", len(rec.TotalsPerVendor),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// workbook remembers the first cell write error.
type workbook struct {
	f        *excelize.File
	firstErr error
}

// newWorkbook renames the default sheet to the first name and adds the rest.
func newWorkbook(f *excelize.File, sheets ...string) (*workbook, error) {
	if err := f.SetSheetName(f.GetSheetName(0), sheets[0]); err != nil {
		return nil, fmt.Errorf("xlsx sheet %s: %w", sheets[0], err)
	}
	for _, name := range sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("xlsx sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return &workbook{f: f}, nil
}

func (w *workbook) header(sheet string, cols ...any) {
	w.row(sheet, 1, cols...)
}

func (w *workbook) row(sheet string, row int, vals ...any) {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err == nil {
			err = w.f.SetCellValue(sheet, cell, v)
		}
		if err != nil && w.firstErr == nil {
			w.firstErr = fmt.Errorf("xlsx %s row %d: %w", sheet, row, err)
		}
	}
}

func (w *workbook) err() error { return w.firstErr }

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
