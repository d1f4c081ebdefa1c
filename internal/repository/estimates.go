package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

const (
	tableEstimates = "estimates"
	tableItems     = "estimate_items"

	defaultSearchLimit = 10
)

var estimateColumns = []string{
	"id", "vendor_name", "vendor_address", "estimate_date",
	"total_excl_tax", "total_incl_tax", "method", "warnings", "created_at",
}

var itemColumns = []string{
	"id", "estimate_id", "raw_name", "canonical_name", "cost_type", "amount_excl_tax", "quantity",
}

type EstimateRepository interface {
	Save(ctx context.Context, res entity.ExtractionResult) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Estimate, error)
	List(ctx context.Context, limit int) ([]entity.Estimate, error)
	FindByCategory(ctx context.Context, category string) ([]entity.CategoryItem, error)
	Search(ctx context.Context, keyword, area string, limit int) ([]entity.CategoryItem, error)
	Statistics(ctx context.Context, keyword string) (entity.ItemStatistics, error)
	AveragePrices(ctx context.Context) ([]entity.AveragePrice, error)
}

type estimateRepository struct {
	db     *DB
	now    func() time.Time
	logger *slog.Logger
}

func NewEstimateRepository(db *DB, logger *slog.Logger) EstimateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &estimateRepository{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

// Save writes the estimate and its items in one transaction.
func (r *estimateRepository) Save(ctx context.Context, res entity.ExtractionResult) (id int64, err error) {
	excl, incl := int64(0), int64(0)
	if res.TotalExclTax != nil {
		excl = *res.TotalExclTax
	}
	if res.TotalInclTax != nil {
		incl = *res.TotalInclTax
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return 0, fmt.Errorf("encode warnings: %w", err)
	}

	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		return 0, dbErr("begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Warn("repository.estimate.rollback_failed", "error", rbErr)
			}
		}
	}()

	b := r.db.builder()
	q, args := b.Insert(tableEstimates).
		Columns("vendor_name", "vendor_address", "estimate_date", "total_excl_tax", "total_incl_tax", "method", "warnings", "created_at").
		Values(res.VendorName, res.VendorAddress, res.EstimateDate, excl, incl, res.Method, string(warningsJSON), r.now().UTC()).
		Returning("id").
		Query()

	var rows entsql.Rows
	if err = tx.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("failed to insert estimate", "vendor", res.VendorName, "error", err)
		return 0, dbErr("insert estimate", err)
	}
	id, err = scanID(&rows)
	if err != nil {
		return 0, dbErr("read estimate id", err)
	}

	if len(res.Items) > 0 {
		ins := b.Insert(tableItems).Columns(
			"estimate_id", "raw_name", "corrected_name", "canonical_name",
			"cost_type", "amount_excl_tax", "quantity", "confidence",
		)
		for _, it := range res.Items {
			qty := it.Quantity
			if qty < 1 {
				qty = 1
			}
			ins.Values(id, it.RawName, it.CorrectedName, it.CanonicalName, string(it.CostType), it.AmountExclTax, qty, it.Confidence)
		}
		q, args = ins.Query()
		if err = tx.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("failed to insert estimate items", "estimate_id", id, "items", len(res.Items), "error", err)
			return 0, dbErr("insert estimate items", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, dbErr("commit estimate", err)
	}
	r.logger.Info("repository.estimate.saved", "estimate_id", id, "vendor", res.VendorName, "items", len(res.Items))
	return id, nil
}

func scanID(rows *entsql.Rows) (int64, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, sql.ErrNoRows
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

func (r *estimateRepository) Get(ctx context.Context, id int64) (*entity.Estimate, error) {
	b := r.db.builder()
	q, args := b.Select(estimateColumns...).
		From(b.Table(tableEstimates)).
		Where(entsql.EQ("id", id)).
		Query()

	ests, err := r.queryEstimates(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to get estimate", "estimate_id", id, "error", err)
		return nil, err
	}
	if len(ests) == 0 {
		return nil, fmt.Errorf("estimate %d: %w", id, common.ErrNotFound)
	}
	est := ests[0]

	q, args = b.Select(itemColumns...).
		From(b.Table(tableItems)).
		Where(entsql.EQ("estimate_id", id)).
		OrderBy("id").
		Query()
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, dbErr("query estimate items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.EstimateItem
		var ct string
		if err := rows.Scan(&it.ID, &it.EstimateID, &it.RawName, &it.CanonicalName, &ct, &it.AmountExclTax, &it.Quantity); err != nil {
			return nil, dbErr("scan estimate item", err)
		}
		it.CostType = constants.CostType(ct)
		est.Items = append(est.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate estimate items", err)
	}
	return &est, nil
}

// List returns the newest estimates first, without items.
func (r *estimateRepository) List(ctx context.Context, limit int) ([]entity.Estimate, error) {
	b := r.db.builder()
	sel := b.Select(estimateColumns...).
		From(b.Table(tableEstimates)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	return r.queryEstimates(ctx, q, args)
}

func (r *estimateRepository) queryEstimates(ctx context.Context, q string, args []any) ([]entity.Estimate, error) {
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, dbErr("query estimates", err)
	}
	defer rows.Close()

	var out []entity.Estimate
	for rows.Next() {
		var (
			e        entity.Estimate
			warnings string
		)
		if err := rows.Scan(&e.ID, &e.VendorName, &e.VendorAddress, &e.EstimateDate,
			&e.TotalExclTax, &e.TotalInclTax, &e.Method, &warnings, &e.CreatedAt); err != nil {
			return nil, dbErr("scan estimate", err)
		}
		if strings.TrimSpace(warnings) != "" {
			if err := json.Unmarshal([]byte(warnings), &e.Warnings); err != nil {
				r.logger.Warn("repository.estimate.bad_warnings", "estimate_id", e.ID, "error", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate estimates", err)
	}
	return out, nil
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrDatabase, err)
}
