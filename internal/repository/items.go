package repository

import (
	"context"
	"database/sql"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

// itemJoin selects items joined with their estimate header.
func (r *estimateRepository) itemJoin() (*entsql.Selector, *entsql.SelectTable, *entsql.SelectTable) {
	b := r.db.builder()
	i := b.Table(tableItems).As("i")
	e := b.Table(tableEstimates).As("e")
	sel := b.Select(
		i.C("id"), i.C("estimate_id"), i.C("raw_name"), i.C("canonical_name"),
		i.C("cost_type"), i.C("amount_excl_tax"), i.C("quantity"),
		e.C("vendor_name"), e.C("vendor_address"), e.C("estimate_date"),
	).From(i).Join(e).On(i.C("estimate_id"), e.C("id"))
	return sel, i, e
}

// FindByCategory returns every stored item with the given canonical name,
// ordered by estimate and item id.
func (r *estimateRepository) FindByCategory(ctx context.Context, category string) ([]entity.CategoryItem, error) {
	sel, i, _ := r.itemJoin()
	q, args := sel.
		Where(entsql.EQ(i.C("canonical_name"), category)).
		OrderBy(i.C("estimate_id"), i.C("id")).
		Query()

	items, err := r.queryItems(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to find items by category", "category", category, "error", err)
		return nil, err
	}
	r.logger.Debug("repository.items.by_category", "category", category, "items", len(items))
	return items, nil
}

// Search finds the cheapest items whose raw name, canonical name or vendor
// matches keyword, optionally restricted to vendors whose address contains area.
func (r *estimateRepository) Search(ctx context.Context, keyword, area string, limit int) ([]entity.CategoryItem, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	sel, i, e := r.itemJoin()

	var preds []*entsql.Predicate
	if kw := strings.TrimSpace(keyword); kw != "" {
		preds = append(preds, entsql.Or(
			entsql.Contains(i.C("raw_name"), kw),
			entsql.Contains(i.C("corrected_name"), kw),
			entsql.Contains(i.C("canonical_name"), strings.ToLower(kw)),
			entsql.Contains(e.C("vendor_name"), kw),
		))
	}
	if a := strings.TrimSpace(area); a != "" {
		preds = append(preds, entsql.Contains(e.C("vendor_address"), a))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	q, args := sel.
		OrderBy(i.C("amount_excl_tax"), i.C("id")).
		Limit(limit).
		Query()

	items, err := r.queryItems(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to search items", "keyword", keyword, "area", area, "error", err)
		return nil, err
	}
	return items, nil
}

// Statistics summarizes amounts of items whose name contains keyword.
func (r *estimateRepository) Statistics(ctx context.Context, keyword string) (entity.ItemStatistics, error) {
	b := r.db.builder()
	i := b.Table(tableItems).As("i")
	e := b.Table(tableEstimates).As("e")
	kw := strings.TrimSpace(keyword)

	sel := b.Select(
		entsql.Count(i.C("id")),
		entsql.Count(entsql.Distinct(e.C("vendor_name"))),
		entsql.Avg(i.C("amount_excl_tax")),
		entsql.Min(i.C("amount_excl_tax")),
		entsql.Max(i.C("amount_excl_tax")),
	).From(i).Join(e).On(i.C("estimate_id"), e.C("id"))
	if kw != "" {
		sel.Where(entsql.Or(
			entsql.Contains(i.C("raw_name"), kw),
			entsql.Contains(i.C("corrected_name"), kw),
			entsql.Contains(i.C("canonical_name"), strings.ToLower(kw)),
		))
	}
	q, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("failed to compute item statistics", "keyword", keyword, "error", err)
		return entity.ItemStatistics{}, dbErr("query statistics", err)
	}
	defer rows.Close()

	stats := entity.ItemStatistics{Keyword: kw}
	if rows.Next() {
		var (
			avg    sql.NullFloat64
			lo, hi sql.NullInt64
		)
		if err := rows.Scan(&stats.TotalItems, &stats.VendorCount, &avg, &lo, &hi); err != nil {
			return entity.ItemStatistics{}, dbErr("scan statistics", err)
		}
		stats.Average, stats.Min, stats.Max = avg.Float64, lo.Int64, hi.Int64
	}
	if err := rows.Err(); err != nil {
		return entity.ItemStatistics{}, dbErr("iterate statistics", err)
	}
	return stats, nil
}

// AveragePrices returns the mean amount per canonical name and cost type.
func (r *estimateRepository) AveragePrices(ctx context.Context) ([]entity.AveragePrice, error) {
	b := r.db.builder()
	t := b.Table(tableItems)
	q, args := b.Select(
		t.C("canonical_name"),
		t.C("cost_type"),
		entsql.Avg(t.C("amount_excl_tax")),
		entsql.Count(t.C("id")),
	).From(t).
		GroupBy(t.C("canonical_name"), t.C("cost_type")).
		OrderBy(t.C("canonical_name"), t.C("cost_type")).
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		r.logger.Error("failed to compute average prices", "error", err)
		return nil, dbErr("query average prices", err)
	}
	defer rows.Close()

	var out []entity.AveragePrice
	for rows.Next() {
		var (
			ap  entity.AveragePrice
			ct  string
			avg sql.NullFloat64
		)
		if err := rows.Scan(&ap.CanonicalName, &ct, &avg, &ap.Samples); err != nil {
			return nil, dbErr("scan average price", err)
		}
		ap.CostType = constants.CostType(ct)
		ap.Average = avg.Float64
		out = append(out, ap)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate average prices", err)
	}
	return out, nil
}

func (r *estimateRepository) queryItems(ctx context.Context, q string, args []any) ([]entity.CategoryItem, error) {
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, dbErr("query items", err)
	}
	defer rows.Close()

	var out []entity.CategoryItem
	for rows.Next() {
		var (
			it entity.CategoryItem
			ct string
		)
		if err := rows.Scan(&it.ID, &it.EstimateID, &it.RawName, &it.CanonicalName, &ct,
			&it.AmountExclTax, &it.Quantity, &it.VendorName, &it.VendorAddress, &it.EstimateDate); err != nil {
			return nil, dbErr("scan item", err)
		}
		it.CostType = constants.CostType(ct)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate items", err)
	}
	return out, nil
}
