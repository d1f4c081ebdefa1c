package estimates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/orchestrator"
	"github.com/ict-ryuma/document-ocr/internal/recommend"
	"github.com/ict-ryuma/document-ocr/internal/repository"
)

const (
	maxCategoryLen = 64
	maxKeywordLen  = 128
	maxSearchLimit = 500
)

// Extractor runs one orchestrated extraction.
type Extractor interface {
	Extract(ctx context.Context, req orchestrator.Request) (entity.ExtractionResult, error)
	Adapters() []orchestrator.AdapterStatus
}

// Service ties extraction, persistence and recommendation together.
type Service struct {
	extractor Extractor
	repo      repository.EstimateRepository
	engine    *recommend.Engine
	logger    *slog.Logger
}

// NewService creates a new estimate service. The recommendation engine reads
// through repo.
func NewService(extractor Extractor, repo repository.EstimateRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: extractor,
		repo:      repo,
		engine:    recommend.NewEngine(repo, logger),
		logger:    logger,
	}
}

// ImportResult is a saved extraction.
type ImportResult struct {
	EstimateID int64
	Result     entity.ExtractionResult
}

// Extract runs extraction only; nothing is stored.
func (s *Service) Extract(ctx context.Context, path, vendorOverride string) (entity.ExtractionResult, error) {
	if strings.TrimSpace(path) == "" {
		return entity.ExtractionResult{}, common.WrapError(common.ErrInvalidInput, "path is required")
	}
	return s.extractor.Extract(ctx, orchestrator.Request{Path: path, VendorName: vendorOverride})
}

// Import extracts the estimate at path and persists it.
func (s *Service) Import(ctx context.Context, path, vendorOverride string) (ImportResult, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	log := s.logger.With("req_id", rid, "path", path)
	start := time.Now()

	res, err := s.Extract(ctx, path, vendorOverride)
	if err != nil {
		log.Error("estimates.import.extract_failed", "error", err)
		return ImportResult{}, err
	}
	if s.repo == nil {
		return ImportResult{}, common.WrapError(common.ErrInternal, "no estimate repository configured")
	}
	id, err := s.repo.Save(ctx, res)
	if err != nil {
		log.Error("estimates.import.save_failed", "vendor", res.VendorName, "error", err)
		return ImportResult{}, fmt.Errorf("save estimate: %w", err)
	}

	log.Info("estimates.import.ok",
		"estimate_id", id,
		"vendor", res.VendorName,
		"items", len(res.Items),
		"method", res.Method,
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ImportResult{EstimateID: id, Result: res}, nil
}

// Recommend computes price recommendations for a canonical category.
func (s *Service) Recommend(ctx context.Context, category string) (entity.Recommendation, error) {
	v := common.NewValidator().Field("category", category, common.Required, common.MaxLength(maxCategoryLen))
	if err := common.ValidateAndReturnError(v); err != nil {
		return entity.Recommendation{}, err
	}
	return s.engine.Recommend(ctx, category)
}

// FindCheapest returns the cheapest stored items matching keyword, optionally
// limited to vendors in area.
func (s *Service) FindCheapest(ctx context.Context, keyword, area string, limit int) ([]entity.CategoryItem, error) {
	if strings.TrimSpace(keyword) == "" && strings.TrimSpace(area) == "" {
		return nil, common.WrapError(common.ErrInvalidInput, "keyword or area is required")
	}
	v := common.NewValidator().
		Field("keyword", keyword, common.MaxLength(maxKeywordLen)).
		Field("limit", limit, common.IntRange(0, maxSearchLimit))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	items, err := s.repo.Search(ctx, keyword, area, limit)
	if err != nil {
		s.logger.Error("failed to search items", "keyword", keyword, "area", area, "error", err)
		return nil, err
	}
	s.logger.Info("estimates.search.ok", "keyword", keyword, "area", area, "results", len(items))
	return items, nil
}

// Statistics summarizes stored amounts for keyword.
func (s *Service) Statistics(ctx context.Context, keyword string) (entity.ItemStatistics, error) {
	return s.repo.Statistics(ctx, keyword)
}

// AveragePrices returns the mean amount per canonical name and cost type.
func (s *Service) AveragePrices(ctx context.Context) ([]entity.AveragePrice, error) {
	return s.repo.AveragePrices(ctx)
}

// Get loads a stored estimate with its items.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Estimate, error) {
	if id <= 0 {
		return nil, common.WrapError(common.ErrInvalidInput, fmt.Sprintf("estimate id must be positive, got %d", id))
	}
	return s.repo.Get(ctx, id)
}

// List returns the newest stored estimates, without items.
func (s *Service) List(ctx context.Context, limit int) ([]entity.Estimate, error) {
	return s.repo.List(ctx, limit)
}

// LoadWithItems resolves headers from List into full estimates.
func (s *Service) LoadWithItems(ctx context.Context, limit int) ([]entity.Estimate, error) {
	heads, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Estimate, 0, len(heads))
	for _, h := range heads {
		est, err := s.repo.Get(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *est)
	}
	return out, nil
}

// Adapters reports which extraction backends are usable.
func (s *Service) Adapters() []orchestrator.AdapterStatus {
	return s.extractor.Adapters()
}
