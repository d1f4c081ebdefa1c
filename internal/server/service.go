package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/estimates"
	"github.com/ict-ryuma/document-ocr/internal/orchestrator"
)

// Estimates is the service API the gRPC layer exposes.
type Estimates interface {
	Extract(ctx context.Context, path, vendorOverride string) (entity.ExtractionResult, error)
	Import(ctx context.Context, path, vendorOverride string) (estimates.ImportResult, error)
	Recommend(ctx context.Context, category string) (entity.Recommendation, error)
	FindCheapest(ctx context.Context, keyword, area string, limit int) ([]entity.CategoryItem, error)
	Statistics(ctx context.Context, keyword string) (entity.ItemStatistics, error)
	Get(ctx context.Context, id int64) (*entity.Estimate, error)
	Adapters() []orchestrator.AdapterStatus
}

// Exporter renders workbooks.
type Exporter interface {
	ExportEstimatesXLSX(ctx context.Context, limit int) ([]byte, error)
	ExportRecommendationXLSX(ctx context.Context, rec entity.Recommendation) ([]byte, error)
}

type EstimateServer struct {
	svc      Estimates
	exporter Exporter
	logger   *slog.Logger
}

var _ EstimateServiceServer = (*EstimateServer)(nil)

func NewEstimateServer(svc Estimates, exporter Exporter, logger *slog.Logger) *EstimateServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EstimateServer{svc: svc, exporter: exporter, logger: logger}
}

func (s *EstimateServer) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := stringField(req, "path")
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	res, err := s.svc.Extract(ctx, path, stringField(req, "vendor_name"))
	if err != nil {
		s.logger.Error("extract failed", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"result": res})
}

func (s *EstimateServer) Import(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := stringField(req, "path")
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	res, err := s.svc.Import(ctx, path, stringField(req, "vendor_name"))
	if err != nil {
		s.logger.Error("import failed", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"estimate_id": res.EstimateID, "result": res.Result})
}

func (s *EstimateServer) Recommend(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	category := stringField(req, "category")
	if category == "" {
		return nil, status.Error(codes.InvalidArgument, "category is required")
	}
	rec, err := s.svc.Recommend(ctx, category)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(rec)
}

func (s *EstimateServer) Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items, err := s.svc.FindCheapest(ctx, stringField(req, "keyword"), stringField(req, "area"), intField(req, "limit"))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	if items == nil {
		items = []entity.CategoryItem{}
	}
	return toStruct(map[string]any{"items": items})
}

func (s *EstimateServer) Statistics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	stats, err := s.svc.Statistics(ctx, stringField(req, "keyword"))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(stats)
}

func (s *EstimateServer) GetEstimate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := int64(intField(req, "id"))
	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}
	est, err := s.svc.Get(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(est)
}

func (s *EstimateServer) ListAdapters(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]any{"adapters": s.svc.Adapters()})
}

// toStruct converts v through its JSON form, so field names follow the json tags.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// DecodeStruct converts a response back into a typed value.
func DecodeStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

// intField accepts a number or a numeric string.
func intField(s *structpb.Struct, key string) int {
	if s == nil {
		return 0
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return 0
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return int(k.NumberValue)
	case *structpb.Value_StringValue:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(k.StringValue), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}
