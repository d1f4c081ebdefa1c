package server

import (
	"context"
	"encoding/base64"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ict-ryuma/document-ocr/internal/common"
)

func (s *EstimateServer) ExportEstimates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	xlsx, err := s.exporter.ExportEstimatesXLSX(ctx, intField(req, "limit"))
	if err != nil {
		s.logger.Error("export.xlsx.failed", "kind", "estimates", "error", err)
		return nil, common.ToStatus(err)
	}
	return xlsxResponse(xlsx)
}

func (s *EstimateServer) ExportRecommendation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export is not configured")
	}
	category := stringField(req, "category")
	if category == "" {
		return nil, status.Error(codes.InvalidArgument, "category is required")
	}
	rec, err := s.svc.Recommend(ctx, category)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	xlsx, err := s.exporter.ExportRecommendationXLSX(ctx, rec)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "kind", "recommendation", "category", category, "error", err)
		return nil, common.ToStatus(err)
	}
	return xlsxResponse(xlsx)
}

// xlsxResponse carries workbook bytes as base64, since Struct has no bytes kind.
func xlsxResponse(b []byte) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"xlsx_base64": base64.StdEncoding.EncodeToString(b),
		"size":        len(b),
	})
}
