package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "estimates.v1.EstimateService"

// Method names. Requests and responses are google.protobuf.Struct.
const (
	MethodExtract              = "Extract"
	MethodImport               = "Import"
	MethodRecommend            = "Recommend"
	MethodSearch               = "Search"
	MethodStatistics           = "Statistics"
	MethodGetEstimate          = "GetEstimate"
	MethodListAdapters         = "ListAdapters"
	MethodExportEstimates      = "ExportEstimates"
	MethodExportRecommendation = "ExportRecommendation"
)

// EstimateServiceServer is the server API for estimates.v1.EstimateService.
type EstimateServiceServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Import(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Search(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Statistics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEstimate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAdapters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportEstimates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRecommendation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unaryHandler(name string, call func(EstimateServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EstimateServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EstimateServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes estimates.v1.EstimateService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EstimateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodExtract, EstimateServiceServer.Extract),
		unaryHandler(MethodImport, EstimateServiceServer.Import),
		unaryHandler(MethodRecommend, EstimateServiceServer.Recommend),
		unaryHandler(MethodSearch, EstimateServiceServer.Search),
		unaryHandler(MethodStatistics, EstimateServiceServer.Statistics),
		unaryHandler(MethodGetEstimate, EstimateServiceServer.GetEstimate),
		unaryHandler(MethodListAdapters, EstimateServiceServer.ListAdapters),
		unaryHandler(MethodExportEstimates, EstimateServiceServer.ExportEstimates),
		unaryHandler(MethodExportRecommendation, EstimateServiceServer.ExportRecommendation),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "estimates/v1/estimates.proto",
}

func RegisterEstimateServiceServer(s grpc.ServiceRegistrar, srv EstimateServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls estimates.v1.EstimateService over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes method with req and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
