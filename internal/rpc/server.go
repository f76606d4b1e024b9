package rpc

import (
	"context"

	"github.com/gowvp/autoinput/internal/core/detect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ScorerServer 远程打分服务
type ScorerServer interface {
	Score(context.Context, *structpb.ListValue) (*structpb.ListValue, error)
}

var scorerServiceDesc = grpc.ServiceDesc{
	ServiceName: scorerService,
	HandlerType: (*ScorerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scorer.proto",
}

func scoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScorerServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scoreMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScorerServer).Score(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterScorer 以 gRPC 暴露本地模型，并注册健康检查
func RegisterScorer(s *grpc.Server, scorer detect.Scorer) {
	s.RegisterService(&scorerServiceDesc, scorerAdapter{scorer: scorer})
	hs := health.NewServer()
	hs.SetServingStatus(scorerService, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, hs)
}

type scorerAdapter struct {
	scorer detect.Scorer
}

func (a scorerAdapter) Score(ctx context.Context, in *structpb.ListValue) (*structpb.ListValue, error) {
	input := make([]float32, len(in.GetValues()))
	for i, v := range in.GetValues() {
		input[i] = float32(v.GetNumberValue())
	}
	out, err := a.scorer.Score(ctx, input)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	res := &structpb.ListValue{Values: make([]*structpb.Value, len(out))}
	for i, v := range out {
		res.Values[i] = structpb.NewNumberValue(float64(v))
	}
	return res, nil
}
