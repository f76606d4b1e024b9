package rpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gowvp/autoinput/internal/core/detect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	scorerService = "autoinput.v1.Scorer"
	scoreMethod   = "/" + scorerService + "/Score"
)

var _ detect.Scorer = (*ScorerClient)(nil)

// ScorerClient 通过 gRPC 调用远程模型打分
type ScorerClient struct {
	conn *grpc.ClientConn
}

// NewScorerClient 创建客户端并在后台做一次健康检查
func NewScorerClient(addr string, opts ...grpc.DialOption) (*ScorerClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("scorer client: %w", err)
	}
	c := &ScorerClient{conn: conn}

	go func() {
		if err := c.Check(context.Background()); err != nil {
			slog.Error("HealthCheck", "addr", addr, "err", err)
			return
		}
		slog.Info("HealthCheck OK", "addr", addr)
	}()
	return c, nil
}

// Check 查询 Scorer 服务健康状态
func (c *ScorerClient) Check(ctx context.Context) error {
	resp, err := grpc_health_v1.NewHealthClient(c.conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: scorerService})
	if err != nil {
		return err
	}
	if s := resp.GetStatus(); s != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("scorer not serving: %s", s)
	}
	return nil
}

// Score implements [detect.Scorer].
func (c *ScorerClient) Score(ctx context.Context, input []float32) ([]float32, error) {
	in := &structpb.ListValue{Values: make([]*structpb.Value, len(input))}
	for i, v := range input {
		in.Values[i] = structpb.NewNumberValue(float64(v))
	}
	var out structpb.ListValue
	if err := c.conn.Invoke(ctx, scoreMethod, in, &out); err != nil {
		return nil, err
	}
	res := make([]float32, len(out.GetValues()))
	for i, v := range out.GetValues() {
		res[i] = float32(v.GetNumberValue())
	}
	return res, nil
}

func (c *ScorerClient) Close() error {
	return c.conn.Close()
}
