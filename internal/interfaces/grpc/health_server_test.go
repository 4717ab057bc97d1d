package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpcserver "github.com/turtacn/touristsafety/internal/interfaces/grpc"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
)

func startServer(t *testing.T, available *atomic.Bool) (*grpcserver.Server, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpcserver.NewServer(available.Load, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		srv.Stop()
	})
	return srv, healthpb.NewHealthClient(conn)
}

func TestHealthServer(t *testing.T) {
	var available atomic.Bool
	srv, client := startServer(t, &available)
	ctx := context.Background()

	for _, service := range []string{"", constants.GRPCHealthService} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status, "service %q", service)
	}

	available.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, srv.Refresh())

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: constants.GRPCHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown.Service"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{apperrors.ErrNotFound("trip", "x"), codes.NotFound},
		{apperrors.ErrInvalidRequest("bad"), codes.InvalidArgument},
		{apperrors.ErrUnauthorized("no"), codes.Unauthenticated},
		{apperrors.ErrRateLimited(), codes.ResourceExhausted},
		{apperrors.ErrProviderUnavailable("crime", nil), codes.Unavailable},
		{status.Error(codes.Canceled, "gone"), codes.Canceled},
		{errors.New("plain"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(grpcserver.ToStatus(tt.err)), "%v", tt.err)
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	ic := grpcserver.NewInterceptorChain(nil)
	_, err := ic.UnaryRecoveryInterceptor()(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: "/touristsafety.Scoring/Test"},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}
