// Package grpc exposes the standard gRPC health service for the scoring API.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// DefaultProbeInterval is how often the model availability is re-evaluated.
const DefaultProbeInterval = 15 * time.Second

// Server serves grpc.health.v1. Both the overall status and the scoring service
// report SERVING only while a model is resident or loadable.
type Server struct {
	grpc           *grpc.Server
	health         *health.Server
	modelAvailable func() bool
	interval       time.Duration
	log            logger.Logger
}

// NewServer creates the gRPC server. modelAvailable may be nil, in which case
// the server always reports SERVING.
func NewServer(modelAvailable func() bool, interval time.Duration, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if modelAvailable == nil {
		modelAvailable = func() bool { return true }
	}
	log = log.WithComponent("grpc")

	gs := grpc.NewServer(NewInterceptorChain(log).ChainUnaryInterceptors())
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{grpc: gs, health: hs, modelAvailable: modelAvailable, interval: interval, log: log}
	s.Refresh()
	return s
}

// Refresh re-evaluates model availability and updates both health entries.
func (s *Server) Refresh() healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.modelAvailable() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(constants.GRPCHealthService, st)
	return st
}

// Serve accepts connections on lis until Stop is called, refreshing the health
// status every interval while ctx is alive.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go s.probe(ctx)
	s.log.Info(ctx, "starting gRPC server", logger.Fields{"address": lis.Addr().String()})
	return s.grpc.Serve(lis)
}

func (s *Server) probe(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	last := s.Refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if st := s.Refresh(); st != last {
				s.log.Info(ctx, "gRPC health status changed", logger.Fields{"status": st.String()})
				last = st
			}
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
