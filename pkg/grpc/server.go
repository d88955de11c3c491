// Package grpc serves the standard grpc.health.v1 service so orchestrators
// can probe the process without going through HTTP. Serving status follows
// a Probe, normally a database ping.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "orderdesk"

// Probe reports whether a dependency is healthy.
type Probe func(ctx context.Context) error

var handled = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orderdesk",
	Subsystem: "grpc",
	Name:      "handled_total",
	Help:      "gRPC calls completed, by method and code.",
}, []string{"method", "code"})

// Collectors returns the package collectors for registration.
func Collectors() []prometheus.Collector { return []prometheus.Collector{handled} }

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return next(ctx, req)
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	code := status.Code(err)
	handled.WithLabelValues(info.FullMethod, code.String()).Inc()
	logger.Debug("grpc: request", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds(), "code", code.String())
	return resp, err
}

type Server struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
	probe  Probe
	every  time.Duration
}

// New listens on addr. probe is polled every interval to update the
// serving status.
func New(addr string, probe Probe, interval time.Duration) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor))
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{srv: srv, health: hs, lis: lis, probe: probe, every: interval}, nil
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Serve blocks until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.check(ctx)
	go s.watch(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.lis) }()
	logger.Info("grpc: health server listening", "addr", s.lis.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		s.srv.GracefulStop()
		return nil
	}
}

func (s *Server) watch(ctx context.Context) {
	if s.every <= 0 {
		return
	}
	t := time.NewTicker(s.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.probe(pctx)
		cancel()
		if err != nil {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			logger.Warn("grpc: probe failed", "error", err)
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
