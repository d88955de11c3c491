package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func dial(t *testing.T, s *Server) grpc_health_v1.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient(s.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func TestHealthFollowsProbe(t *testing.T) {
	var healthy = true
	probe := func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	}

	s, err := New("127.0.0.1:0", probe, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)

	client := dial(t, s)
	require.Eventually(t, func() bool {
		res, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
		return err == nil && res.Status == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	healthy = false
	s.check(ctx)
	res, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, res.Status)
}
