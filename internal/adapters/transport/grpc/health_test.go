package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func status(t *testing.T, srv *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestHealthProbe_RealDependencies(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = cli.Close() })

	srv := health.NewServer()
	probe := NewHealthProbe(srv, "user-service", zap.NewNop(), DBCheck(db), RedisCheck(cli))

	require.True(t, probe.Probe(context.Background()))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, srv, ""))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, srv, "user-service"))

	mr.Close()
	require.False(t, probe.Probe(context.Background()))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, srv, ""))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, srv, "user-service"))
}

func TestHealthProbe_RunStopsWithContext(t *testing.T) {
	srv := health.NewServer()
	probe := NewHealthProbe(srv, "user-service", zap.NewNop(), Check{
		Name: "flaky",
		Ping: func(context.Context) error { return errors.New("down") },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		probe.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "user-service"})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
