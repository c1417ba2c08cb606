package middleware

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func ctxIP(ip string) context.Context {
	return peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP(ip), Port: 80},
	})
}

func ok(context.Context, any) (any, error) { return nil, nil }

func call(i grpc.UnaryServerInterceptor, ctx context.Context) error {
	_, err := i(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, ok)
	return err
}

func TestChainUnaryServer_PanicRecovered(t *testing.T) {
	chain := ChainUnaryServer(zap.NewNop(), 10, 10)

	_, err := chain(ctxIP("8.8.8.8"), nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})
	require.Error(t, err)
	require.Equal(t, codes.Internal, status.Code(err))
}

func TestChainUnaryServer_RateLimitInsideChain(t *testing.T) {
	chain := ChainUnaryServer(zap.NewNop(), 1, 1)
	ctx := ctxIP("9.9.9.9")

	require.NoError(t, call(chain, ctx))
	require.Equal(t, codes.ResourceExhausted, status.Code(call(chain, ctx)))

	time.Sleep(1 * time.Second)
	require.NoError(t, call(chain, ctx))
}

func TestChainUnaryServer_RateLimitDisabled(t *testing.T) {
	chain := ChainUnaryServer(zap.NewNop(), 0, 0)
	ctx := ctxIP("9.9.9.10")

	for i := 0; i < 5; i++ {
		require.NoError(t, call(chain, ctx))
	}
}

func TestRateLimitPerIP_BurstAllows(t *testing.T) {
	intc := NewRateLimitPerIP(1, 2, 100, time.Hour)
	ctx := ctxIP("192.0.2.1")

	require.NoError(t, call(intc, ctx))
	require.NoError(t, call(intc, ctx))
	require.Error(t, call(intc, ctx), "third burst call must be limited")
}

func TestRateLimitPerIP_SeparateCounters(t *testing.T) {
	intc := NewRateLimitPerIP(1, 1, 1000, time.Hour)

	require.NoError(t, call(intc, ctxIP("203.0.113.10")))
	require.Error(t, call(intc, ctxIP("203.0.113.10")))
	require.NoError(t, call(intc, ctxIP("203.0.113.11")))
}

func TestRateLimitPerIP_NoPeer(t *testing.T) {
	intc := NewRateLimitPerIP(10, 10, 10, time.Hour)
	require.Equal(t, codes.ResourceExhausted, status.Code(call(intc, context.Background())))
}
