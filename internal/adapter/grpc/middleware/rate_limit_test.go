package middleware

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/CSYE6225NCLOUD/webapp/pkg/ratelimit"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns "success"
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

var checkInfo = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func peerContext(t *testing.T, addr string) context.Context {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcpAddr})
}

func TestRateLimit_WithinBurst(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.001, BurstCapacity: 5, Enabled: true}, zaptest.NewLogger(t))
	interceptor := RateLimit(limiter, zaptest.NewLogger(t))
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, checkInfo, mockHandler)
		require.NoError(t, err, "request %d", i)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimit_Exceeded(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.001, BurstCapacity: 2, Enabled: true}, zaptest.NewLogger(t))
	interceptor := RateLimit(limiter, zaptest.NewLogger(t))
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx, nil, checkInfo, mockHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, checkInfo, mockHandler)
	assert.Nil(t, resp)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRateLimit_Disabled(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: false}, zaptest.NewLogger(t))
	interceptor := RateLimit(limiter, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, err := interceptor(context.Background(), nil, checkInfo, mockHandler)
		require.NoError(t, err)
	}
}

func TestRateLimit_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter := ratelimit.New(client, ratelimit.Config{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := RateLimit(limiter, zaptest.NewLogger(t))
	mr.Close()

	resp, err := interceptor(peerContext(t, "127.0.0.1:12345"), nil, checkInfo, mockHandler)
	assert.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestClientIP(t *testing.T) {
	t.Run("forwarded header", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.7"))
		assert.Equal(t, "203.0.113.7", clientIP(ctx))
	})

	t.Run("real ip header", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "203.0.113.8"))
		assert.Equal(t, "203.0.113.8", clientIP(ctx))
	})

	t.Run("peer", func(t *testing.T) {
		assert.Equal(t, "127.0.0.1:12345", clientIP(peerContext(t, "127.0.0.1:12345")))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Equal(t, "unknown", clientIP(context.Background()))
	})
}
