package interceptor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"adboard-backend/internal/api/grpc/interceptor"
	"adboard-backend/internal/security"
)

func TestUnary(t *testing.T) {
	tm := security.NewTokenManager("grpc-secret", time.Hour)
	unary := interceptor.NewAuthInterceptor(tm).Unary()

	var seen context.Context
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = ctx
		return "ok", nil
	}

	t.Run("public method skips auth", func(t *testing.T) {
		info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
		resp, err := unary(context.Background(), nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	info := &grpc.UnaryServerInfo{FullMethod: "/adboard.v1.Ads/Get"}

	t.Run("missing token", func(t *testing.T) {
		_, err := unary(context.Background(), nil, info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer junk"))
		_, err := unary(ctx, nil, info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("valid token overrides spoofed account id", func(t *testing.T) {
		token, _, err := tm.GenerateAccessToken(77, nil)
		require.NoError(t, err)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			"authorization", "Bearer "+token,
			interceptor.AccountIDKey, "1",
		))

		_, err = unary(ctx, nil, info, handler)
		require.NoError(t, err)
		md, ok := metadata.FromIncomingContext(seen)
		require.True(t, ok)
		assert.Equal(t, []string{"77"}, md.Get(interceptor.AccountIDKey))
	})
}
