package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCheckRateLimit(t *testing.T) {
	t.Run("bypassed in local environments", func(t *testing.T) {
		for _, env := range []string{"test", "development", "stress"} {
			t.Setenv("APP_ENV", env)
			allowed, err := CheckRateLimit(context.Background(), nil, "r", "1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed, env)
		}
	})

	t.Run("nil redis errors in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		allowed, err := CheckRateLimit(context.Background(), nil, "r", "1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("counts hits within the window", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		rdb := newTestRedis(t)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		ttl := rdb.TTL(ctx, "rl:login:ip:1").Val()
		assert.Greater(t, ttl, time.Duration(0))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	tests := []struct {
		name   string
		env    string
		build  func(t *testing.T) fiber.Handler
		hits   int
		status int
	}{
		{
			name:   "bypass in test mode",
			env:    "test",
			build:  func(*testing.T) fiber.Handler { return RateLimit(nil, 1, time.Minute) },
			hits:   3,
			status: http.StatusOK,
		},
		{
			name:   "fail open with nil redis",
			env:    "production",
			build:  func(*testing.T) fiber.Handler { return RateLimit(nil, 1, time.Minute) },
			hits:   1,
			status: http.StatusOK,
		},
		{
			name:   "fail closed with nil redis",
			env:    "production",
			build:  func(*testing.T) fiber.Handler { return RateLimitWithPolicy(nil, 1, time.Minute, FailClosed) },
			hits:   1,
			status: http.StatusServiceUnavailable,
		},
		{
			name: "over limit",
			env:  "production",
			build: func(t *testing.T) fiber.Handler {
				return RateLimit(newTestRedis(t), 1, time.Minute, "limited")
			},
			hits:   2,
			status: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			app := fiber.New()
			app.Get("/test", tt.build(t), handler)

			var last int
			for i := 0; i < tt.hits; i++ {
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
				require.NoError(t, err)
				last = resp.StatusCode
				_ = resp.Body.Close()
			}
			assert.Equal(t, tt.status, last)
		})
	}
}
