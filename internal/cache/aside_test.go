package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_FillsThenServesFromCache(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			*dest = profile{ID: 7, Name: "ada"}
			return nil
		}
	}

	var first profile
	require.NoError(t, Aside(ctx, UserKey(7), &first, time.Minute, fetch(&first)))
	var second profile
	require.NoError(t, Aside(ctx, UserKey(7), &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	InvalidateUser(ctx, 7)
	var third profile
	require.NoError(t, Aside(ctx, UserKey(7), &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_PropagatesFetchErrorAndSkipsStore(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("boom")

	var p profile
	err := Aside(context.Background(), PostKey(1), &p, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(PostKey(1)))
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)
	calls := 0
	var p profile
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &p, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}
