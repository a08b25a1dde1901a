package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/milestone-tracker/internal/providers"
)

var _ providers.Cache = (*CacheService)(nil)

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

func TestCacheService_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	cache := NewCacheService(client)
	ctx := context.Background()

	var dest int
	err := cache.Get(ctx, "k", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss, "connection failures are not misses")

	assert.Error(t, cache.Set(ctx, "k", 1, time.Minute))
	assert.Error(t, cache.Ping(ctx))
	assert.NoError(t, cache.Delete(ctx))
}
