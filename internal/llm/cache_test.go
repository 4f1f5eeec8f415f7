package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingProvider_ReplaysIdenticalRequests(t *testing.T) {
	mock := NewMockProvider(MockText("1. First draft"), MockText("1. Second draft"))
	cache := NewMemoryCache(8)
	p := WithCache(mock, cache, nil)
	ctx := context.Background()

	req := Request{Mode: ModeCompletion, Prompt: "draft", MaxTokens: 100}

	first, err := p.Generate(ctx, req)
	require.NoError(t, err)
	second, err := p.Generate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Text(), second.Text())
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, mock.CallCount(), "second call should be served from cache")
	assert.Equal(t, 1, cache.Len())

	req.Temperature = 0.7
	third, err := p.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "1. Second draft", third.Text())
	assert.Equal(t, 2, mock.CallCount())
}

func TestCachingProvider_DoesNotCacheErrors(t *testing.T) {
	mock := NewMockProvider(MockError(&ErrProviderUnavailable{}), MockText("ok"))
	cache := NewMemoryCache(8)
	p := WithCache(mock, cache, nil)

	_, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Zero(t, cache.Len())

	resp, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, []byte) error {
	return errors.New("connection refused")
}

func TestCachingProvider_CacheFailureFallsThrough(t *testing.T) {
	p := WithCache(NewMockProvider(MockText("ok")), failingCache{}, nil)

	resp, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
}

func TestCacheKey(t *testing.T) {
	base := Request{System: "s", Messages: []Message{{Role: RoleUser, Content: "m"}}, MaxTokens: 10}

	assert.Equal(t, cacheKey("m1", base), cacheKey("m1", base))
	assert.NotEqual(t, cacheKey("m1", base), cacheKey("m2", base))

	stopped := base
	stopped.Stop = []string{"###"}
	assert.NotEqual(t, cacheKey("m1", base), cacheKey("m1", stopped))

	completion := base
	completion.Mode = ModeCompletion
	assert.NotEqual(t, cacheKey("m1", base), cacheKey("m1", completion))
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	require.NoError(t, c.Set(ctx, "c", []byte("3")))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	v, ok, _ := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, "3", string(v))
	assert.Equal(t, 2, c.Len())
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(CacheConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCache(CacheConfig{URL: "memory", MaxEntries: 4})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = NewCache(CacheConfig{URL: "redis://localhost:6379/2", TTL: time.Hour})
	require.NoError(t, err)
	rc, ok := c.(*RedisCache)
	require.True(t, ok)
	assert.Equal(t, time.Hour, rc.ttl)
	require.NoError(t, rc.Close())

	_, err = NewCache(CacheConfig{URL: "memcached://localhost"})
	assert.Error(t, err)
}
