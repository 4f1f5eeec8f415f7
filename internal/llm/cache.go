package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores serialized backend replies by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachingProvider is a decorator that replays earlier replies for
// identical requests. Failed requests are never cached.
type CachingProvider struct {
	inner  Provider
	cache  Cache
	logger *zap.Logger
}

// WithCache wraps a Provider with a response cache.
func WithCache(p Provider, c Cache, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingProvider{inner: p, cache: c, logger: logger}
}

type cachedResponse struct {
	Content    json.RawMessage `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
}

func (c *CachingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	key := cacheKey(c.inner.ModelID(), req)

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("llm cache read failed", zap.Error(err))
	}
	if ok {
		var cr cachedResponse
		if err := json.Unmarshal(data, &cr); err == nil {
			c.logger.Debug("llm cache hit", zap.String("key", key[:12]), zap.String("purpose", PurposeFrom(ctx)))
			return &Response{Content: cr.Content, Model: cr.Model, StopReason: cr.StopReason, Cached: true}, nil
		}
	}

	resp, err := c.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(cachedResponse{Content: resp.Content, Model: resp.Model, StopReason: resp.StopReason})
	if err == nil {
		err = c.cache.Set(context.WithoutCancel(ctx), key, data)
	}
	if err != nil {
		c.logger.Warn("llm cache write failed", zap.Error(err))
	}
	return resp, nil
}

func (c *CachingProvider) ModelID() string {
	return c.inner.ModelID()
}

// cacheKey hashes everything that can change the reply.
func cacheKey(model string, req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%g\x00%q\x00", model, req.Mode, req.MaxTokens, req.Temperature, req.Stop)
	if req.Mode == ModeCompletion {
		h.Write([]byte(req.PromptText()))
	} else {
		system, msgs := req.chatParts()
		h.Write([]byte(system))
		for _, m := range msgs {
			fmt.Fprintf(h, "\x00%s\x00%s", m.Role, m.Content)
		}
	}
	if req.Schema != nil {
		def, _ := json.Marshal(req.Schema.Definition)
		h.Write(def)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-process Cache bounded by entry count. The oldest
// entry is evicted first.
type MemoryCache struct {
	mu      sync.Mutex
	max     int
	entries map[string][]byte
	order   []string
}

// NewMemoryCache creates a MemoryCache holding at most max entries.
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 256
	}
	return &MemoryCache{max: max, entries: make(map[string][]byte)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = value
	for len(m.order) > m.max {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache is a Cache backed by Redis. Keys are namespaced and expire
// after TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to the Redis server named by a redis:// URL.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl, prefix: "examforge:llm:"}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// NewCache builds the Cache named by cfg.URL: "memory", a redis:// or
// rediss:// URL, or "" for none.
func NewCache(cfg CacheConfig) (Cache, error) {
	switch {
	case cfg.URL == "":
		return nil, nil
	case cfg.URL == "memory":
		return NewMemoryCache(cfg.MaxEntries), nil
	case strings.HasPrefix(cfg.URL, "redis://"), strings.HasPrefix(cfg.URL, "rediss://"):
		return NewRedisCache(cfg.URL, cfg.TTL)
	default:
		return nil, fmt.Errorf("unsupported cache URL %q", cfg.URL)
	}
}
