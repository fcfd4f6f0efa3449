package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores vectors by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// CachedEncoder serves repeated texts from a Cache and sends only misses to
// the wrapped encoder. Cache failures are logged and bypassed.
type CachedEncoder struct {
	inner Encoder
	cache Cache
	ttl   time.Duration
}

// NewCachedEncoder wraps inner with cache.
func NewCachedEncoder(inner Encoder, cache Cache, ttl time.Duration) *CachedEncoder {
	return &CachedEncoder{inner: inner, cache: cache, ttl: ttl}
}

// Model implements Encoder.
func (c *CachedEncoder) Model() string { return c.inner.Model() }

// Encode implements Encoder.
func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		keys[i] = CacheKey(c.inner.Model(), t)
		vec, ok, err := c.cache.Get(ctx, keys[i])
		if err != nil {
			zap.L().Debug("embed: cache get failed", zap.Error(err))
		}
		if ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, eris.Errorf("embed: encoder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := c.cache.Set(ctx, keys[i], vecs[j], c.ttl); err != nil {
			zap.L().Debug("embed: cache set failed", zap.Error(err))
		}
	}
	return out, nil
}

// CacheKey derives a stable key from model and text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

// RedisCache stores vectors in Redis as little-endian float32 blobs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db).
func NewRedisCache(url, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "embed: parse redis url")
	}
	return NewRedisCacheFromClient(redis.NewClient(opts), prefix), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "brasilintel:embed:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "embed: redis get")
	}
	vec, err := decodeVector(b)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	return eris.Wrap(r.client.Set(ctx, r.prefix+key, encodeVector(vec), ttl).Err(), "embed: redis set")
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func encodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, eris.Errorf("embed: cached vector has %d bytes", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}
