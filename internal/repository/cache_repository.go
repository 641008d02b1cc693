package repository

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss covers both an absent key and an unreachable cache: callers
// fall back to the database either way.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository is the resolution cache in front of the link store. It
// holds only the target URL under "url:<code>", never the active/expiry
// flags, so a hit is trusted as "valid as of caching" until the TTL runs out.
type CacheRepository interface {
	GetURL(ctx context.Context, code string) (string, error)
	SetURL(ctx context.Context, code string, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) GetURL(ctx context.Context, code string) (string, error) {
	url, err := r.redis.Client.Get(ctx, r.key(code)).Result()
	if err != nil {
		// redis.Nil and transport errors both degrade to a store read.
		return "", ErrCacheMiss
	}
	return url, nil
}

func (r *cacheRepository) SetURL(ctx context.Context, code string, originalURL string, ttl time.Duration) error {
	return r.redis.Client.Set(ctx, r.key(code), originalURL, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	return r.redis.Client.Del(ctx, r.key(code)).Err()
}

func (r *cacheRepository) key(code string) string {
	return "url:" + code
}
