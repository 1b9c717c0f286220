package blobcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/postdeck/internal/util/compression"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "postdeck:blob:"

// Redis stores blobs as plain string values under a key prefix. A non-zero
// TTL lets abandoned drafts expire on their own.
type Redis struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	compressor compression.Compressor
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration, compressor compression.Compressor) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, compressor: compressor}
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	compressed, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading blob %s: %w", key, err)
	}

	data, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("error decompressing blob %s: %w", key, err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	compressed, err := r.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing blob %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), compressed, r.ttl).Err(); err != nil {
		return fmt.Errorf("error saving blob %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("error deleting blob %s: %w", key, err)
	}
	return nil
}
