// Package cache keeps recent classifications in Redis so dashboard
// restarts do not lose the tail of the stream. The server runs fine
// without it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/peter-kozarec/vigil/pkg/common"
)

const (
	classificationKeyPrefix = "classification:"
	latestKey               = "classifications:latest"

	defaultTTL = time.Hour
	latestSize = 999
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
	}, nil
}

// CacheClassification stores one classification and prepends it to the
// rolling latest list.
func (r *RedisCache) CacheClassification(ctx context.Context, c common.Classification) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}

	key := fmt.Sprintf("%s%d", classificationKeyPrefix, c.TimeStamp.UnixNano())

	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, data, defaultTTL)
	pipe.LPush(ctx, latestKey, data)
	pipe.LTrim(ctx, latestKey, 0, latestSize)

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache classification: %w", err)
	}
	return nil
}

// LatestClassifications returns up to count most recent classifications,
// newest first. Entries that no longer unmarshal are skipped.
func (r *RedisCache) LatestClassifications(ctx context.Context, count int64) ([]common.Classification, error) {
	data, err := r.client.LRange(ctx, latestKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest classifications: %w", err)
	}

	classifications := make([]common.Classification, 0, len(data))
	for _, d := range data {
		var c common.Classification
		if err := json.Unmarshal([]byte(d), &c); err != nil {
			continue
		}
		classifications = append(classifications, c)
	}
	return classifications, nil
}

func (r *RedisCache) IncrementCounter(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
