package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

// RedisCache implements fishing.Cache on Redis so several instances share weather.
// Expiry is delegated to Redis TTLs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (fishing.WeatherSeries, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fishing.WeatherSeries{}, false, nil
	}
	if err != nil {
		return fishing.WeatherSeries{}, false, err
	}

	var series fishing.WeatherSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return fishing.WeatherSeries{}, false, fmt.Errorf("decoding cached weather %s: %w", key, err)
	}
	return series, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, series fishing.WeatherSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Prune is a no-op; Redis expires keys itself.
func (c *RedisCache) Prune(context.Context) int {
	return 0
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
