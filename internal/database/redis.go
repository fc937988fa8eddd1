package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propcare/backend/internal/config"
)

func ConnectRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func CloseRedis(client *redis.Client) error {
	return client.Close()
}

// CacheStore is a small JSON cache over Redis, used for the
// default-workflow lookup and for coordination leases.
type CacheStore struct {
	client *redis.Client
}

func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

func (s *CacheStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, expiration).Err()
}

// Get unmarshals the cached value into dest. The boolean reports whether
// the key was present.
func (s *CacheStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// AcquireLease takes a short-lived exclusive lease via SET NX. It returns
// false when another holder already owns the key; the lease expires on its
// own, there is no explicit release.
func (s *CacheStore) AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}
