package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/link-shortener/internal/model"
)

// DefaultRedisKey holds the JSON snapshot
const DefaultRedisKey = "shortlinks:snapshot"

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisRepository keeps the JSON snapshot under a single key
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository connects and pings redis
func NewRedisRepository(ctx context.Context, opts RedisOptions) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	return NewRedisRepositoryFromClient(client, opts.Key), nil
}

// NewRedisRepositoryFromClient wraps an existing client
func NewRedisRepositoryFromClient(client *redis.Client, key string) *RedisRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRepository{client: client, key: key}
}

// Load reads the snapshot; a missing key is an empty snapshot
func (r *RedisRepository) Load(ctx context.Context) (model.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.NewSnapshot(), nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return normalize(snap), nil
}

// Save overwrites the snapshot key
func (r *RedisRepository) Save(ctx context.Context, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Close closes the redis client
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
