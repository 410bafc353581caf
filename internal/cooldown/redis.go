package cooldown

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore shares cooldown claims across engine instances using SET NX PX.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// Option configures a RedisStore.
type Option func(*RedisStore)

func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client *backend.Client, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, prefix: "waypoint:cooldown:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr string, db int, opts ...Option) (*RedisStore, error) {
	client := backend.NewClient(&backend.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis cooldown acquire: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
