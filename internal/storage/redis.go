package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds the lifetime of a stored word. Zero keeps words forever.
	TTL time.Duration
}

// RedisStorage implements Storage on a Redis keyspace.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage connects to Redis and stores words under
// "mpcint:word:<namespace>:".
func NewRedisStorage(cfg RedisConfig, namespace string) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "mpcint:word:" + namespace + ":",
		ttl:    cfg.TTL,
	}, nil
}

func (s *RedisStorage) key(handle Handle) string {
	return s.prefix + handle.String()
}

func (s *RedisStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	if err := s.client.SetNX(ctx, s.key(handle), data, s.ttl).Err(); err != nil {
		return Handle{}, fmt.Errorf("store word: %w", err)
	}
	return handle, nil
}

func (s *RedisStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load word: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Delete(ctx context.Context, handle Handle) error {
	n, err := s.client.Del(ctx, s.key(handle)).Result()
	if err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(handle)).Result()
	if err != nil {
		return false, fmt.Errorf("exists word: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStorage) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 512).Result()
		if err != nil {
			return 0, fmt.Errorf("scan words: %w", err)
		}
		n += len(keys)
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
