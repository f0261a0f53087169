package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultJobTTL bounds how long a job record is kept in Redis.
const DefaultJobTTL = 24 * time.Hour

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds the lifetime of a job record. Zero uses DefaultJobTTL.
	TTL time.Duration
}

// RedisQueue implements Queue on a Redis list of job IDs. Job records are
// JSON values under their own keys.
type RedisQueue struct {
	client  *redis.Client
	pending string
	prefix  string
	ttl     time.Duration
}

// NewRedisQueue connects to Redis and queues jobs under
// "mpcint:queue:<name>".
func NewRedisQueue(cfg RedisConfig, name string) (*RedisQueue, error) {
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

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultJobTTL
	}
	return &RedisQueue{
		client:  client,
		pending: "mpcint:queue:" + name,
		prefix:  "mpcint:job:",
		ttl:     ttl,
	}, nil
}

func (q *RedisQueue) jobKey(id string) string {
	return q.prefix + id
}

// redisErr maps client errors onto the queue's sentinels.
func redisErr(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, redis.ErrClosed):
		return ErrConnectionLost
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Push records the job and appends its ID in one transaction.
func (q *RedisQueue) Push(ctx context.Context, job *Job) error {
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.jobKey(job.ID), data, q.ttl)
		pipe.LPush(ctx, q.pending, job.ID)
		return nil
	})
	if err != nil {
		return redisErr("push job", err)
	}
	return nil
}

// Pop blocks for the oldest pending job. IDs whose record has expired are
// dropped.
func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	for {
		result, err := q.client.BRPop(ctx, 0, q.pending).Result()
		if err != nil {
			return nil, redisErr("pop job", err)
		}
		if len(result) < 2 {
			return nil, ErrQueueEmpty
		}
		job, err := q.Get(ctx, result[1])
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		return job, err
	}
}

// Update overwrites an existing job record. Unknown jobs are not created.
func (q *RedisQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := q.client.SetXX(ctx, q.jobKey(job.ID), data, q.ttl).Result()
	if err != nil {
		return redisErr("update job", err)
	}
	if !ok {
		return ErrJobNotFound
	}
	return nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, redisErr("get job", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
