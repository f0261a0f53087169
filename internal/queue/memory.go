package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue implements Queue in process. Jobs are popped in push order.
type MemoryQueue struct {
	mu      sync.Mutex
	jobs    map[string]Job
	pending chan string
	closed  chan struct{}
	once    sync.Once
}

// NewMemoryQueue creates a queue holding at most depth pending jobs.
func NewMemoryQueue(depth int) *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(map[string]Job),
		pending: make(chan string, depth),
		closed:  make(chan struct{}),
	}
}

func (q *MemoryQueue) Push(ctx context.Context, job *Job) error {
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	q.mu.Lock()
	q.jobs[job.ID] = *job
	q.mu.Unlock()

	var err error
	select {
	case q.pending <- job.ID:
		return nil
	case <-q.closed:
		err = ErrClosed
	case <-ctx.Done():
		err = ctx.Err()
	}
	q.mu.Lock()
	delete(q.jobs, job.ID)
	q.mu.Unlock()
	return err
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	select {
	case id := <-q.pending:
		return q.Get(ctx, id)
	case <-q.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Update(ctx context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	job.UpdatedAt = time.Now()
	q.jobs[job.ID] = *job
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	job.LHS = append([]string(nil), job.LHS...)
	job.RHS = append([]string(nil), job.RHS...)
	job.Result = append([]string(nil), job.Result...)
	return &job, nil
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}
