// Package queue provides job queues for signed integer computation requests.
package queue

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrQueueEmpty     = errors.New("queue is empty")
	ErrJobNotFound    = errors.New("job not found")
	ErrConnectionLost = errors.New("queue connection lost")
	ErrClosed         = errors.New("queue closed")
)

// JobStatus represents the state of a job.
type JobStatus uint8

const (
	StatusPending JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is a request to evaluate one signed operation. Operands and result are
// network ciphertexts in hex, one entry per 64-bit limb for widths above 64,
// most significant limb first.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Op        string    `json:"op"`
	LHS       []string  `json:"lhs"`
	RHS       []string  `json:"rhs,omitempty"`
	Shift     uint      `json:"shift,omitempty"`
	Result    []string  `json:"result,omitempty"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Queue defines the interface for job queue operations.
type Queue interface {
	// Push adds a job to the queue.
	Push(ctx context.Context, job *Job) error
	// Pop blocks until a job is available and removes it from the queue.
	Pop(ctx context.Context) (*Job, error)
	// Update updates job status.
	Update(ctx context.Context, job *Job) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*Job, error)
	// Close closes the queue connection.
	Close() error
}
