package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/engine"
	"github.com/luxfi/mpcint/internal/queue"
)

// Pool runs jobs from a queue on a fixed number of goroutines. Each job is
// evaluated in its own engine session, released once the job is recorded.
type Pool struct {
	numWorkers int
	queue      queue.Queue
	engine     *engine.Engine
	opts       []mpcint.Option

	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
}

// NewPool creates a pool of n workers popping from q and evaluating on e.
// opts apply to the native widths.
func NewPool(n int, q queue.Queue, e *engine.Engine, opts ...mpcint.Option) *Pool {
	return &Pool{
		numWorkers: n,
		queue:      q,
		engine:     e,
		opts:       opts,
	}
}

// Start starts the worker pool.
func (p *Pool) Start(ctx context.Context) error {
	if p.running.Load() {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	log.Info("Starting workers", "count", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return nil
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	log.Info("Stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Worker pool stopped")
	case <-time.After(30 * time.Second):
		log.Warn("Shutdown timeout exceeded")
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

// Succeeded returns the number of completed jobs.
func (p *Pool) Succeeded() int64 {
	return p.successCount.Load()
}

// Failed returns the number of failed jobs.
func (p *Pool) Failed() int64 {
	return p.failureCount.Load()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log.Debug("Worker started", "id", id)
	for {
		select {
		case <-ctx.Done():
			log.Debug("Worker stopping", "id", id)
			return
		default:
		}

		job, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
				return
			}
			log.Warn("Failed to pop job", "worker", id, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		p.Process(ctx, job)
	}
}

// Process evaluates one job and records its outcome in the queue.
func (p *Pool) Process(ctx context.Context, job *queue.Job) {
	log.Debug("Processing job", "id", job.ID, "type", job.Type, "op", job.Op)

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("Failed to update job status", "id", job.ID, "err", err)
	}

	session := p.engine.Session()
	result, err := NewDispatcher(session, p.opts...).Dispatch(job)
	if rerr := session.Release(context.Background()); rerr != nil {
		log.Warn("Failed to release job words", "id", job.ID, "err", rerr)
	}
	if err != nil {
		p.fail(ctx, job, err)
		return
	}

	job.Status = queue.StatusCompleted
	job.Result = result
	job.Error = ""
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn("Failed to update job result", "id", job.ID, "err", err)
	}
	p.successCount.Add(1)
	log.Info("Job completed", "id", job.ID, "type", job.Type, "op", job.Op)
}

func (p *Pool) fail(ctx context.Context, job *queue.Job, err error) {
	job.Status = queue.StatusFailed
	job.Error = err.Error()
	if uerr := p.queue.Update(ctx, job); uerr != nil {
		log.Warn("Failed to update job status", "id", job.ID, "err", uerr)
	}
	p.failureCount.Add(1)
	log.Info("Job failed", "id", job.ID, "type", job.Type, "op", job.Op, "err", err)
}

// Handler serves /health and a plain-text /metrics page for the pool.
func (p *Pool) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !p.running.Load() {
			http.Error(w, "stopped", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "# HELP mpcint_jobs_total Total signed integer jobs\n")
		fmt.Fprintf(w, "# TYPE mpcint_jobs_total counter\n")
		fmt.Fprintf(w, "mpcint_jobs_total{status=\"success\"} %d\n", p.successCount.Load())
		fmt.Fprintf(w, "mpcint_jobs_total{status=\"failure\"} %d\n", p.failureCount.Load())
	})
	return mux
}
