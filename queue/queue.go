// Package queue runs background jobs with bounded capacity and retries.
//
// Delivery is at-least-once: a handler may observe the same job again after
// a transient failure, so handlers must tolerate repeats.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/types"
)

// Status is the observable state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is a unit of background work.
type Job struct {
	ID         string
	Kind       string
	Payload    json.RawMessage
	Attempt    int
	EnqueuedAt time.Time
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode %s job %s: %w", j.Kind, j.ID, err))
	}
	return nil
}

// Handler processes one attempt of a job.
type Handler func(ctx context.Context, job Job) error

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Option adjusts the behaviour of the queue.
type Option func(*config)

type config struct {
	capacity        int
	historyCapacity int
	workers         int
	attempts        int
	baseDelay       time.Duration
	maxDelay        time.Duration
	jobTimeout      time.Duration
	log             logger.Logger
	metrics         metrics.Recorder
	now             func() time.Time
}

const (
	defaultCapacity        = 256
	defaultHistoryCapacity = 1024
	defaultWorkers         = 2
	defaultAttempts        = 3
	defaultBaseDelay       = time.Second
	defaultMaxDelay        = time.Minute
	defaultJobTimeout      = 5 * time.Minute
)

// WithCapacity sets the maximum number of pending jobs.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithAttempts sets how many times a job runs before it is marked failed.
func WithAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the delay cap. Delays double.
func WithBackoff(base, max time.Duration) Option {
	return func(c *config) {
		if base > 0 {
			c.baseDelay = base
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// WithJobTimeout bounds a single attempt.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.jobTimeout = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		c.log = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *config) {
		c.metrics = metrics.OrNoop(r)
	}
}

// Queue is an in-process job queue.
type Queue struct {
	cfg  config
	jobs chan Job

	mu       sync.Mutex
	handlers map[string]Handler
	status   map[string]Status
	order    []string

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

func New(opts ...Option) *Queue {
	cfg := config{
		capacity:        defaultCapacity,
		historyCapacity: defaultHistoryCapacity,
		workers:         defaultWorkers,
		attempts:        defaultAttempts,
		baseDelay:       defaultBaseDelay,
		maxDelay:        defaultMaxDelay,
		jobTimeout:      defaultJobTimeout,
		log:             logger.NoopLogger{},
		metrics:         metrics.NoopRecorder{},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Queue{
		cfg:      cfg,
		jobs:     make(chan Job, cfg.capacity),
		handlers: make(map[string]Handler),
		status:   make(map[string]Status),
	}
}

// Register binds kind to h. Registering a kind twice replaces the handler.
func (q *Queue) Register(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

// Enqueue schedules a job of kind with payload marshalled as JSON.
func (q *Queue) Enqueue(kind string, payload any) (string, error) {
	q.mu.Lock()
	_, ok := q.handlers[kind]
	q.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no handler registered for job kind %q", kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	job := Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: q.cfg.now(),
	}

	q.setStatus(job.ID, StatusQueued)
	select {
	case q.jobs <- job:
	default:
		q.forget(job.ID)
		q.cfg.metrics.IncCounter("queue_"+kind, map[string]string{"status": "dropped"})
		return "", types.NewError(types.ErrUnavailable, "job queue is full", nil)
	}

	q.cfg.metrics.IncCounter("queue_"+kind, map[string]string{"status": "enqueued"})
	q.cfg.log.Debug("job enqueued", map[string]any{"job_id": job.ID, "kind": kind})
	return job.ID, nil
}

// Status returns the last known state of job id.
func (q *Queue) Status(id string) (Status, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.status[id]
	return s, ok
}

// Pending returns the number of jobs waiting for a worker.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Start launches the workers. It is a no-op when already started.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Stop cancels in-flight work and waits for the workers to exit.
// Jobs still pending are abandoned.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, job Job) {
	q.mu.Lock()
	h := q.handlers[job.Kind]
	q.mu.Unlock()

	start := q.cfg.now()
	q.setStatus(job.ID, StatusRunning)

	op := func() error {
		job.Attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.jobTimeout)
		defer cancel()
		return h(attemptCtx, job)
	}
	notify := func(err error, next time.Duration) {
		q.cfg.log.Warn("job attempt failed, retrying", map[string]any{
			"job_id":   job.ID,
			"kind":     job.Kind,
			"attempt":  job.Attempt,
			"retry_in": next.String(),
			"error":    err,
		})
	}

	err := backoff.RetryNotify(op, q.policy(ctx), notify)
	status := metrics.StatusOf(err)
	q.cfg.metrics.ObserveLatency("job_"+job.Kind, q.cfg.now().Sub(start), map[string]string{"status": status})
	q.cfg.metrics.IncCounter("job_"+job.Kind, map[string]string{"status": status})

	if err != nil {
		q.setStatus(job.ID, StatusFailed)
		fields := map[string]any{"job_id": job.ID, "kind": job.Kind, "attempts": job.Attempt, "error": err}
		if errors.Is(err, context.Canceled) {
			q.cfg.log.Warn("job abandoned on shutdown", fields)
			return
		}
		q.cfg.log.Error("job failed", fields)
		return
	}
	q.setStatus(job.ID, StatusCompleted)
	q.cfg.log.Info("job completed", map[string]any{"job_id": job.ID, "kind": job.Kind, "attempts": job.Attempt})
}

func (q *Queue) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = q.cfg.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = q.cfg.maxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(q.cfg.attempts-1)), ctx)
}

func (q *Queue) setStatus(id string, s Status) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.status[id]; !ok {
		q.order = append(q.order, id)
		if len(q.order) > q.cfg.historyCapacity {
			delete(q.status, q.order[0])
			q.order = q.order[1:]
		}
	}
	q.status[id] = s
}

func (q *Queue) forget(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.status, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}
