package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy configures retry behavior for failed tasks. Retries use a
// fixed delay; the bounded attempt count means a persistently failing task
// is dropped with a log line rather than looping forever.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions, first try included.
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns the standard policy: three attempts, five
// minutes apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Minute}
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so the queue fails the task immediately instead
// of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Queue runs background tasks with bounded concurrency and fixed-delay
// retries. Generative-model tasks are throttled separately from data tasks
// so a burst of enrichment work cannot starve sweeps or notifications.
//
// Pending work is deduplicated by task ID: enqueueing a task whose ID is
// already pending or running is a no-op. Tasks with naturally idempotent
// effects use deterministic IDs to collapse duplicate triggers.
type Queue struct {
	mu       sync.Mutex
	pending  []*taskState
	byID     map[string]*taskState
	running  map[string]*taskState
	shutdown bool

	generativeActive int
	dataActive       int
	maxGenerative    int
	maxData          int

	policy RetryPolicy

	wg     sync.WaitGroup
	timers sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy RetryPolicy) QueueOption {
	return func(q *Queue) { q.policy = policy }
}

// WithConcurrency sets the per-class concurrency limits.
func WithConcurrency(generative, data int) QueueOption {
	return func(q *Queue) {
		if generative > 0 {
			q.maxGenerative = generative
		}
		if data > 0 {
			q.maxData = data
		}
	}
}

// NewQueue creates a task queue. Enqueued tasks start running immediately;
// there is no separate Start call.
func NewQueue(logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		byID:          make(map[string]*taskState),
		running:       make(map[string]*taskState),
		maxGenerative: 2,
		maxData:       4,
		policy:        DefaultRetryPolicy(),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger.Named("tasks"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue schedules the task for immediate execution. Duplicate IDs are
// dropped while the earlier instance is still pending or running.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		q.logger.Warn("queue shut down, dropping task",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return
	}

	if _, exists := q.byID[task.ID()]; exists {
		q.logger.Debug("duplicate task dropped",
			zap.String("task_id", task.ID()))
		return
	}

	state := &taskState{task: task}
	q.byID[task.ID()] = state
	q.pending = append(q.pending, state)

	q.logger.Info("task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()))

	q.tryStartLocked()
}

// EnqueueAfter schedules the task to be enqueued after a delay. Used by the
// retry path and by tasks that want to defer follow-up work.
func (q *Queue) EnqueueAfter(task Task, delay time.Duration) {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return
	}
	q.timers.Add(1)
	q.mu.Unlock()

	timer := time.NewTimer(delay)
	go func() {
		defer q.timers.Done()
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			q.Enqueue(task)
		}
	}()
}

// tryStartLocked starts as many pending tasks as the concurrency limits
// allow. Must be called with the lock held.
func (q *Queue) tryStartLocked() {
	remaining := q.pending[:0]
	for _, state := range q.pending {
		generative := state.task.UsesGenerativeModel()
		if generative && q.generativeActive >= q.maxGenerative {
			remaining = append(remaining, state)
			continue
		}
		if !generative && q.dataActive >= q.maxData {
			remaining = append(remaining, state)
			continue
		}

		if generative {
			q.generativeActive++
		} else {
			q.dataActive++
		}
		q.running[state.task.ID()] = state

		q.wg.Add(1)
		go q.run(state)
	}
	q.pending = remaining
}

// run performs one execution attempt. Failed attempts that still have
// retries left go back through the timer path so the concurrency slot is
// free during the backoff instead of pinned by a sleeping goroutine.
func (q *Queue) run(state *taskState) {
	defer q.wg.Done()

	task := state.task
	state.attempts++

	err := task.Execute(q.ctx, q)
	if err == nil {
		q.finish(state, nil)
		return
	}
	if errors.Is(err, context.Canceled) {
		q.finish(state, err)
		return
	}
	if isPermanent(err) {
		q.logger.Warn("permanent failure, not retrying",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()),
			zap.Error(err))
		q.finish(state, err)
		return
	}
	if state.attempts >= q.policy.MaxAttempts {
		q.finish(state, err)
		return
	}

	q.logger.Warn("task attempt failed, will retry",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()),
		zap.Int("attempt", state.attempts),
		zap.Int("max_attempts", q.policy.MaxAttempts),
		zap.Duration("delay", q.policy.Delay),
		zap.Error(err))
	q.retryLater(state)
}

// retryLater releases the task's slot and re-queues it after the retry
// delay. The task keeps its byID entry throughout, so duplicate enqueues
// during the backoff are still dropped.
func (q *Queue) retryLater(state *taskState) {
	task := state.task

	q.mu.Lock()
	q.releaseSlotLocked(task)
	delete(q.running, task.ID())
	if q.shutdown {
		delete(q.byID, task.ID())
		q.mu.Unlock()
		return
	}
	q.timers.Add(1)
	q.tryStartLocked()
	q.mu.Unlock()

	timer := time.NewTimer(q.policy.Delay)
	go func() {
		defer q.timers.Done()
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.mu.Lock()
			delete(q.byID, task.ID())
			q.mu.Unlock()
		case <-timer.C:
			q.mu.Lock()
			if q.shutdown {
				delete(q.byID, task.ID())
				q.mu.Unlock()
				return
			}
			q.pending = append(q.pending, state)
			q.tryStartLocked()
			q.mu.Unlock()
		}
	}()
}

func (q *Queue) releaseSlotLocked(task Task) {
	if task.UsesGenerativeModel() {
		q.generativeActive--
	} else {
		q.dataActive--
	}
}

// finish releases the task's slot and starts whatever is now eligible.
func (q *Queue) finish(state *taskState, err error) {
	task := state.task

	q.mu.Lock()
	defer q.mu.Unlock()

	q.releaseSlotLocked(task)
	delete(q.running, task.ID())
	delete(q.byID, task.ID())

	switch {
	case err == nil:
		q.logger.Info("task completed",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
	case errors.Is(err, context.Canceled):
		q.logger.Info("task cancelled",
			zap.String("task_id", task.ID()))
	default:
		q.logger.Error("task failed, dropping",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()),
			zap.Error(err))
	}

	if !q.shutdown {
		q.tryStartLocked()
	}
}

// PendingCount returns the number of tasks waiting for a slot.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// RunningCount returns the number of tasks currently executing.
func (q *Queue) RunningCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// Shutdown stops accepting work, cancels running tasks, and waits for them
// to drain or for ctx to expire.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return nil
	}
	q.shutdown = true
	q.pending = nil
	q.mu.Unlock()

	q.cancel()

	done := make(chan struct{})
	go func() {
		q.timers.Wait()
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
