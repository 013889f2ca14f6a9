package tasks

import (
	"context"
	"time"
)

// Task is one unit of background work.
type Task interface {
	// ID identifies the task. Tasks whose effect is idempotent use a
	// deterministic ID so duplicate triggers collapse in the queue.
	ID() string

	// Name is the task type, for logs.
	Name() string

	// UsesGenerativeModel reports whether the task calls the enrichment
	// model. These tasks are throttled separately.
	UsesGenerativeModel() bool

	// Execute runs the task. The enqueuer lets it schedule follow-up work.
	Execute(ctx context.Context, enqueuer TaskEnqueuer) error
}

// TaskEnqueuer schedules tasks, immediately or after a delay.
type TaskEnqueuer interface {
	Enqueue(task Task)
	EnqueueAfter(task Task, delay time.Duration)
}

// taskState tracks one task inside the queue, including how many execution
// attempts it has used across retries.
type taskState struct {
	task     Task
	attempts int
}
