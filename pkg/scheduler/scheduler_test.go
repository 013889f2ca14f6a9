package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/tasks"
)

type countingEnqueuer struct {
	mu    sync.Mutex
	names []string
}

func (c *countingEnqueuer) Enqueue(task tasks.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, task.Name())
}

func (c *countingEnqueuer) EnqueueAfter(task tasks.Task, _ time.Duration) {
	c.Enqueue(task)
}

func (c *countingEnqueuer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

func (c *countingEnqueuer) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

type namedTask struct{ name string }

func (t *namedTask) ID() string                { return t.name }
func (t *namedTask) Name() string              { return t.name }
func (t *namedTask) UsesGenerativeModel() bool { return false }
func (t *namedTask) Execute(context.Context, tasks.TaskEnqueuer) error {
	return nil
}

func TestScheduler_FiresImmediatelyAndOnInterval(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	s := New(enqueuer, zap.NewNop())
	s.Add("sweep", 10*time.Millisecond, func() tasks.Task { return &namedTask{name: "sweep"} })

	s.Start()
	defer s.Stop()

	// One immediate fire, then ticks.
	assert.Eventually(t, func() bool { return enqueuer.count() >= 3 }, time.Second, time.Millisecond)
}

func TestScheduler_StopHaltsTicks(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	s := New(enqueuer, zap.NewNop())
	s.Add("sweep", 5*time.Millisecond, func() tasks.Task { return &namedTask{name: "sweep"} })

	s.Start()
	s.Stop()

	settled := enqueuer.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, enqueuer.count())
}

func TestScheduler_MultipleEntries(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	s := New(enqueuer, zap.NewNop())
	s.Add("a", time.Hour, func() tasks.Task { return &namedTask{name: "a"} })
	s.Add("b", time.Hour, func() tasks.Task { return &namedTask{name: "b"} })

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return enqueuer.count() == 2 }, time.Second, time.Millisecond)
	assert.ElementsMatch(t, []string{"a", "b"}, enqueuer.snapshot())
}
