// Package scheduler triggers periodic background sweeps on fixed intervals.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/tasks"
)

type entry struct {
	name     string
	interval time.Duration
	factory  func() tasks.Task
}

// Scheduler enqueues a fresh task instance for each registered entry on its
// interval. The first run fires immediately on Start so a restarted server
// does not wait a full day for its sweeps. Missed ticks are not replayed;
// the sweeps are idempotent and the next tick covers them.
type Scheduler struct {
	enqueuer tasks.TaskEnqueuer
	entries  []entry
	logger   *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a scheduler that feeds the given enqueuer.
func New(enqueuer tasks.TaskEnqueuer, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		enqueuer: enqueuer,
		logger:   logger.Named("scheduler"),
		stop:     make(chan struct{}),
	}
}

// Add registers a periodic entry. The factory runs once per tick so each
// sweep gets a fresh task instance. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, factory func() tasks.Task) {
	s.entries = append(s.entries, entry{name: name, interval: interval, factory: factory})
}

// Start launches one loop per entry.
func (s *Scheduler) Start() {
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(e)
	}
	s.logger.Info("scheduler started", zap.Int("entries", len(s.entries)))
}

func (s *Scheduler) loop(e entry) {
	defer s.wg.Done()

	s.logger.Info("periodic entry armed",
		zap.String("entry", e.name),
		zap.Duration("interval", e.interval))

	s.enqueuer.Enqueue(e.factory())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.enqueuer.Enqueue(e.factory())
		}
	}
}

// Stop halts all loops and waits for them to exit. Already-enqueued tasks
// keep running; draining them is the queue's job.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
