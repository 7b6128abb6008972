package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobHandler is a function that runs one scheduled job
type JobHandler func(ctx context.Context) error

type job struct {
	spec    string
	handler JobHandler
	entryID cron.EntryID
}

// Scheduler runs named housekeeping jobs on cron schedules
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger logrus.FieldLogger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewScheduler creates a Scheduler. Jobs see ctx, which is cancelled by Stop.
func NewScheduler(ctx context.Context, logger logrus.FieldLogger) *Scheduler {
	cctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		ctx:    cctx,
		cancel: cancel,
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Register adds a job. spec is any robfig/cron expression, including
// descriptors such as "@every 1m".
func (s *Scheduler) Register(name, spec string, handler JobHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	j := &job{spec: spec, handler: handler}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, j.handler) })
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}
	j.entryID = id
	s.jobs[name] = j
	return nil
}

// Jobs returns the registered job names in sorted order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow runs a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no job registered with name %q", name)
	}
	return s.run(name, j.handler)
}

func (s *Scheduler) run(name string, handler JobHandler) error {
	logger := s.logger.WithField("job", name)
	if err := handler(s.ctx); err != nil {
		logger.WithError(err).Warn("Scheduled job failed")
		return err
	}
	logger.Debug("Scheduled job finished")
	return nil
}

// Start begins running jobs on their schedules
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", s.Jobs()).Info("Scheduler started")
}

// Stop cancels running jobs and waits for them, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return
	}
	s.logger.Info("Scheduler stopped")
}
