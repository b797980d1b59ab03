package cron

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs named jobs on cron schedules. A job that is still running
// when its next tick arrives is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger

	mutex   sync.RWMutex
	entries map[string]cron.EntryID
	running map[string]bool
}

// NewScheduler creates a scheduler with second-precision schedules.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		entries: make(map[string]cron.EntryID),
		running: make(map[string]bool),
	}
}

// Add schedules job under name. Names are unique.
func (s *Scheduler) Add(name, schedule string, job func() error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.entries[name] = entryID

	s.logger.Info().Str("job", name).Str("schedule", schedule).Msg("Scheduled job")
	return nil
}

// RunNow runs a job immediately on the caller's goroutine, honouring the
// same overlap rule as scheduled runs.
func (s *Scheduler) RunNow(name string, job func() error) {
	s.run(name, job)
}

func (s *Scheduler) run(name string, job func() error) {
	s.mutex.Lock()
	if s.running[name] {
		s.mutex.Unlock()
		s.logger.Debug().Str("job", name).Msg("Job already in progress, skipping")
		return
	}
	s.running[name] = true
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		s.running[name] = false
		s.mutex.Unlock()
	}()

	start := time.Now()
	if err := job(); err != nil {
		s.logger.Warn().Err(err).Str("job", name).Msg("Job failed")
		return
	}
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Job completed")
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// NextRun returns the next scheduled run of a job, or the zero time.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mutex.RLock()
	entryID, ok := s.entries[name]
	s.mutex.RUnlock()

	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(entryID).Next
}

// Jobs returns the scheduled job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRunning returns whether a job is currently in progress
func (s *Scheduler) IsRunning(name string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running[name]
}
