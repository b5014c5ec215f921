// Package scheduler runs the background maintenance jobs of the tabjson
// API: periodic response cache sweeps and an hourly watchdog that flags a
// degraded upstream. Jobs are cron-driven via gocron and coordinate with
// the cache through the interfaces package.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/okvist/tabjson-api/interfaces"
	"github.com/okvist/tabjson-api/logging"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const sweepInterval = 5 * time.Minute

// Scheduler handles cache maintenance and upstream health monitoring.
type Scheduler struct {
	cache     interfaces.ResponseCache
	scheduler *gocron.Scheduler
	stopWatch chan struct{}
}

// NewScheduler creates a scheduler instance with injected dependencies.
func NewScheduler(cache interfaces.ResponseCache) *Scheduler {
	return &Scheduler{
		cache:     cache,
		scheduler: gocron.NewScheduler(time.Local),
		stopWatch: make(chan struct{}),
	}
}

// Start schedules the cache sweep and begins health monitoring.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(sweepInterval).Do(func() {
		removed := s.cache.Sweep()
		if removed > 0 {
			logging.Debug("Cache sweep completed", "evicted", removed)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule cache sweep", "error", err)
		return fmt.Errorf("failed to schedule cache sweep: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler and the watchdog.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	close(s.stopWatch)
}

// startHealthMonitoring watches the upstream failure streak and logs when
// the service keeps failing to reach the spreadsheet host.
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopWatch:
				return
			case <-ticker.C:
				failures := s.cache.ConsecutiveFetchFailures()
				if failures >= 5 {
					logging.Warn("Upstream fetches keep failing", "consecutive_failures", failures)
				}
			}
		}
	}()
}
