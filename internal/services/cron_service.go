package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepTimeout = 2 * time.Minute

// CronService schedules the payment deadline sweep
type CronService struct {
	cron     *cron.Cron
	watcher  *DeadlineWatcher
	schedule string
	logger   *logrus.Logger

	mu         sync.Mutex
	lastRun    time.Time
	lastResult *SweepResult
	lastError  string
}

// NewCronService creates a new CronService. schedule uses seconds precision:
// "0 */5 * * * *" runs every five minutes.
func NewCronService(watcher *DeadlineWatcher, schedule string, logger *logrus.Logger) *CronService {
	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &CronService{
		cron:     c,
		watcher:  watcher,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.expireBookingsJob); err != nil {
		return fmt.Errorf("failed to schedule payment deadline sweep: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) expireBookingsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.RunExpireBookingsNow(ctx); err != nil {
		s.logger.WithError(err).Error("Payment deadline sweep failed")
	}
}

// RunExpireBookingsNow runs the sweep immediately (manual trigger)
func (s *CronService) RunExpireBookingsNow(ctx context.Context) (SweepResult, error) {
	result, err := s.watcher.RunOnce(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastResult = &result
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	return result, err
}

// GetJobStatus returns the status of scheduled jobs and the last sweep
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":   len(entries) > 0,
		"schedule":  s.schedule,
		"job_count": len(entries),
		"jobs":      jobs,
	}
	if s.lastResult != nil {
		status["last_run"] = s.lastRun
		status["last_result"] = s.lastResult
	}
	if s.lastError != "" {
		status["last_error"] = s.lastError
	}
	return status
}
