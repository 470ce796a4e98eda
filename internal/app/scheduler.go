/**
 * @description
 * Cron scheduler for the nightly drift scan. The scan only reports; repairs
 * stay a deliberate operator action through the API.
 */
package app

import (
	"context"
	"log"
	"os"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the recurring drift scan job.
type Scheduler struct {
	cron       *cron.Cron
	service    *Service
	schedule   string
	windowDays int
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(service *Service, schedule string, windowDays int) *Scheduler {
	cronLogger := cron.PrintfLogger(log.New(os.Stdout, "level=info component=scheduler ", log.LstdFlags))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:       c,
		service:    service,
		schedule:   schedule,
		windowDays: windowDays,
	}
}

// Start registers the drift scan job and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runDriftScan); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule drift scan job\" schedule=%q err=%v", s.schedule, err)
		return
	}
	log.Printf("level=info component=scheduler msg=\"scheduled drift scan job\" schedule=%q window_days=%d", s.schedule, s.windowDays)
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runDriftScan() {
	result, err := s.service.ScanRecentDrift(context.Background(), s.windowDays)
	if err != nil {
		log.Printf("level=error component=scheduler job=drift_scan msg=\"scan failed\" err=%v", err)
		return
	}
	for _, report := range result.Drifted {
		log.Printf("level=warn component=scheduler job=drift_scan msg=\"drifted assignment group\" worker_id=%s date=%s expected_share=%d group_total=%d daily_rate=%d",
			report.WorkerID, report.Date.Format("2006-01-02"), report.ExpectedShare, report.GroupTotal, report.DailyRate)
	}
}
