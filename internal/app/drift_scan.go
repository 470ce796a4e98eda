package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

// ScanDrift walks every (worker, date) assignment group inside the range and
// returns the reports for groups that have drifted from the even-split policy.
// The scan only reports; corrections go through the repair endpoint.
func (s *Service) ScanDrift(ctx context.Context, from, to time.Time) (*domain.DriftScanResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", ErrInvalidDate)
	}

	assignments, err := s.repo.ListAssignments(ctx, domain.AssignmentListOptions{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments for scan: %w", err)
	}

	result := &domain.DriftScanResult{From: from, To: to}

	// Worker rates are fetched once per worker, not once per group.
	rates := make(map[string]int64)
	for _, group := range GroupAssignmentsByWorkerDay(assignments) {
		result.GroupsScanned++

		workerKey := group[0].WorkerID.String()
		rate, ok := rates[workerKey]
		if !ok {
			worker, err := s.repo.FindWorkerByID(ctx, group[0].WorkerID)
			if err != nil {
				log.Printf("level=warn component=service flow=drift_scan msg=\"worker lookup failed; skipping group\" worker_id=%s err=%v", workerKey, err)
				continue
			}
			rate = worker.DailyRate
			rates[workerKey] = rate
		}

		report, err := DetectDrift(group, rate, s.driftTolerance)
		if err != nil {
			log.Printf("level=warn component=service flow=drift_scan msg=\"drift detection failed for group\" worker_id=%s date=%s err=%v",
				workerKey, group[0].Date.Format(domain.DateLayout), err)
			continue
		}
		if report.Drifted {
			result.Drifted = append(result.Drifted, *report)
		}
	}

	log.Printf("level=info component=service flow=drift_scan outcome=done from=%s to=%s groups=%d drifted=%d",
		from.Format(domain.DateLayout), to.Format(domain.DateLayout), result.GroupsScanned, len(result.Drifted))
	return result, nil
}

// ScanRecentDrift runs ScanDrift over a trailing window ending today. Used by
// the scheduled nightly job and the internal trigger endpoint.
func (s *Service) ScanRecentDrift(ctx context.Context, windowDays int) (*domain.DriftScanResult, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -windowDays)
	return s.ScanDrift(ctx, from, to)
}
