/**
 * @description
 * This file contains the core business logic for the back-office service. The
 * `Service` struct orchestrates worker scheduling, payroll rate allocation,
 * the inter-site transfer ledger, and the drift diagnostics, coordinating
 * between the repository and the message broker.
 *
 * Key features:
 * - Keeps each (worker, date) assignment group evenly allocated as sites are
 *   added and removed.
 * - Applies drift repairs row by row and reports exactly which rows failed to
 *   persist; the correction set itself is always computed whole.
 * - Publishes events to RabbitMQ for asynchronous processing by other systems.
 *
 * @dependencies
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
	"github.com/ncannata93/stockhdlc-sub001/internal/store"
	"github.com/ncannata93/stockhdlc-sub001/pkg/rabbitmq"
)

const eventPublishTimeout = 5 * time.Second

var (
	ErrInvalidSiteName     = errors.New("site name must not be empty")
	ErrInvalidWorkerName   = errors.New("worker name must not be empty")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidStatusFilter = errors.New("status filter must be pending, settled or void")
	ErrWorkerInactive      = errors.New("worker is not active")
	ErrRepairRateLimited   = errors.New("repair rate limit exceeded")
	ErrNothingToRepair     = errors.New("no assignments found for worker and date")
)

// RateLimiter counts calls per (scope, subject) within a fixed window.
// A nil limiter disables limiting.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope string, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the back office.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	eventExchange string

	defaultDailyRate  int64
	driftTolerance    int64
	repairRateLimit   int
	repairRateLimiter RateLimiter
}

// NewService creates a new back-office service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string, defaultDailyRate, driftTolerance int64) *Service {
	if driftTolerance < 0 {
		driftTolerance = DefaultRateTolerance
	}
	return &Service{
		repo:             repo,
		eventProducer:    producer,
		eventExchange:    eventExchange,
		defaultDailyRate: defaultDailyRate,
		driftTolerance:   driftTolerance,
	}
}

// SetRepairRateLimiter enables distributed rate limiting for repair calls.
func (s *Service) SetRepairRateLimiter(limiter RateLimiter, perMinute int) {
	s.repairRateLimiter = limiter
	s.repairRateLimit = perMinute
}

// ParseDay parses a YYYY-MM-DD wire date into a UTC day-precision time.
func ParseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return day, nil
}

// CreateSite registers a new site.
func (s *Service) CreateSite(ctx context.Context, req domain.CreateSiteRequest) (*domain.Site, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidSiteName
	}

	site := &domain.Site{ID: uuid.New(), Name: name}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

// ListSites returns all registered sites.
func (s *Service) ListSites(ctx context.Context) ([]domain.Site, error) {
	return s.repo.ListSites(ctx)
}

// CreateWorker registers a new payroll subject. A zero daily rate falls back
// to the configured default.
func (s *Service) CreateWorker(ctx context.Context, req domain.CreateWorkerRequest) (*domain.Worker, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ErrInvalidWorkerName
	}
	if req.DailyRate < 0 {
		return nil, ErrNegativeRate
	}

	rate := req.DailyRate
	if rate == 0 {
		rate = s.defaultDailyRate
	}

	worker := &domain.Worker{
		ID:        uuid.New(),
		FullName:  name,
		DailyRate: rate,
		Active:    true,
	}
	if err := s.repo.CreateWorker(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

// GetWorker returns one worker.
func (s *Service) GetWorker(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
	return s.repo.FindWorkerByID(ctx, workerID)
}

// ListWorkers returns workers, optionally only active ones.
func (s *Service) ListWorkers(ctx context.Context, activeOnly bool) ([]domain.Worker, error) {
	return s.repo.ListWorkers(ctx, activeOnly)
}

// UpdateWorker applies a partial worker update. Note that changing a daily
// rate does not rewrite history: previously stored shares keep their values
// and surface through drift detection instead.
func (s *Service) UpdateWorker(ctx context.Context, workerID uuid.UUID, req domain.UpdateWorkerRequest) (*domain.Worker, error) {
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return nil, ErrInvalidWorkerName
	}
	if req.DailyRate != nil && *req.DailyRate < 0 {
		return nil, ErrNegativeRate
	}
	return s.repo.UpdateWorker(ctx, workerID, req)
}

// ScheduleAssignment creates one worker/site/date row and re-allocates the
// whole (worker, date) group so every share reflects the new site count.
func (s *Service) ScheduleAssignment(ctx context.Context, req domain.ScheduleAssignmentRequest) (*domain.WorkAssignment, error) {
	day, err := ParseDay(req.Date)
	if err != nil {
		return nil, err
	}

	worker, err := s.repo.FindWorkerByID(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if !worker.Active {
		return nil, ErrWorkerInactive
	}
	if _, err := s.repo.FindSiteByID(ctx, req.SiteID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListAssignmentsForWorkerDay(ctx, worker.ID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment group: %w", err)
	}

	share, err := Allocate(worker.DailyRate, len(existing)+1)
	if err != nil {
		return nil, err
	}

	assignment := &domain.WorkAssignment{
		ID:            uuid.New(),
		WorkerID:      worker.ID,
		SiteID:        req.SiteID,
		Date:          day,
		AllocatedRate: share,
		Note:          req.Note,
	}
	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	// Rebalance the rows that predate this one. Per-row persistence may
	// partially fail; the nightly drift scan picks up any stragglers.
	for _, prior := range existing {
		if prior.AllocatedRate == share {
			continue
		}
		if err := s.repo.UpdateAssignmentRate(ctx, prior.ID, share); err != nil {
			log.Printf("level=warn component=service flow=schedule_assignment msg=\"rebalance failed for sibling row\" assignment_id=%s err=%v", prior.ID, err)
		}
	}

	return assignment, nil
}

// CancelAssignment deletes one assignment row and re-allocates whatever
// remains of its (worker, date) group.
func (s *Service) CancelAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	assignment, err := s.repo.FindAssignmentByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAssignment(ctx, assignmentID); err != nil {
		return err
	}

	remaining, err := s.repo.ListAssignmentsForWorkerDay(ctx, assignment.WorkerID, assignment.Date)
	if err != nil {
		return fmt.Errorf("failed to load remaining assignment group: %w", err)
	}
	if len(remaining) == 0 {
		return nil
	}

	worker, err := s.repo.FindWorkerByID(ctx, assignment.WorkerID)
	if err != nil {
		return err
	}
	share, err := Allocate(worker.DailyRate, len(remaining))
	if err != nil {
		return err
	}
	for _, row := range remaining {
		if row.AllocatedRate == share {
			continue
		}
		if err := s.repo.UpdateAssignmentRate(ctx, row.ID, share); err != nil {
			log.Printf("level=warn component=service flow=cancel_assignment msg=\"rebalance failed for remaining row\" assignment_id=%s err=%v", row.ID, err)
		}
	}
	return nil
}

// ListAssignments returns assignments matching the filter.
func (s *Service) ListAssignments(ctx context.Context, opts domain.AssignmentListOptions) ([]domain.WorkAssignment, error) {
	return s.repo.ListAssignments(ctx, opts)
}

// InspectWorkerDay produces the drift report for one (worker, date) group.
func (s *Service) InspectWorkerDay(ctx context.Context, workerID uuid.UUID, date time.Time) (*domain.DriftReport, error) {
	worker, err := s.repo.FindWorkerByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	group, err := s.repo.ListAssignmentsForWorkerDay(ctx, workerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment group: %w", err)
	}
	if len(group) == 0 {
		return nil, ErrNothingToRepair
	}
	return DetectDrift(group, worker.DailyRate, s.driftTolerance)
}

// RepairWorkerDay recomputes the even split for one (worker, date) group and
// persists it row by row. The full correction set is computed before any row
// is touched; rows that fail to persist are reported, never silently dropped.
func (s *Service) RepairWorkerDay(ctx context.Context, subject string, workerID uuid.UUID, date time.Time) (*domain.RepairResult, error) {
	if s.repairRateLimiter != nil && s.repairRateLimit > 0 {
		count, retryAfter, err := s.repairRateLimiter.ConsumeRateLimit(ctx, "payroll_repair", subject, s.repairRateLimit, time.Minute)
		if err != nil {
			log.Printf("level=warn component=service flow=repair msg=\"rate limiter unavailable; allowing call\" err=%v", err)
		} else if count > s.repairRateLimit {
			return nil, fmt.Errorf("%w: retry in %ds", ErrRepairRateLimited, retryAfter)
		}
	}

	worker, err := s.repo.FindWorkerByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	group, err := s.repo.ListAssignmentsForWorkerDay(ctx, workerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment group: %w", err)
	}
	if len(group) == 0 {
		return nil, ErrNothingToRepair
	}

	corrections, err := Repair(group, worker.DailyRate)
	if err != nil {
		return nil, err
	}

	current := make(map[uuid.UUID]int64, len(group))
	for _, a := range group {
		current[a.ID] = a.AllocatedRate
	}

	result := &domain.RepairResult{WorkerID: workerID, Date: date}
	for _, c := range corrections {
		if current[c.AssignmentID] == c.NewRate {
			result.Unchanged++
			continue
		}
		if err := s.repo.UpdateAssignmentRate(ctx, c.AssignmentID, c.NewRate); err != nil {
			result.Failed = append(result.Failed, domain.RateCorrectionFailure{
				AssignmentID: c.AssignmentID,
				NewRate:      c.NewRate,
				Error:        err.Error(),
			})
			log.Printf("level=error component=service flow=repair msg=\"correction row failed to persist\" assignment_id=%s new_rate=%d err=%v", c.AssignmentID, c.NewRate, err)
			continue
		}
		result.Applied++
	}

	if result.Applied > 0 {
		s.publish("payroll.rates.repaired", domain.RatesRepairedEvent{
			WorkerID:  workerID,
			Date:      date.Format(domain.DateLayout),
			Applied:   result.Applied,
			Failed:    len(result.Failed),
			Timestamp: time.Now().UTC(),
		})
	}

	log.Printf("level=info component=service flow=repair outcome=done worker_id=%s date=%s applied=%d unchanged=%d failed=%d",
		workerID, date.Format(domain.DateLayout), result.Applied, result.Unchanged, len(result.Failed))
	return result, nil
}

// CreateTransfer records a new inter-site transfer in pending state.
func (s *Service) CreateTransfer(ctx context.Context, req domain.CreateTransferRequest) (*domain.TransferRecord, error) {
	day, err := ParseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if req.OriginSiteID == uuid.Nil || req.DestinationSiteID == uuid.Nil {
		return nil, ErrMissingSite
	}
	if req.OriginSiteID == req.DestinationSiteID {
		return nil, ErrSameSiteTransfer
	}
	if req.Amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	if _, err := s.repo.FindSiteByID(ctx, req.OriginSiteID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindSiteByID(ctx, req.DestinationSiteID); err != nil {
		return nil, err
	}

	record := &domain.TransferRecord{
		ID:                uuid.New(),
		OriginSiteID:      req.OriginSiteID,
		DestinationSiteID: req.DestinationSiteID,
		Amount:            req.Amount,
		Status:            domain.TransferStatusPending,
		Date:              day,
		Description:       req.Description,
	}
	if err := s.repo.CreateTransferRecord(ctx, record); err != nil {
		return nil, err
	}

	s.publishTransferEvent("ledger.transfer.created", record)
	return record, nil
}

// SettleTransfer marks a pending transfer as settled.
func (s *Service) SettleTransfer(ctx context.Context, transferID uuid.UUID) (*domain.TransferRecord, error) {
	record, err := s.repo.UpdateTransferStatus(ctx, transferID, domain.TransferStatusSettled)
	if err != nil {
		return nil, err
	}
	s.publishTransferEvent("ledger.transfer.settled", record)
	return record, nil
}

// VoidTransfer cancels a pending transfer. The row stays in the ledger but is
// excluded from all balance computation.
func (s *Service) VoidTransfer(ctx context.Context, transferID uuid.UUID) (*domain.TransferRecord, error) {
	record, err := s.repo.UpdateTransferStatus(ctx, transferID, domain.TransferStatusVoid)
	if err != nil {
		return nil, err
	}
	s.publishTransferEvent("ledger.transfer.voided", record)
	return record, nil
}

// ListTransfers returns transfer records matching the filter.
func (s *Service) ListTransfers(ctx context.Context, opts domain.TransferListOptions) ([]domain.TransferRecord, error) {
	if opts.Status != "" {
		switch opts.Status {
		case domain.TransferStatusPending, domain.TransferStatusSettled, domain.TransferStatusVoid:
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatusFilter, opts.Status)
		}
	}
	return s.repo.ListTransferRecords(ctx, opts)
}

// BalanceSheet recomputes every site's netted position from all transfer
// records. Balances are never stored; each call derives them fresh.
func (s *Service) BalanceSheet(ctx context.Context) ([]domain.SiteBalance, error) {
	records, err := s.repo.ListTransferRecords(ctx, domain.TransferListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer records: %w", err)
	}
	return ComputeBalances(records)
}

func (s *Service) publishTransferEvent(routingKey string, record *domain.TransferRecord) {
	s.publish(routingKey, domain.TransferEvent{
		TransferID:        record.ID,
		OriginSiteID:      record.OriginSiteID,
		DestinationSiteID: record.DestinationSiteID,
		Amount:            record.Amount,
		Status:            record.Status,
		Timestamp:         time.Now().UTC(),
	})
}

// publish sends an event on the configured exchange. Broker failures are
// logged and never fail the calling operation.
func (s *Service) publish(routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()
	if err := s.eventProducer.Publish(ctx, s.eventExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
