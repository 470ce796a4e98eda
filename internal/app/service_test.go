package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
	"github.com/ncannata93/stockhdlc-sub001/internal/store"
)

// stubRepository embeds the repository interface so each test only fills in
// the methods its flow touches; anything else panics loudly.
type stubRepository struct {
	store.Repository

	findWorkerByID              func(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error)
	findSiteByID                func(ctx context.Context, siteID uuid.UUID) (*domain.Site, error)
	listAssignmentsForWorkerDay func(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error)
	createAssignment            func(ctx context.Context, assignment *domain.WorkAssignment) error
	updateAssignmentRate        func(ctx context.Context, assignmentID uuid.UUID, newRate int64) error
	listTransferRecords         func(ctx context.Context, opts domain.TransferListOptions) ([]domain.TransferRecord, error)
}

func (s *stubRepository) FindWorkerByID(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
	return s.findWorkerByID(ctx, workerID)
}

func (s *stubRepository) FindSiteByID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	return s.findSiteByID(ctx, siteID)
}

func (s *stubRepository) ListAssignmentsForWorkerDay(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
	return s.listAssignmentsForWorkerDay(ctx, workerID, date)
}

func (s *stubRepository) CreateAssignment(ctx context.Context, assignment *domain.WorkAssignment) error {
	return s.createAssignment(ctx, assignment)
}

func (s *stubRepository) UpdateAssignmentRate(ctx context.Context, assignmentID uuid.UUID, newRate int64) error {
	return s.updateAssignmentRate(ctx, assignmentID, newRate)
}

func (s *stubRepository) ListTransferRecords(ctx context.Context, opts domain.TransferListOptions) ([]domain.TransferRecord, error) {
	return s.listTransferRecords(ctx, opts)
}

// capturePublisher records published events instead of talking to a broker.
type capturePublisher struct {
	routingKeys []string
}

func (p *capturePublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

func (p *capturePublisher) Close() {}

type stubRateLimiter struct {
	count      int
	retryAfter int
	err        error
}

func (l *stubRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return l.count, l.retryAfter, l.err
}

func TestScheduleAssignmentRebalancesGroup(t *testing.T) {
	worker := &domain.Worker{ID: uuid.New(), FullName: "Juan Perez", DailyRate: 30000, Active: true}
	site := &domain.Site{ID: uuid.New(), Name: "Hotel Jaguel"}
	day := mustDay(t, "2026-08-14")

	existing := []domain.WorkAssignment{
		{ID: uuid.New(), WorkerID: worker.ID, SiteID: uuid.New(), Date: day, AllocatedRate: 15000},
		{ID: uuid.New(), WorkerID: worker.ID, SiteID: uuid.New(), Date: day, AllocatedRate: 15000},
	}

	rebalanced := make(map[uuid.UUID]int64)
	var created *domain.WorkAssignment

	repo := &stubRepository{
		findWorkerByID: func(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
			return worker, nil
		},
		findSiteByID: func(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
			return site, nil
		},
		listAssignmentsForWorkerDay: func(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
			return existing, nil
		},
		createAssignment: func(ctx context.Context, assignment *domain.WorkAssignment) error {
			created = assignment
			return nil
		},
		updateAssignmentRate: func(ctx context.Context, assignmentID uuid.UUID, newRate int64) error {
			rebalanced[assignmentID] = newRate
			return nil
		},
	}

	service := NewService(repo, nil, "backoffice.events", 25000, DefaultRateTolerance)

	assignment, err := service.ScheduleAssignment(context.Background(), domain.ScheduleAssignmentRequest{
		WorkerID: worker.ID,
		SiteID:   site.ID,
		Date:     "2026-08-14",
	})
	if err != nil {
		t.Fatalf("ScheduleAssignment returned error: %v", err)
	}

	// 30000 across three sites
	if assignment.AllocatedRate != 10000 {
		t.Fatalf("new assignment rate = %d, want 10000", assignment.AllocatedRate)
	}
	if created == nil || created.ID != assignment.ID {
		t.Fatal("assignment was not persisted through the repository")
	}
	if len(rebalanced) != 2 {
		t.Fatalf("rebalanced %d sibling rows, want 2", len(rebalanced))
	}
	for _, prior := range existing {
		if rate, ok := rebalanced[prior.ID]; !ok || rate != 10000 {
			t.Fatalf("sibling %s rebalanced to %d (present=%t), want 10000", prior.ID, rate, ok)
		}
	}
}

func TestScheduleAssignmentRejectsInactiveWorker(t *testing.T) {
	worker := &domain.Worker{ID: uuid.New(), FullName: "Ana Lopez", DailyRate: 30000, Active: false}

	repo := &stubRepository{
		findWorkerByID: func(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
			return worker, nil
		},
	}
	service := NewService(repo, nil, "backoffice.events", 25000, DefaultRateTolerance)

	_, err := service.ScheduleAssignment(context.Background(), domain.ScheduleAssignmentRequest{
		WorkerID: worker.ID,
		SiteID:   uuid.New(),
		Date:     "2026-08-14",
	})
	if !errors.Is(err, ErrWorkerInactive) {
		t.Fatalf("got err %v, want %v", err, ErrWorkerInactive)
	}
}

func TestScheduleAssignmentRejectsBadDate(t *testing.T) {
	service := NewService(&stubRepository{}, nil, "backoffice.events", 25000, DefaultRateTolerance)

	_, err := service.ScheduleAssignment(context.Background(), domain.ScheduleAssignmentRequest{
		WorkerID: uuid.New(),
		SiteID:   uuid.New(),
		Date:     "14/08/2026",
	})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got err %v, want %v", err, ErrInvalidDate)
	}
}

func TestRepairWorkerDayReportsPartialFailures(t *testing.T) {
	worker := &domain.Worker{ID: uuid.New(), FullName: "Juan Perez", DailyRate: 18000, Active: true}
	day := mustDay(t, "2026-08-15")

	group := []domain.WorkAssignment{
		{ID: uuid.New(), WorkerID: worker.ID, SiteID: uuid.New(), Date: day, AllocatedRate: 5000},
		{ID: uuid.New(), WorkerID: worker.ID, SiteID: uuid.New(), Date: day, AllocatedRate: 6000},
		{ID: uuid.New(), WorkerID: worker.ID, SiteID: uuid.New(), Date: day, AllocatedRate: 5000},
	}
	failingID := group[2].ID

	repo := &stubRepository{
		findWorkerByID: func(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
			return worker, nil
		},
		listAssignmentsForWorkerDay: func(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
			return group, nil
		},
		updateAssignmentRate: func(ctx context.Context, assignmentID uuid.UUID, newRate int64) error {
			if assignmentID == failingID {
				return fmt.Errorf("row locked")
			}
			return nil
		},
	}

	publisher := &capturePublisher{}
	service := NewService(repo, publisher, "backoffice.events", 25000, DefaultRateTolerance)

	result, err := service.RepairWorkerDay(context.Background(), "staff-1", worker.ID, day)
	if err != nil {
		t.Fatalf("RepairWorkerDay returned error: %v", err)
	}

	// Expected share is 6000: one row already correct, one applied, one failed.
	if result.Applied != 1 {
		t.Fatalf("applied = %d, want 1", result.Applied)
	}
	if result.Unchanged != 1 {
		t.Fatalf("unchanged = %d, want 1", result.Unchanged)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed rows = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].AssignmentID != failingID {
		t.Fatalf("failed row = %s, want %s", result.Failed[0].AssignmentID, failingID)
	}
	if result.Failed[0].NewRate != 6000 {
		t.Fatalf("failed row new rate = %d, want 6000", result.Failed[0].NewRate)
	}

	if len(publisher.routingKeys) != 1 || publisher.routingKeys[0] != "payroll.rates.repaired" {
		t.Fatalf("published routing keys = %v, want [payroll.rates.repaired]", publisher.routingKeys)
	}
}

func TestRepairWorkerDayRateLimited(t *testing.T) {
	repo := &stubRepository{}
	service := NewService(repo, nil, "backoffice.events", 25000, DefaultRateTolerance)
	service.SetRepairRateLimiter(&stubRateLimiter{count: 31, retryAfter: 42}, 30)

	_, err := service.RepairWorkerDay(context.Background(), "staff-1", uuid.New(), mustDay(t, "2026-08-15"))
	if !errors.Is(err, ErrRepairRateLimited) {
		t.Fatalf("got err %v, want %v", err, ErrRepairRateLimited)
	}
}

func TestRepairWorkerDayLimiterFailureAllowsCall(t *testing.T) {
	worker := &domain.Worker{ID: uuid.New(), FullName: "Juan Perez", DailyRate: 18000, Active: true}
	day := mustDay(t, "2026-08-15")
	group := []domain.WorkAssignment{
		{ID: uuid.New(), WorkerID: worker.ID, SiteID: uuid.New(), Date: day, AllocatedRate: 18000},
	}

	repo := &stubRepository{
		findWorkerByID: func(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
			return worker, nil
		},
		listAssignmentsForWorkerDay: func(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
			return group, nil
		},
	}
	service := NewService(repo, nil, "backoffice.events", 25000, DefaultRateTolerance)
	service.SetRepairRateLimiter(&stubRateLimiter{err: fmt.Errorf("redis down")}, 30)

	result, err := service.RepairWorkerDay(context.Background(), "staff-1", worker.ID, day)
	if err != nil {
		t.Fatalf("RepairWorkerDay returned error: %v", err)
	}
	if result.Unchanged != 1 || result.Applied != 0 {
		t.Fatalf("result = %+v, want unchanged 1 applied 0", result)
	}
}

func TestRepairWorkerDayNothingToRepair(t *testing.T) {
	worker := &domain.Worker{ID: uuid.New(), FullName: "Juan Perez", DailyRate: 18000, Active: true}

	repo := &stubRepository{
		findWorkerByID: func(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
			return worker, nil
		},
		listAssignmentsForWorkerDay: func(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
			return nil, nil
		},
	}
	service := NewService(repo, nil, "backoffice.events", 25000, DefaultRateTolerance)

	_, err := service.RepairWorkerDay(context.Background(), "staff-1", worker.ID, mustDay(t, "2026-08-15"))
	if !errors.Is(err, ErrNothingToRepair) {
		t.Fatalf("got err %v, want %v", err, ErrNothingToRepair)
	}
}

func TestCreateWorkerDefaultsDailyRate(t *testing.T) {
	repository := store.NewMemoryRepository()
	service := NewService(repository, nil, "backoffice.events", 25000, DefaultRateTolerance)

	worker, err := service.CreateWorker(context.Background(), domain.CreateWorkerRequest{FullName: "Maria Gomez"})
	if err != nil {
		t.Fatalf("CreateWorker returned error: %v", err)
	}
	if worker.DailyRate != 25000 {
		t.Fatalf("daily rate = %d, want default 25000", worker.DailyRate)
	}
	if !worker.Active {
		t.Fatal("new worker should be active")
	}
}

func TestCreateTransferValidation(t *testing.T) {
	siteA := uuid.New()
	service := NewService(store.NewMemoryRepository(), nil, "backoffice.events", 25000, DefaultRateTolerance)

	tests := []struct {
		name    string
		req     domain.CreateTransferRequest
		wantErr error
	}{
		{
			name:    "missing destination",
			req:     domain.CreateTransferRequest{OriginSiteID: siteA, Amount: 100, Date: "2026-08-15"},
			wantErr: ErrMissingSite,
		},
		{
			name:    "same site",
			req:     domain.CreateTransferRequest{OriginSiteID: siteA, DestinationSiteID: siteA, Amount: 100, Date: "2026-08-15"},
			wantErr: ErrSameSiteTransfer,
		},
		{
			name:    "zero amount",
			req:     domain.CreateTransferRequest{OriginSiteID: siteA, DestinationSiteID: uuid.New(), Amount: 0, Date: "2026-08-15"},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "bad date",
			req:     domain.CreateTransferRequest{OriginSiteID: siteA, DestinationSiteID: uuid.New(), Amount: 100, Date: "yesterday"},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "unknown site",
			req:     domain.CreateTransferRequest{OriginSiteID: siteA, DestinationSiteID: uuid.New(), Amount: 100, Date: "2026-08-15"},
			wantErr: store.ErrSiteNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateTransfer(context.Background(), tc.req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got err %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTransferLifecycleAndBalanceSheet(t *testing.T) {
	repository := store.NewMemoryRepository()
	publisher := &capturePublisher{}
	service := NewService(repository, publisher, "backoffice.events", 25000, DefaultRateTolerance)
	ctx := context.Background()

	siteA, err := service.CreateSite(ctx, domain.CreateSiteRequest{Name: "Hotel Jaguel"})
	if err != nil {
		t.Fatalf("CreateSite returned error: %v", err)
	}
	siteB, err := service.CreateSite(ctx, domain.CreateSiteRequest{Name: "Hotel Mallak"})
	if err != nil {
		t.Fatalf("CreateSite returned error: %v", err)
	}

	transfer, err := service.CreateTransfer(ctx, domain.CreateTransferRequest{
		OriginSiteID:      siteA.ID,
		DestinationSiteID: siteB.ID,
		Amount:            5000,
		Date:              "2026-08-15",
	})
	if err != nil {
		t.Fatalf("CreateTransfer returned error: %v", err)
	}
	if transfer.Status != domain.TransferStatusPending {
		t.Fatalf("new transfer status = %q, want %q", transfer.Status, domain.TransferStatusPending)
	}

	settled, err := service.SettleTransfer(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("SettleTransfer returned error: %v", err)
	}
	if settled.Status != domain.TransferStatusSettled {
		t.Fatalf("settled status = %q, want %q", settled.Status, domain.TransferStatusSettled)
	}

	// A second transition off pending must be rejected.
	if _, err := service.VoidTransfer(ctx, transfer.ID); !errors.Is(err, store.ErrTransferNotPending) {
		t.Fatalf("got err %v, want %v", err, store.ErrTransferNotPending)
	}

	balances, err := service.BalanceSheet(ctx)
	if err != nil {
		t.Fatalf("BalanceSheet returned error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d balances, want 2", len(balances))
	}
	if balances[0].SiteID != siteA.ID || balances[0].Net != 5000 {
		t.Fatalf("balances[0] = %+v, want site A net 5000", balances[0])
	}
	if balances[1].SiteID != siteB.ID || balances[1].Net != -5000 {
		t.Fatalf("balances[1] = %+v, want site B net -5000", balances[1])
	}

	wantKeys := []string{"ledger.transfer.created", "ledger.transfer.settled"}
	if len(publisher.routingKeys) != len(wantKeys) {
		t.Fatalf("published routing keys = %v, want %v", publisher.routingKeys, wantKeys)
	}
	for i, key := range wantKeys {
		if publisher.routingKeys[i] != key {
			t.Fatalf("routing key[%d] = %q, want %q", i, publisher.routingKeys[i], key)
		}
	}
}

func TestListTransfersRejectsUnknownStatus(t *testing.T) {
	service := NewService(store.NewMemoryRepository(), nil, "backoffice.events", 25000, DefaultRateTolerance)

	_, err := service.ListTransfers(context.Background(), domain.TransferListOptions{Status: "reversed"})
	if !errors.Is(err, ErrInvalidStatusFilter) {
		t.Fatalf("got err %v, want %v", err, ErrInvalidStatusFilter)
	}
}
