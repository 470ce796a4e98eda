package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(domain.DateLayout, value, time.UTC)
	if err != nil {
		t.Fatalf("parse day %q: %v", value, err)
	}
	return d
}

func TestMemoryRepositorySiteNameNormalization(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	site := &domain.Site{ID: uuid.New(), Name: "  Hotel Jaguel  "}
	if err := repo.CreateSite(ctx, site); err != nil {
		t.Fatalf("CreateSite returned error: %v", err)
	}
	if site.Name != "Hotel Jaguel" {
		t.Fatalf("stored name = %q, want trimmed %q", site.Name, "Hotel Jaguel")
	}

	// Same name up to case and whitespace is a conflict.
	duplicate := &domain.Site{ID: uuid.New(), Name: "hotel jaguel"}
	if err := repo.CreateSite(ctx, duplicate); !errors.Is(err, ErrSiteNameTaken) {
		t.Fatalf("got err %v, want %v", err, ErrSiteNameTaken)
	}

	found, err := repo.FindSiteByName(ctx, " HOTEL JAGUEL ")
	if err != nil {
		t.Fatalf("FindSiteByName returned error: %v", err)
	}
	if found.ID != site.ID {
		t.Fatalf("found site %s, want %s", found.ID, site.ID)
	}
}

func TestMemoryRepositoryDuplicateAssignment(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	workerID := uuid.New()
	siteID := uuid.New()
	date := day(t, "2026-08-14")

	first := &domain.WorkAssignment{ID: uuid.New(), WorkerID: workerID, SiteID: siteID, Date: date, AllocatedRate: 10000}
	if err := repo.CreateAssignment(ctx, first); err != nil {
		t.Fatalf("CreateAssignment returned error: %v", err)
	}

	second := &domain.WorkAssignment{ID: uuid.New(), WorkerID: workerID, SiteID: siteID, Date: date, AllocatedRate: 10000}
	if err := repo.CreateAssignment(ctx, second); !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("got err %v, want %v", err, ErrDuplicateAssignment)
	}

	// Same site on a different day is fine.
	third := &domain.WorkAssignment{ID: uuid.New(), WorkerID: workerID, SiteID: siteID, Date: day(t, "2026-08-15"), AllocatedRate: 10000}
	if err := repo.CreateAssignment(ctx, third); err != nil {
		t.Fatalf("CreateAssignment on another day returned error: %v", err)
	}
}

func TestMemoryRepositoryListAssignmentsForWorkerDay(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	workerID := uuid.New()
	otherWorkerID := uuid.New()
	date := day(t, "2026-08-14")

	for _, a := range []*domain.WorkAssignment{
		{ID: uuid.New(), WorkerID: workerID, SiteID: uuid.New(), Date: date, AllocatedRate: 100},
		{ID: uuid.New(), WorkerID: workerID, SiteID: uuid.New(), Date: date, AllocatedRate: 200},
		{ID: uuid.New(), WorkerID: workerID, SiteID: uuid.New(), Date: day(t, "2026-08-15"), AllocatedRate: 300},
		{ID: uuid.New(), WorkerID: otherWorkerID, SiteID: uuid.New(), Date: date, AllocatedRate: 400},
	} {
		if err := repo.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment returned error: %v", err)
		}
	}

	group, err := repo.ListAssignmentsForWorkerDay(ctx, workerID, date)
	if err != nil {
		t.Fatalf("ListAssignmentsForWorkerDay returned error: %v", err)
	}
	if len(group) != 2 {
		t.Fatalf("got %d assignments, want 2", len(group))
	}
	for _, a := range group {
		if a.WorkerID != workerID {
			t.Fatalf("group contains assignment for worker %s", a.WorkerID)
		}
	}
}

func TestMemoryRepositoryAssignmentListFilters(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	workerID := uuid.New()
	siteID := uuid.New()

	for _, a := range []*domain.WorkAssignment{
		{ID: uuid.New(), WorkerID: workerID, SiteID: siteID, Date: day(t, "2026-08-10"), AllocatedRate: 100},
		{ID: uuid.New(), WorkerID: workerID, SiteID: uuid.New(), Date: day(t, "2026-08-12"), AllocatedRate: 200},
		{ID: uuid.New(), WorkerID: uuid.New(), SiteID: siteID, Date: day(t, "2026-08-20"), AllocatedRate: 300},
	} {
		if err := repo.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment returned error: %v", err)
		}
	}

	from := day(t, "2026-08-11")
	to := day(t, "2026-08-15")
	out, err := repo.ListAssignments(ctx, domain.AssignmentListOptions{WorkerID: &workerID, From: &from, To: &to})
	if err != nil {
		t.Fatalf("ListAssignments returned error: %v", err)
	}
	if len(out) != 1 || out[0].AllocatedRate != 200 {
		t.Fatalf("filtered assignments = %+v, want the single 2026-08-12 row", out)
	}
}

func TestMemoryRepositoryTransferStatusTransitions(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	record := &domain.TransferRecord{
		ID:                uuid.New(),
		OriginSiteID:      uuid.New(),
		DestinationSiteID: uuid.New(),
		Amount:            5000,
		Status:            domain.TransferStatusPending,
		Date:              day(t, "2026-08-14"),
	}
	if err := repo.CreateTransferRecord(ctx, record); err != nil {
		t.Fatalf("CreateTransferRecord returned error: %v", err)
	}

	settled, err := repo.UpdateTransferStatus(ctx, record.ID, domain.TransferStatusSettled)
	if err != nil {
		t.Fatalf("UpdateTransferStatus returned error: %v", err)
	}
	if settled.Status != domain.TransferStatusSettled {
		t.Fatalf("status = %q, want %q", settled.Status, domain.TransferStatusSettled)
	}

	// Only pending records may transition.
	if _, err := repo.UpdateTransferStatus(ctx, record.ID, domain.TransferStatusVoid); !errors.Is(err, ErrTransferNotPending) {
		t.Fatalf("got err %v, want %v", err, ErrTransferNotPending)
	}

	if _, err := repo.UpdateTransferStatus(ctx, uuid.New(), domain.TransferStatusVoid); !errors.Is(err, ErrTransferNotFound) {
		t.Fatalf("got err %v, want %v", err, ErrTransferNotFound)
	}
}

func TestMemoryRepositoryTransferFilters(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	pending := &domain.TransferRecord{
		ID: uuid.New(), OriginSiteID: uuid.New(), DestinationSiteID: uuid.New(),
		Amount: 100, Status: domain.TransferStatusPending, Date: day(t, "2026-08-10"),
	}
	void := &domain.TransferRecord{
		ID: uuid.New(), OriginSiteID: uuid.New(), DestinationSiteID: uuid.New(),
		Amount: 200, Status: domain.TransferStatusVoid, Date: day(t, "2026-08-12"),
	}
	for _, rec := range []*domain.TransferRecord{pending, void} {
		if err := repo.CreateTransferRecord(ctx, rec); err != nil {
			t.Fatalf("CreateTransferRecord returned error: %v", err)
		}
	}

	out, err := repo.ListTransferRecords(ctx, domain.TransferListOptions{Status: domain.TransferStatusPending})
	if err != nil {
		t.Fatalf("ListTransferRecords returned error: %v", err)
	}
	if len(out) != 1 || out[0].ID != pending.ID {
		t.Fatalf("filtered transfers = %+v, want the single pending record", out)
	}
}

func TestMemoryRepositoryUpdateWorker(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	worker := &domain.Worker{ID: uuid.New(), FullName: "Juan Perez", DailyRate: 30000, Active: true}
	if err := repo.CreateWorker(ctx, worker); err != nil {
		t.Fatalf("CreateWorker returned error: %v", err)
	}

	newRate := int64(32000)
	inactive := false
	updated, err := repo.UpdateWorker(ctx, worker.ID, domain.UpdateWorkerRequest{DailyRate: &newRate, Active: &inactive})
	if err != nil {
		t.Fatalf("UpdateWorker returned error: %v", err)
	}
	if updated.DailyRate != 32000 || updated.Active {
		t.Fatalf("updated worker = %+v, want rate 32000 and inactive", updated)
	}
	if updated.FullName != "Juan Perez" {
		t.Fatalf("untouched name changed to %q", updated.FullName)
	}

	active, err := repo.ListWorkers(ctx, true)
	if err != nil {
		t.Fatalf("ListWorkers returned error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active workers = %+v, want none", active)
	}
}
