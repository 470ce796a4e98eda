/**
 * @description
 * In-memory implementation of the `Repository` interface, used when no
 * DATABASE_URL is configured. It mirrors the behavior of the PostgreSQL
 * implementation (normalized site-name lookup, duplicate-assignment guard,
 * pending-only transfer transitions) so the rest of the service is oblivious
 * to which store is backing it. Data lives for the lifetime of the process.
 */

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

// MemoryRepository is a mutex-guarded map-backed Repository.
type MemoryRepository struct {
	mu          sync.RWMutex
	sites       map[uuid.UUID]domain.Site
	workers     map[uuid.UUID]domain.Worker
	assignments map[uuid.UUID]domain.WorkAssignment
	transfers   map[uuid.UUID]domain.TransferRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sites:       make(map[uuid.UUID]domain.Site),
		workers:     make(map[uuid.UUID]domain.Worker),
		assignments: make(map[uuid.UUID]domain.WorkAssignment),
		transfers:   make(map[uuid.UUID]domain.TransferRecord),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sameDay(a, b time.Time) bool {
	return a.Format(domain.DateLayout) == b.Format(domain.DateLayout)
}

func (r *MemoryRepository) CreateSite(ctx context.Context, site *domain.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sites {
		if normalizeName(existing.Name) == normalizeName(site.Name) {
			return ErrSiteNameTaken
		}
	}
	site.Name = strings.TrimSpace(site.Name)
	site.CreatedAt = time.Now().UTC()
	r.sites[site.ID] = *site
	return nil
}

func (r *MemoryRepository) FindSiteByID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, ok := r.sites[siteID]
	if !ok {
		return nil, ErrSiteNotFound
	}
	return &site, nil
}

func (r *MemoryRepository) FindSiteByName(ctx context.Context, name string) (*domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, site := range r.sites {
		if normalizeName(site.Name) == normalizeName(name) {
			found := site
			return &found, nil
		}
	}
	return nil, ErrSiteNotFound
}

func (r *MemoryRepository) ListSites(ctx context.Context) ([]domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sites := make([]domain.Site, 0, len(r.sites))
	for _, site := range r.sites {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool {
		return normalizeName(sites[i].Name) < normalizeName(sites[j].Name)
	})
	return sites, nil
}

func (r *MemoryRepository) CreateWorker(ctx context.Context, worker *domain.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	worker.FullName = strings.TrimSpace(worker.FullName)
	worker.CreatedAt = now
	worker.UpdatedAt = now
	r.workers[worker.ID] = *worker
	return nil
}

func (r *MemoryRepository) FindWorkerByID(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	worker, ok := r.workers[workerID]
	if !ok {
		return nil, ErrWorkerNotFound
	}
	return &worker, nil
}

func (r *MemoryRepository) ListWorkers(ctx context.Context, activeOnly bool) ([]domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make([]domain.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		if activeOnly && !w.Active {
			continue
		}
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool {
		return normalizeName(workers[i].FullName) < normalizeName(workers[j].FullName)
	})
	return workers, nil
}

func (r *MemoryRepository) UpdateWorker(ctx context.Context, workerID uuid.UUID, update domain.UpdateWorkerRequest) (*domain.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	worker, ok := r.workers[workerID]
	if !ok {
		return nil, ErrWorkerNotFound
	}
	if update.FullName != nil {
		worker.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.DailyRate != nil {
		worker.DailyRate = *update.DailyRate
	}
	if update.Active != nil {
		worker.Active = *update.Active
	}
	worker.UpdatedAt = time.Now().UTC()
	r.workers[workerID] = worker
	return &worker, nil
}

func (r *MemoryRepository) CreateAssignment(ctx context.Context, assignment *domain.WorkAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.assignments {
		if existing.WorkerID == assignment.WorkerID &&
			existing.SiteID == assignment.SiteID &&
			sameDay(existing.Date, assignment.Date) {
			return ErrDuplicateAssignment
		}
	}

	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *MemoryRepository) FindAssignmentByID(ctx context.Context, assignmentID uuid.UUID) (*domain.WorkAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assignment, ok := r.assignments[assignmentID]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return &assignment, nil
}

func (r *MemoryRepository) ListAssignmentsForWorkerDay(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var group []domain.WorkAssignment
	for _, a := range r.assignments {
		if a.WorkerID == workerID && sameDay(a.Date, date) {
			group = append(group, a)
		}
	}
	sort.Slice(group, func(i, j int) bool {
		return group[i].SiteID.String() < group[j].SiteID.String()
	})
	return group, nil
}

func (r *MemoryRepository) ListAssignments(ctx context.Context, opts domain.AssignmentListOptions) ([]domain.WorkAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.WorkAssignment
	for _, a := range r.assignments {
		if opts.WorkerID != nil && a.WorkerID != *opts.WorkerID {
			continue
		}
		if opts.SiteID != nil && a.SiteID != *opts.SiteID {
			continue
		}
		if opts.From != nil && a.Date.Before(*opts.From) {
			continue
		}
		if opts.To != nil && a.Date.After(*opts.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].WorkerID != out[j].WorkerID {
			return out[i].WorkerID.String() < out[j].WorkerID.String()
		}
		return out[i].SiteID.String() < out[j].SiteID.String()
	})
	return out, nil
}

func (r *MemoryRepository) UpdateAssignmentRate(ctx context.Context, assignmentID uuid.UUID, newRate int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	assignment, ok := r.assignments[assignmentID]
	if !ok {
		return ErrAssignmentNotFound
	}
	assignment.AllocatedRate = newRate
	assignment.UpdatedAt = time.Now().UTC()
	r.assignments[assignmentID] = assignment
	return nil
}

func (r *MemoryRepository) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assignments[assignmentID]; !ok {
		return ErrAssignmentNotFound
	}
	delete(r.assignments, assignmentID)
	return nil
}

func (r *MemoryRepository) CreateTransferRecord(ctx context.Context, record *domain.TransferRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	r.transfers[record.ID] = *record
	return nil
}

func (r *MemoryRepository) FindTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.TransferRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.transfers[transferID]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) ListTransferRecords(ctx context.Context, opts domain.TransferListOptions) ([]domain.TransferRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.TransferRecord
	for _, rec := range r.transfers {
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		if opts.From != nil && rec.Date.Before(*opts.From) {
			continue
		}
		if opts.To != nil && rec.Date.After(*opts.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateTransferStatus(ctx context.Context, transferID uuid.UUID, status string) (*domain.TransferRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.transfers[transferID]
	if !ok {
		return nil, ErrTransferNotFound
	}
	if rec.Status != domain.TransferStatusPending {
		return nil, ErrTransferNotPending
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	r.transfers[transferID] = rec
	return &rec, nil
}
