/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the back-office service. By
 * defining an interface, the business logic stays decoupled from the specific
 * storage implementation (PostgreSQL in deployment, an in-memory store when no
 * database is configured, stubs in tests).
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

var (
	ErrSiteNotFound         = errors.New("site not found")
	ErrSiteNameTaken        = errors.New("site name already registered")
	ErrWorkerNotFound       = errors.New("worker not found")
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrDuplicateAssignment  = errors.New("worker already assigned to this site on this date")
	ErrTransferNotFound     = errors.New("transfer record not found")
	ErrTransferNotPending   = errors.New("transfer record is not pending")
)

// Repository defines the set of methods for interacting with the data store.
type Repository interface {
	// Site registry methods. Name lookups are normalized (trimmed,
	// case-insensitive) so free-text hotel names resolve to one id.
	CreateSite(ctx context.Context, site *domain.Site) error
	FindSiteByID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error)
	FindSiteByName(ctx context.Context, name string) (*domain.Site, error)
	ListSites(ctx context.Context) ([]domain.Site, error)

	// Worker methods
	CreateWorker(ctx context.Context, worker *domain.Worker) error
	FindWorkerByID(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error)
	ListWorkers(ctx context.Context, activeOnly bool) ([]domain.Worker, error)
	UpdateWorker(ctx context.Context, workerID uuid.UUID, update domain.UpdateWorkerRequest) (*domain.Worker, error)

	// Assignment methods
	CreateAssignment(ctx context.Context, assignment *domain.WorkAssignment) error
	FindAssignmentByID(ctx context.Context, assignmentID uuid.UUID) (*domain.WorkAssignment, error)
	ListAssignmentsForWorkerDay(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error)
	ListAssignments(ctx context.Context, opts domain.AssignmentListOptions) ([]domain.WorkAssignment, error)
	UpdateAssignmentRate(ctx context.Context, assignmentID uuid.UUID, newRate int64) error
	DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) error

	// Transfer ledger methods
	CreateTransferRecord(ctx context.Context, record *domain.TransferRecord) error
	FindTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.TransferRecord, error)
	ListTransferRecords(ctx context.Context, opts domain.TransferListOptions) ([]domain.TransferRecord, error)
	// UpdateTransferStatus transitions a pending record to `settled` or
	// `void`; any other starting state fails with ErrTransferNotPending.
	UpdateTransferStatus(ctx context.Context, transferID uuid.UUID, status string) (*domain.TransferRecord, error)
}
