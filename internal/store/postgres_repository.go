/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL queries to interact with the database
 * tables for sites, workers, work assignments, and transfer records.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateSite inserts a new site registry row.
func (r *PostgresRepository) CreateSite(ctx context.Context, site *domain.Site) error {
	query := `
		INSERT INTO sites (id, name, created_at)
		VALUES ($1, btrim($2), now())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, site.ID, site.Name).Scan(&site.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSiteNameTaken
		}
		return fmt.Errorf("failed to create site: %w", err)
	}
	return nil
}

// FindSiteByID retrieves a site by its id.
func (r *PostgresRepository) FindSiteByID(ctx context.Context, siteID uuid.UUID) (*domain.Site, error) {
	var site domain.Site
	query := `SELECT id, name, created_at FROM sites WHERE id = $1`
	err := r.db.QueryRow(ctx, query, siteID).Scan(&site.ID, &site.Name, &site.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return &site, nil
}

// FindSiteByName resolves a free-text hotel name to its registry row. The
// comparison is trimmed and case-insensitive so legacy data keyed by name
// strings maps to a single site id.
func (r *PostgresRepository) FindSiteByName(ctx context.Context, name string) (*domain.Site, error) {
	var site domain.Site
	query := `SELECT id, name, created_at FROM sites WHERE lower(btrim(name)) = lower(btrim($1))`
	err := r.db.QueryRow(ctx, query, name).Scan(&site.ID, &site.Name, &site.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return &site, nil
}

// ListSites returns all registered sites ordered by name.
func (r *PostgresRepository) ListSites(ctx context.Context) ([]domain.Site, error) {
	query := `SELECT id, name, created_at FROM sites ORDER BY lower(name) ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		var site domain.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.CreatedAt); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// CreateWorker inserts a new worker row.
func (r *PostgresRepository) CreateWorker(ctx context.Context, worker *domain.Worker) error {
	query := `
		INSERT INTO workers (id, full_name, daily_rate, active, created_at, updated_at)
		VALUES ($1, btrim($2), $3, $4, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, worker.ID, worker.FullName, worker.DailyRate, worker.Active).
		Scan(&worker.CreatedAt, &worker.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	return nil
}

// FindWorkerByID retrieves a worker by id.
func (r *PostgresRepository) FindWorkerByID(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
	var worker domain.Worker
	query := `SELECT id, full_name, daily_rate, active, created_at, updated_at FROM workers WHERE id = $1`
	err := r.db.QueryRow(ctx, query, workerID).Scan(
		&worker.ID,
		&worker.FullName,
		&worker.DailyRate,
		&worker.Active,
		&worker.CreatedAt,
		&worker.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	return &worker, nil
}

// ListWorkers returns workers ordered by name, optionally only active ones.
func (r *PostgresRepository) ListWorkers(ctx context.Context, activeOnly bool) ([]domain.Worker, error) {
	query := `SELECT id, full_name, daily_rate, active, created_at, updated_at FROM workers`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY lower(full_name) ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []domain.Worker
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(&w.ID, &w.FullName, &w.DailyRate, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// UpdateWorker applies the non-nil fields of the update and returns the fresh row.
func (r *PostgresRepository) UpdateWorker(ctx context.Context, workerID uuid.UUID, update domain.UpdateWorkerRequest) (*domain.Worker, error) {
	query := `
		UPDATE workers
		SET full_name = COALESCE(btrim($2), full_name),
		    daily_rate = COALESCE($3, daily_rate),
		    active = COALESCE($4, active),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, full_name, daily_rate, active, created_at, updated_at
	`
	var worker domain.Worker
	err := r.db.QueryRow(ctx, query, workerID, update.FullName, update.DailyRate, update.Active).Scan(
		&worker.ID,
		&worker.FullName,
		&worker.DailyRate,
		&worker.Active,
		&worker.CreatedAt,
		&worker.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	return &worker, nil
}

// CreateAssignment inserts one worker/site/date row. The table carries a
// unique constraint on (worker_id, site_id, work_date) so the same site cannot
// be assigned twice for one day.
func (r *PostgresRepository) CreateAssignment(ctx context.Context, assignment *domain.WorkAssignment) error {
	query := `
		INSERT INTO work_assignments (id, worker_id, site_id, work_date, allocated_rate, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		assignment.ID,
		assignment.WorkerID,
		assignment.SiteID,
		assignment.Date,
		assignment.AllocatedRate,
		assignment.Note,
	).Scan(&assignment.CreatedAt, &assignment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// FindAssignmentByID retrieves one assignment row.
func (r *PostgresRepository) FindAssignmentByID(ctx context.Context, assignmentID uuid.UUID) (*domain.WorkAssignment, error) {
	var a domain.WorkAssignment
	query := `
		SELECT id, worker_id, site_id, work_date, allocated_rate, note, created_at, updated_at
		FROM work_assignments
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, assignmentID).Scan(
		&a.ID, &a.WorkerID, &a.SiteID, &a.Date, &a.AllocatedRate, &a.Note, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListAssignmentsForWorkerDay returns the full (worker, date) group, ordered
// by site id for deterministic processing.
func (r *PostgresRepository) ListAssignmentsForWorkerDay(ctx context.Context, workerID uuid.UUID, date time.Time) ([]domain.WorkAssignment, error) {
	query := `
		SELECT id, worker_id, site_id, work_date, allocated_rate, note, created_at, updated_at
		FROM work_assignments
		WHERE worker_id = $1 AND work_date = $2
		ORDER BY site_id ASC
	`
	rows, err := r.db.Query(ctx, query, workerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// ListAssignments returns assignments matching the filter, ordered by date
// then worker then site.
func (r *PostgresRepository) ListAssignments(ctx context.Context, opts domain.AssignmentListOptions) ([]domain.WorkAssignment, error) {
	query := `
		SELECT id, worker_id, site_id, work_date, allocated_rate, note, created_at, updated_at
		FROM work_assignments
		WHERE ($1::uuid IS NULL OR worker_id = $1)
		  AND ($2::uuid IS NULL OR site_id = $2)
		  AND ($3::date IS NULL OR work_date >= $3)
		  AND ($4::date IS NULL OR work_date <= $4)
		ORDER BY work_date ASC, worker_id ASC, site_id ASC
	`
	rows, err := r.db.Query(ctx, query, opts.WorkerID, opts.SiteID, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// UpdateAssignmentRate sets the allocated rate for one assignment row.
func (r *PostgresRepository) UpdateAssignmentRate(ctx context.Context, assignmentID uuid.UUID, newRate int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE work_assignments SET allocated_rate = $2, updated_at = now() WHERE id = $1`,
		assignmentID, newRate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// DeleteAssignment removes a cancelled assignment row.
func (r *PostgresRepository) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM work_assignments WHERE id = $1`, assignmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// CreateTransferRecord inserts a new inter-site transfer row.
func (r *PostgresRepository) CreateTransferRecord(ctx context.Context, record *domain.TransferRecord) error {
	query := `
		INSERT INTO transfer_records (id, origin_site_id, destination_site_id, amount, status, transfer_date, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		record.ID,
		record.OriginSiteID,
		record.DestinationSiteID,
		record.Amount,
		record.Status,
		record.Date,
		record.Description,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transfer record: %w", err)
	}
	return nil
}

// FindTransferByID retrieves one transfer record.
func (r *PostgresRepository) FindTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.TransferRecord, error) {
	var rec domain.TransferRecord
	query := `
		SELECT id, origin_site_id, destination_site_id, amount, status, transfer_date, description, created_at, updated_at
		FROM transfer_records
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, transferID).Scan(
		&rec.ID, &rec.OriginSiteID, &rec.DestinationSiteID, &rec.Amount,
		&rec.Status, &rec.Date, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListTransferRecords returns transfers matching the filter, newest first.
func (r *PostgresRepository) ListTransferRecords(ctx context.Context, opts domain.TransferListOptions) ([]domain.TransferRecord, error) {
	query := `
		SELECT id, origin_site_id, destination_site_id, amount, status, transfer_date, description, created_at, updated_at
		FROM transfer_records
		WHERE ($1 = '' OR status = $1)
		  AND ($2::date IS NULL OR transfer_date >= $2)
		  AND ($3::date IS NULL OR transfer_date <= $3)
		ORDER BY transfer_date DESC, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, opts.Status, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TransferRecord
	for rows.Next() {
		var rec domain.TransferRecord
		if err := rows.Scan(
			&rec.ID, &rec.OriginSiteID, &rec.DestinationSiteID, &rec.Amount,
			&rec.Status, &rec.Date, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateTransferStatus transitions a pending record to the given status. The
// WHERE clause guards the transition so a settled or void record is never
// mutated again.
func (r *PostgresRepository) UpdateTransferStatus(ctx context.Context, transferID uuid.UUID, status string) (*domain.TransferRecord, error) {
	query := `
		UPDATE transfer_records
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, origin_site_id, destination_site_id, amount, status, transfer_date, description, created_at, updated_at
	`
	var rec domain.TransferRecord
	err := r.db.QueryRow(ctx, query, transferID, status).Scan(
		&rec.ID, &rec.OriginSiteID, &rec.DestinationSiteID, &rec.Amount,
		&rec.Status, &rec.Date, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish a missing record from a non-pending one.
			if _, findErr := r.FindTransferByID(ctx, transferID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrTransferNotPending
		}
		return nil, err
	}
	return &rec, nil
}

func scanAssignments(rows pgx.Rows) ([]domain.WorkAssignment, error) {
	var assignments []domain.WorkAssignment
	for rows.Next() {
		var a domain.WorkAssignment
		if err := rows.Scan(
			&a.ID, &a.WorkerID, &a.SiteID, &a.Date, &a.AllocatedRate, &a.Note, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
