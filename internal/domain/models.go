/**
 * @description
 * This file defines the core domain models for the back-office service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Monetary amounts are stored as `int64` in whole currency units. Daily rates
 *   in this domain are always whole pesos, which avoids floating-point
 *   inaccuracies with payroll and ledger data.
 * - Work dates carry day precision only; equality is by calendar day.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transfer record statuses. A record is never physically deleted; cancellation
// is soft-state via the `void` status.
const (
	TransferStatusPending = "pending"
	TransferStatusSettled = "settled"
	TransferStatusVoid    = "void"
)

// DateLayout is the wire format for work and transfer dates (day precision).
const DateLayout = "2006-01-02"

// Site represents one hotel/property participating in staffing and
// inter-property transfers. Free-text hotel names are normalized to this
// registry at the storage boundary so the core computations only ever compare
// opaque IDs.
type Site struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Worker is a payroll subject: a staff member assignable to sites with a fixed
// total compensation per day worked, regardless of how many sites were visited.
type Worker struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	DailyRate int64     `json:"daily_rate"` // whole currency units
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkAssignment records one worker's presence at one site on one date,
// carrying the share of the worker's daily rate attributed to that site.
// For a fixed (worker, date) every row should carry the even share of the
// worker's daily rate, and the rows together the even-split total; groups
// that do not are "drifted" and eligible for repair.
type WorkAssignment struct {
	ID            uuid.UUID `json:"id"`
	WorkerID      uuid.UUID `json:"worker_id"`
	SiteID        uuid.UUID `json:"site_id"`
	Date          time.Time `json:"date"`
	AllocatedRate int64     `json:"allocated_rate"`
	Note          *string   `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TransferRecord is one inter-site loan/transfer event: a directed movement of
// value from one site to another, tracked for later settlement.
type TransferRecord struct {
	ID                uuid.UUID `json:"id"`
	OriginSiteID      uuid.UUID `json:"origin_site_id"`
	DestinationSiteID uuid.UUID `json:"destination_site_id"`
	Amount            int64     `json:"amount"` // whole currency units, > 0
	Status            string    `json:"status"` // 'pending', 'settled', 'void'
	Date              time.Time `json:"date"`
	Description       *string   `json:"description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CounterpartyShare is one decomposed creditor/debtor relationship inside a
// SiteBalance: how much a single counterparty site owes (or is owed), and
// across how many transfer records that amount accumulated.
type CounterpartyShare struct {
	SiteID        uuid.UUID `json:"site_id"`
	Amount        int64     `json:"amount"`
	TransferCount int       `json:"transfer_count"`
}

// SiteBalance is a derived view of one site's position across all non-void
// transfers. It is owned transiently by the computation and never persisted;
// it is always recomputed from the transfer records to avoid drift.
type SiteBalance struct {
	SiteID               uuid.UUID           `json:"site_id"`
	GrossCredit          int64               `json:"gross_credit"` // sum of amounts where site is origin
	GrossDebit           int64               `json:"gross_debit"`  // sum of amounts where site is destination
	Net                  int64               `json:"net"`
	OwedByCounterparties []CounterpartyShare `json:"owed_by_counterparties"` // sites that owe this site
	OwedToCounterparties []CounterpartyShare `json:"owed_to_counterparties"` // sites this site owes
}

// AssignmentDelta describes how far one stored assignment share sits from the
// even-split expectation.
type AssignmentDelta struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	SiteID       uuid.UUID `json:"site_id"`
	CurrentRate  int64     `json:"current_rate"`
	ExpectedRate int64     `json:"expected_rate"`
	Delta        int64     `json:"delta"` // current - expected
}

// DriftReport is the diagnostic result for one (worker, date) assignment
// group. Drifted reports are a normal, expected computed result signaling that
// stored data disagrees with the even-split policy; they are surfaced as an
// actionable diagnostic, not an error.
type DriftReport struct {
	WorkerID      uuid.UUID         `json:"worker_id"`
	Date          time.Time         `json:"date"`
	Drifted       bool              `json:"drifted"`
	DailyRate     int64             `json:"daily_rate"`
	ExpectedShare int64             `json:"expected_share"`
	GroupTotal    int64             `json:"group_total"`
	Deltas        []AssignmentDelta `json:"deltas"`
}

// RateCorrection is one intended persistence action produced by a repair:
// set the assignment's allocated rate to NewRate.
type RateCorrection struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	NewRate      int64     `json:"new_rate"`
}

// RateCorrectionFailure captures a correction row that could not be persisted.
type RateCorrectionFailure struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	NewRate      int64     `json:"new_rate"`
	Error        string    `json:"error"`
}

// RepairResult summarizes a repair application. The correction set is always
// computed atomically in memory; only the per-row persistence step can
// partially fail, and those rows are reported here.
type RepairResult struct {
	WorkerID  uuid.UUID               `json:"worker_id"`
	Date      time.Time               `json:"date"`
	Applied   int                     `json:"applied"`
	Unchanged int                     `json:"unchanged"`
	Failed    []RateCorrectionFailure `json:"failed,omitempty"`
}

// CreateSiteRequest is the DTO for registering a new site.
type CreateSiteRequest struct {
	Name string `json:"name"`
}

// CreateWorkerRequest is the DTO for registering a new worker.
type CreateWorkerRequest struct {
	FullName  string `json:"full_name"`
	DailyRate int64  `json:"daily_rate"`
}

// UpdateWorkerRequest carries optional fields for a worker update.
type UpdateWorkerRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	DailyRate *int64  `json:"daily_rate,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

// ScheduleAssignmentRequest is the DTO for scheduling a worker to a site on a date.
type ScheduleAssignmentRequest struct {
	WorkerID uuid.UUID `json:"worker_id"`
	SiteID   uuid.UUID `json:"site_id"`
	Date     string    `json:"date"` // YYYY-MM-DD
	Note     *string   `json:"note,omitempty"`
}

// CreateTransferRequest is the DTO for recording a new inter-site transfer.
type CreateTransferRequest struct {
	OriginSiteID      uuid.UUID `json:"origin_site_id"`
	DestinationSiteID uuid.UUID `json:"destination_site_id"`
	Amount            int64     `json:"amount"`
	Date              string    `json:"date"` // YYYY-MM-DD
	Description       *string   `json:"description,omitempty"`
}

// RepairWorkerDayRequest identifies one (worker, date) group to repair.
type RepairWorkerDayRequest struct {
	WorkerID uuid.UUID `json:"worker_id"`
	Date     string    `json:"date"` // YYYY-MM-DD
}

// AssignmentListOptions filters assignment queries.
type AssignmentListOptions struct {
	WorkerID *uuid.UUID
	SiteID   *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// TransferListOptions filters transfer queries.
type TransferListOptions struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// DriftScanResult summarizes one scan over a date range.
type DriftScanResult struct {
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	GroupsScanned int           `json:"groups_scanned"`
	Drifted       []DriftReport `json:"drifted"`
}
