/**
 * @description
 * This file contains the HTTP handlers for the back-office staffing and
 * payroll endpoints. Handlers are responsible for parsing incoming requests,
 * calling the appropriate methods on the application service, and writing the
 * HTTP response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/app"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
	"github.com/ncannata93/stockhdlc-sub001/internal/store"
)

// BackofficeHandlers holds the application service that handlers will use.
type BackofficeHandlers struct {
	service *app.Service
}

// NewBackofficeHandlers creates a new instance of BackofficeHandlers.
func NewBackofficeHandlers(service *app.Service) *BackofficeHandlers {
	return &BackofficeHandlers{service: service}
}

func (h *BackofficeHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *BackofficeHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// parsePathUUID reads one UUID URL parameter, writing a 400 on failure.
func (h *BackofficeHandlers) parsePathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %q", param, raw))
		return uuid.Nil, false
	}
	return id, true
}

// CreateSiteHandler registers a new hotel/site.
func (h *BackofficeHandlers) CreateSiteHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	site, err := h.service.CreateSite(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidSiteName) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, store.ErrSiteNameTaken) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=create_site err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusCreated, site)
}

// ListSitesHandler returns the site registry.
func (h *BackofficeHandlers) ListSitesHandler(w http.ResponseWriter, r *http.Request) {
	sites, err := h.service.ListSites(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=list_sites err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if sites == nil {
		sites = []domain.Site{}
	}
	h.writeJSON(w, http.StatusOK, sites)
}

// CreateWorkerHandler registers a new payroll subject.
func (h *BackofficeHandlers) CreateWorkerHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	worker, err := h.service.CreateWorker(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidWorkerName) || errors.Is(err, app.ErrNegativeRate) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=create_worker err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusCreated, worker)
}

// ListWorkersHandler returns workers; ?active=true restricts to active ones.
func (h *BackofficeHandlers) ListWorkersHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := strings.EqualFold(r.URL.Query().Get("active"), "true")
	workers, err := h.service.ListWorkers(r.Context(), activeOnly)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_workers err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if workers == nil {
		workers = []domain.Worker{}
	}
	h.writeJSON(w, http.StatusOK, workers)
}

// GetWorkerHandler returns one worker.
func (h *BackofficeHandlers) GetWorkerHandler(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.parsePathUUID(w, r, "workerID")
	if !ok {
		return
	}
	worker, err := h.service.GetWorker(r.Context(), workerID)
	if err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			h.writeError(w, http.StatusNotFound, "Worker not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_worker worker_id=%s err=%v", workerID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, worker)
}

// UpdateWorkerHandler applies a partial worker update.
func (h *BackofficeHandlers) UpdateWorkerHandler(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.parsePathUUID(w, r, "workerID")
	if !ok {
		return
	}

	var req domain.UpdateWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	worker, err := h.service.UpdateWorker(r.Context(), workerID, req)
	if err != nil {
		if errors.Is(err, store.ErrWorkerNotFound) {
			h.writeError(w, http.StatusNotFound, "Worker not found")
			return
		}
		if errors.Is(err, app.ErrInvalidWorkerName) || errors.Is(err, app.ErrNegativeRate) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=update_worker worker_id=%s err=%v", workerID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, worker)
}

// ScheduleAssignmentHandler assigns a worker to a site on a date.
func (h *BackofficeHandlers) ScheduleAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ScheduleAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	assignment, err := h.service.ScheduleAssignment(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrWorkerNotFound):
			h.writeError(w, http.StatusNotFound, "Worker not found")
		case errors.Is(err, store.ErrSiteNotFound):
			h.writeError(w, http.StatusNotFound, "Site not found")
		case errors.Is(err, store.ErrDuplicateAssignment):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrInvalidDate), errors.Is(err, app.ErrWorkerInactive):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=schedule_assignment err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=schedule_assignment outcome=accepted worker_id=%s site_id=%s date=%s",
		assignment.WorkerID, assignment.SiteID, req.Date)
	h.writeJSON(w, http.StatusCreated, assignment)
}

// ListAssignmentsHandler returns assignments filtered by worker/site/date range.
func (h *BackofficeHandlers) ListAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	var opts domain.AssignmentListOptions

	if raw := r.URL.Query().Get("worker_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid worker_id: %q", raw))
			return
		}
		opts.WorkerID = &id
	}
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid site_id: %q", raw))
			return
		}
		opts.SiteID = &id
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		day, err := app.ParseDay(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.From = &day
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		day, err := app.ParseDay(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.To = &day
	}

	assignments, err := h.service.ListAssignments(r.Context(), opts)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_assignments err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if assignments == nil {
		assignments = []domain.WorkAssignment{}
	}
	h.writeJSON(w, http.StatusOK, assignments)
}

// CancelAssignmentHandler removes one assignment and rebalances its group.
func (h *BackofficeHandlers) CancelAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := h.parsePathUUID(w, r, "assignmentID")
	if !ok {
		return
	}

	if err := h.service.CancelAssignment(r.Context(), assignmentID); err != nil {
		if errors.Is(err, store.ErrAssignmentNotFound) {
			h.writeError(w, http.StatusNotFound, "Assignment not found")
			return
		}
		log.Printf("level=error component=api endpoint=cancel_assignment assignment_id=%s err=%v", assignmentID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// DriftScanHandler reports drifted (worker, date) groups inside a date range.
func (h *BackofficeHandlers) DriftScanHandler(w http.ResponseWriter, r *http.Request) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" || toRaw == "" {
		h.writeError(w, http.StatusBadRequest, "Query parameters 'from' and 'to' are required (YYYY-MM-DD)")
		return
	}
	from, err := app.ParseDay(fromRaw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := app.ParseDay(toRaw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ScanDrift(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, app.ErrInvalidDate) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=drift_scan err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// WorkerDayDriftHandler reports drift for one (worker, date) group.
func (h *BackofficeHandlers) WorkerDayDriftHandler(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.parsePathUUID(w, r, "workerID")
	if !ok {
		return
	}
	date, err := app.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.InspectWorkerDay(r.Context(), workerID, date)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrWorkerNotFound):
			h.writeError(w, http.StatusNotFound, "Worker not found")
		case errors.Is(err, app.ErrNothingToRepair):
			h.writeError(w, http.StatusNotFound, "No assignments for worker and date")
		default:
			log.Printf("level=error component=api endpoint=worker_day_drift worker_id=%s err=%v", workerID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// RepairWorkerDayHandler applies the even-split correction to one group.
func (h *BackofficeHandlers) RepairWorkerDayHandler(w http.ResponseWriter, r *http.Request) {
	staffID, ok := GetStaffID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get staff ID from context")
		return
	}

	var req domain.RepairWorkerDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	date, err := app.ParseDay(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.RepairWorkerDay(r.Context(), staffID, req.WorkerID, date)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrWorkerNotFound):
			h.writeError(w, http.StatusNotFound, "Worker not found")
		case errors.Is(err, app.ErrNothingToRepair):
			h.writeError(w, http.StatusNotFound, "No assignments for worker and date")
		case errors.Is(err, app.ErrRepairRateLimited):
			h.writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			log.Printf("level=error component=api endpoint=repair_worker_day worker_id=%s err=%v", req.WorkerID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=repair_worker_day outcome=done staff_id=%s worker_id=%s date=%s applied=%d failed=%d",
		staffID, req.WorkerID, req.Date, result.Applied, len(result.Failed))

	h.writeJSON(w, http.StatusOK, result)
}

// InternalDriftScanHandler triggers the trailing-window scan on demand. It sits
// behind the internal API key, mirroring the scheduled nightly job.
func (h *BackofficeHandlers) InternalDriftScanHandler(w http.ResponseWriter, r *http.Request) {
	windowDays := 0
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid window_days: %q", raw))
			return
		}
		windowDays = parsed
	}

	result, err := h.service.ScanRecentDrift(r.Context(), windowDays)
	if err != nil {
		log.Printf("level=error component=api endpoint=internal_drift_scan err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
