/**
 * @description
 * This file sets up the HTTP router for the back-office service. It defines the
 * API endpoints, associates them with their corresponding handlers, and applies
 * any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the staff console origin.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BackofficeRoutes creates and returns a new router for the back-office service.
func BackofficeRoutes(h *BackofficeHandlers, jwtSecret, internalAPIKey string, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-Api-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require staff authentication.
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(jwtSecret))

		// Site registry
		r.Post("/sites", h.CreateSiteHandler)
		r.Get("/sites", h.ListSitesHandler)

		// Worker registry
		r.Post("/workers", h.CreateWorkerHandler)
		r.Get("/workers", h.ListWorkersHandler)
		r.Get("/workers/{workerID}", h.GetWorkerHandler)
		r.Put("/workers/{workerID}", h.UpdateWorkerHandler)

		// Daily assignments
		r.Post("/assignments", h.ScheduleAssignmentHandler)
		r.Get("/assignments", h.ListAssignmentsHandler)
		r.Delete("/assignments/{assignmentID}", h.CancelAssignmentHandler)

		// Payroll drift inspection and repair
		r.Get("/payroll/drift", h.DriftScanHandler)
		r.Get("/payroll/drift/{workerID}/{date}", h.WorkerDayDriftHandler)
		r.Post("/payroll/repair", h.RepairWorkerDayHandler)

		// Inter-site transfer ledger
		r.Post("/transfers", h.CreateTransferHandler)
		r.Get("/transfers", h.ListTransfersHandler)
		r.Post("/transfers/{transferID}/settle", h.SettleTransferHandler)
		r.Post("/transfers/{transferID}/void", h.VoidTransferHandler)
		r.Get("/balances", h.BalanceSheetHandler)
	})

	// Internal endpoints, called by operational tooling rather than staff.
	r.Group(func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		r.Post("/internal/drift-scan", h.InternalDriftScanHandler)
	})

	return r
}
