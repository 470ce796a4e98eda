/**
 * @description
 * This file contains the HTTP handlers for the inter-site transfer ledger:
 * recording transfers, moving them through their lifecycle, and producing the
 * netted balance sheet.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/app"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
	"github.com/ncannata93/stockhdlc-sub001/internal/store"
)

// CreateTransferHandler records a pending transfer between two sites.
func (h *BackofficeHandlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	record, err := h.service.CreateTransfer(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSiteNotFound):
			h.writeError(w, http.StatusNotFound, "Site not found")
		case errors.Is(err, app.ErrMissingSite),
			errors.Is(err, app.ErrSameSiteTransfer),
			errors.Is(err, app.ErrNonPositiveAmount),
			errors.Is(err, app.ErrInvalidDate):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=create_transfer err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=create_transfer outcome=recorded transfer_id=%s from=%s to=%s amount=%d",
		record.ID, record.OriginSiteID, record.DestinationSiteID, record.Amount)
	h.writeJSON(w, http.StatusCreated, record)
}

// ListTransfersHandler returns transfers filtered by status and date range.
func (h *BackofficeHandlers) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	opts := domain.TransferListOptions{Status: r.URL.Query().Get("status")}

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

	records, err := h.service.ListTransfers(r.Context(), opts)
	if err != nil {
		if errors.Is(err, app.ErrInvalidStatusFilter) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=list_transfers err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if records == nil {
		records = []domain.TransferRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

// SettleTransferHandler marks a pending transfer as settled.
func (h *BackofficeHandlers) SettleTransferHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionTransfer(w, r, "settle_transfer", h.service.SettleTransfer)
}

// VoidTransferHandler marks a pending transfer as void, excluding it from netting.
func (h *BackofficeHandlers) VoidTransferHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionTransfer(w, r, "void_transfer", h.service.VoidTransfer)
}

func (h *BackofficeHandlers) transitionTransfer(
	w http.ResponseWriter,
	r *http.Request,
	endpoint string,
	transition func(ctx context.Context, transferID uuid.UUID) (*domain.TransferRecord, error),
) {
	transferID, ok := h.parsePathUUID(w, r, "transferID")
	if !ok {
		return
	}

	record, err := transition(r.Context(), transferID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTransferNotFound):
			h.writeError(w, http.StatusNotFound, "Transfer not found")
		case errors.Is(err, store.ErrTransferNotPending):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("level=error component=api endpoint=%s transfer_id=%s err=%v", endpoint, transferID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=%s outcome=done transfer_id=%s status=%s", endpoint, record.ID, record.Status)
	h.writeJSON(w, http.StatusOK, record)
}

// BalanceSheetHandler returns the netted per-site balance sheet.
func (h *BackofficeHandlers) BalanceSheetHandler(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.BalanceSheet(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=balance_sheet err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if balances == nil {
		balances = []domain.SiteBalance{}
	}
	h.writeJSON(w, http.StatusOK, balances)
}
