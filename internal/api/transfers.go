package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// TransfersHandler handles transfer endpoints.
type TransfersHandler struct {
	Ledger *ledger.Ledger
}

type decisionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type completeTransferRequest struct {
	ActualArrival *time.Time `json:"actual_arrival"`
	Notes         string     `json:"notes"`
}

type cancelTransferRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TransferFilter{Status: q.Get("status"), Priority: q.Get("priority")}
	var err error
	if f.BaseID, err = queryID(r, "base_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.AssetID, err = queryID(r, "asset_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfers, err := h.Ledger.ListTransfers(r.Context(), actor(r), f)
	if err != nil {
		writeLedgerError(w, err, "list transfers")
		return
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.NewTransfer
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Ledger.CreateTransfer(r.Context(), actor(r), req)
	if err != nil {
		writeLedgerError(w, err, "create transfer")
		return
	}

	slog.Info("transfer requested",
		"user", GetClaims(r.Context()).Username,
		"transfer", t.Code,
		"from", t.FromBaseID,
		"to", t.ToBaseID,
		"assets", len(t.Lines),
	)
	jsonResponse(w, http.StatusCreated, t)
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	t, err := h.Ledger.GetTransfer(r.Context(), actor(r), id)
	if err != nil {
		writeLedgerError(w, err, "get transfer")
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Approve handles POST /api/transfers/{id}/approve. The status is either
// approved or rejected.
func (h *TransfersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	req := decisionRequest{Status: model.TransferStatusApproved}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	t, err := h.Ledger.ApproveTransfer(r.Context(), actor(r), id, req.Status, req.Notes)
	if err != nil {
		writeLedgerError(w, err, "approve transfer")
		return
	}

	slog.Info("transfer "+t.Status, "user", GetClaims(r.Context()).Username, "transfer", t.Code)
	jsonResponse(w, http.StatusOK, t)
}

// Depart handles POST /api/transfers/{id}/depart.
func (h *TransfersHandler) Depart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req ledger.Departure
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	t, err := h.Ledger.DepartTransfer(r.Context(), actor(r), id, req)
	if err != nil {
		writeLedgerError(w, err, "depart transfer")
		return
	}

	slog.Info("transfer departed", "user", GetClaims(r.Context()).Username, "transfer", t.Code)
	jsonResponse(w, http.StatusOK, t)
}

// Complete handles POST /api/transfers/{id}/complete.
func (h *TransfersHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req completeTransferRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	t, err := h.Ledger.CompleteTransfer(r.Context(), actor(r), id, req.ActualArrival, req.Notes)
	if err != nil {
		writeLedgerError(w, err, "complete transfer")
		return
	}

	slog.Info("transfer completed", "user", GetClaims(r.Context()).Username, "transfer", t.Code, "assets", len(t.Lines))
	jsonResponse(w, http.StatusOK, t)
}

// Cancel handles POST /api/transfers/{id}/cancel.
func (h *TransfersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req cancelTransferRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	t, err := h.Ledger.CancelTransfer(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		writeLedgerError(w, err, "cancel transfer")
		return
	}

	slog.Info("transfer cancelled", "user", GetClaims(r.Context()).Username, "transfer", t.Code)
	jsonResponse(w, http.StatusOK, t)
}

// Fail handles POST /api/transfers/{id}/fail.
func (h *TransfersHandler) Fail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req cancelTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Ledger.FailTransfer(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		writeLedgerError(w, err, "fail transfer")
		return
	}

	slog.Warn("transfer failed", "user", GetClaims(r.Context()).Username, "transfer", t.Code, "reason", req.Reason)
	jsonResponse(w, http.StatusOK, t)
}
