package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// PurchasesHandler handles purchase endpoints.
type PurchasesHandler struct {
	Ledger *ledger.Ledger
}

type approvePurchaseRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type receivePurchaseRequest struct {
	DeliveryDate *time.Time `json:"delivery_date"`
	Notes        string     `json:"notes"`
}

type receivePurchaseResponse struct {
	Purchase *model.Purchase `json:"purchase"`
	Assets   []model.Asset   `json:"assets"`
}

// List handles GET /api/purchases.
func (h *PurchasesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.PurchaseFilter{Status: q.Get("status"), AssetType: q.Get("asset_type")}
	var err error
	if f.BaseID, err = queryID(r, "base_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	purchases, err := h.Ledger.ListPurchases(r.Context(), actor(r), f)
	if err != nil {
		writeLedgerError(w, err, "list purchases")
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	jsonResponse(w, http.StatusOK, purchases)
}

// Create handles POST /api/purchases.
func (h *PurchasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.NewPurchase
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Ledger.CreatePurchase(r.Context(), actor(r), req)
	if err != nil {
		writeLedgerError(w, err, "create purchase")
		return
	}

	slog.Info("purchase created", "user", GetClaims(r.Context()).Username, "purchase", p.Code, "total", p.TotalAmount)
	jsonResponse(w, http.StatusCreated, p)
}

// Get handles GET /api/purchases/{id}.
func (h *PurchasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	p, err := h.Ledger.GetPurchase(r.Context(), actor(r), id)
	if err != nil {
		writeLedgerError(w, err, "get purchase")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// Update handles PUT /api/purchases/{id}.
func (h *PurchasesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	var req ledger.PurchaseUpdate
	if err := decodeStrict(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Ledger.UpdatePurchase(r.Context(), actor(r), id, req)
	if err != nil {
		writeLedgerError(w, err, "update purchase")
		return
	}

	slog.Info("purchase updated", "user", GetClaims(r.Context()).Username, "purchase", p.Code)
	jsonResponse(w, http.StatusOK, p)
}

// Approve handles POST /api/purchases/{id}/approve. The status is either
// approved or cancelled.
func (h *PurchasesHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	req := approvePurchaseRequest{Status: model.PurchaseStatusApproved}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	p, err := h.Ledger.ApprovePurchase(r.Context(), actor(r), id, req.Status, req.Notes)
	if err != nil {
		writeLedgerError(w, err, "approve purchase")
		return
	}

	slog.Info("purchase "+p.Status, "user", GetClaims(r.Context()).Username, "purchase", p.Code)
	jsonResponse(w, http.StatusOK, p)
}

// Receive handles POST /api/purchases/{id}/receive.
func (h *PurchasesHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	var req receivePurchaseRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	p, assets, err := h.Ledger.ReceivePurchase(r.Context(), actor(r), id, req.DeliveryDate, req.Notes)
	if err != nil {
		writeLedgerError(w, err, "receive purchase")
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}

	slog.Info("purchase received", "user", GetClaims(r.Context()).Username, "purchase", p.Code, "assets", len(assets))
	jsonResponse(w, http.StatusOK, receivePurchaseResponse{Purchase: p, Assets: assets})
}

// Delete handles DELETE /api/purchases/{id}.
func (h *PurchasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	if err := h.Ledger.DeletePurchase(r.Context(), actor(r), id); err != nil {
		writeLedgerError(w, err, "delete purchase")
		return
	}

	slog.Info("purchase deleted", "user", GetClaims(r.Context()).Username, "purchase_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "purchase deleted"})
}
