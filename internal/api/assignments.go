package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// AssignmentsHandler handles assignment endpoints.
type AssignmentsHandler struct {
	Ledger *ledger.Ledger
}

type closeAssignmentRequest struct {
	Outcome string `json:"outcome"`
	ledger.Return
}

// List handles GET /api/assignments.
func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.AssignmentFilter{Status: r.URL.Query().Get("status")}
	var err error
	if f.BaseID, err = queryID(r, "base_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.AssigneeID, err = queryID(r, "assignee_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.AssetID, err = queryID(r, "asset_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignments, err := h.Ledger.ListAssignments(r.Context(), actor(r), f)
	if err != nil {
		writeLedgerError(w, err, "list assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	jsonResponse(w, http.StatusOK, assignments)
}

// Assignees handles GET /api/assignments/assignees.
func (h *AssignmentsHandler) Assignees(w http.ResponseWriter, r *http.Request) {
	baseID, err := queryID(r, "base_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.Ledger.Assignees(r.Context(), actor(r), baseID)
	if err != nil {
		writeLedgerError(w, err, "list assignees")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/assignments.
func (h *AssignmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.NewAssignment
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Ledger.CreateAssignment(r.Context(), actor(r), req)
	if err != nil {
		writeLedgerError(w, err, "assign asset")
		return
	}

	slog.Info("asset assigned",
		"user", GetClaims(r.Context()).Username,
		"assignment", a.Code,
		"asset_id", a.AssetID,
		"assignee", a.AssigneeID,
	)
	jsonResponse(w, http.StatusCreated, a)
}

// Get handles GET /api/assignments/{id}.
func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	a, err := h.Ledger.GetAssignment(r.Context(), actor(r), id)
	if err != nil {
		writeLedgerError(w, err, "get assignment")
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// Update handles PUT /api/assignments/{id}. Only the descriptive fields of
// an active assignment can change; anything else is rejected.
func (h *AssignmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var req ledger.AssignmentUpdate
	if err := decodeStrict(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Ledger.UpdateAssignment(r.Context(), actor(r), id, req)
	if err != nil {
		writeLedgerError(w, err, "update assignment")
		return
	}

	slog.Info("assignment updated", "user", GetClaims(r.Context()).Username, "assignment", a.Code)
	jsonResponse(w, http.StatusOK, a)
}

// Return handles POST /api/assignments/{id}/return.
func (h *AssignmentsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var req ledger.Return
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Ledger.ReturnAsset(r.Context(), actor(r), id, req)
	if err != nil {
		writeLedgerError(w, err, "return asset")
		return
	}

	slog.Info("asset returned", "user", GetClaims(r.Context()).Username, "assignment", a.Code, "condition", req.Condition)
	jsonResponse(w, http.StatusOK, a)
}

// Expend handles POST /api/assignments/{id}/expend.
func (h *AssignmentsHandler) Expend(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var req ledger.Expend
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Ledger.ExpendAsset(r.Context(), actor(r), id, req)
	if err != nil {
		writeLedgerError(w, err, "expend asset")
		return
	}

	slog.Warn("asset expended", "user", GetClaims(r.Context()).Username, "assignment", a.Code, "reason", req.Reason)
	jsonResponse(w, http.StatusOK, a)
}

// Close handles POST /api/assignments/{id}/close with outcome lost or
// damaged.
func (h *AssignmentsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	var req closeAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Ledger.CloseAssignment(r.Context(), actor(r), id, req.Outcome, req.Return)
	if err != nil {
		writeLedgerError(w, err, "close assignment")
		return
	}

	slog.Warn("asset "+a.Status, "user", GetClaims(r.Context()).Username, "assignment", a.Code)
	jsonResponse(w, http.StatusOK, a)
}
