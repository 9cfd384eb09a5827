package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// BasesHandler handles base endpoints.
type BasesHandler struct {
	Ledger *ledger.Ledger
}

type baseRequest struct {
	Name     string         `json:"name"`
	Location model.Location `json:"location"`
	Status   string         `json:"status"`
}

// List handles GET /api/bases.
func (h *BasesHandler) List(w http.ResponseWriter, r *http.Request) {
	bases, err := store.ListBases(r.Context(), h.Ledger.DB)
	if err != nil {
		slog.Error("failed to list bases", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list bases")
		return
	}
	if bases == nil {
		bases = []model.Base{}
	}
	jsonResponse(w, http.StatusOK, bases)
}

// Create handles POST /api/bases.
func (h *BasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	base, err := store.CreateBase(r.Context(), h.Ledger.DB, req.Name, req.Location)
	if errors.Is(err, model.ErrConflict) {
		jsonError(w, http.StatusConflict, "base name already exists")
		return
	}
	if err != nil {
		slog.Error("failed to create base", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create base")
		return
	}

	recordFor(r, h.Ledger.Audit, audit.ActionBaseCreated, model.ResourceBase, idString(base.ID),
		map[string]any{"name": base.Name})
	slog.Info("base created", "user", GetClaims(r.Context()).Username, "base", base.Name)
	jsonResponse(w, http.StatusCreated, base)
}

// Get handles GET /api/bases/{id}.
func (h *BasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid base id")
		return
	}

	base, err := store.GetBase(r.Context(), h.Ledger.DB, id)
	if err != nil {
		slog.Error("failed to get base", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get base")
		return
	}
	if base == nil {
		jsonError(w, http.StatusNotFound, "base not found")
		return
	}
	jsonResponse(w, http.StatusOK, base)
}

// Update handles PUT /api/bases/{id}.
func (h *BasesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid base id")
		return
	}

	var req baseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	base, err := store.GetBase(r.Context(), h.Ledger.DB, id)
	if err != nil {
		slog.Error("failed to get base", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update base")
		return
	}
	if base == nil {
		jsonError(w, http.StatusNotFound, "base not found")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		base.Name = name
	}
	if req.Location != (model.Location{}) {
		base.Location = req.Location
	}
	if req.Status != "" {
		if !model.ValidBaseStatus(req.Status) {
			jsonError(w, http.StatusBadRequest, "invalid status")
			return
		}
		base.Status = req.Status
	}

	err = store.UpdateBase(r.Context(), h.Ledger.DB, id, base.Name, base.Location, base.Status)
	if errors.Is(err, model.ErrConflict) {
		jsonError(w, http.StatusConflict, "base name already exists")
		return
	}
	if err != nil {
		slog.Error("failed to update base", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update base")
		return
	}

	recordFor(r, h.Ledger.Audit, audit.ActionBaseUpdated, model.ResourceBase, idString(id),
		map[string]any{"name": base.Name, "status": base.Status})
	slog.Info("base updated", "user", GetClaims(r.Context()).Username, "base", base.Name)
	jsonResponse(w, http.StatusOK, base)
}

// Summary handles GET /api/bases/{id}/summary?from=&to=&type=.
func (h *BasesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid base id")
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := store.SummaryFilter{AssetType: r.URL.Query().Get("type"), From: from, To: to}
	summary, err := h.Ledger.BaseSummary(r.Context(), actor(r), id, f)
	if err != nil {
		writeLedgerError(w, err, "summarize base")
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}
