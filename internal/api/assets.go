package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/arsenal/internal/imaging"
	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
	"github.com/erazemk/arsenal/internal/store"
)

// AssetsHandler handles asset registry endpoints.
type AssetsHandler struct {
	Ledger *ledger.Ledger
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// List handles GET /api/assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AssetFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}
	var err error
	if f.BaseID, err = queryID(r, "base_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.CustodianID, err = queryID(r, "custodian_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.PurchaseID, err = queryID(r, "purchase_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	assets, err := h.Ledger.ListAssets(r.Context(), actor(r), f)
	if err != nil {
		writeLedgerError(w, err, "list assets")
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	jsonResponse(w, http.StatusOK, assets)
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	asset, err := h.Ledger.GetAsset(r.Context(), actor(r), id)
	if err != nil {
		writeLedgerError(w, err, "get asset")
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// GetByCode handles GET /api/assets/code/{code}.
func (h *AssetsHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	asset, err := h.Ledger.GetAssetByCode(r.Context(), actor(r), r.PathValue("code"))
	if err != nil {
		writeLedgerError(w, err, "get asset")
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Maintenance handles POST /api/assets/{id}/maintenance.
func (h *AssetsHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "send asset to maintenance", "asset sent to maintenance", h.Ledger.SendToMaintenance)
}

// Restore handles POST /api/assets/{id}/restore.
func (h *AssetsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "return asset from maintenance", "asset returned from maintenance", h.Ledger.ReturnFromMaintenance)
}

// Decommission handles POST /api/assets/{id}/decommission.
func (h *AssetsHandler) Decommission(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "decommission asset", "asset decommissioned", h.Ledger.Decommission)
}

func (h *AssetsHandler) transition(w http.ResponseWriter, r *http.Request, doing, logMsg string,
	apply func(context.Context, policy.Actor, int64, string) (*model.Asset, error),
) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req notesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	asset, err := apply(r.Context(), actor(r), id, req.Notes)
	if err != nil {
		writeLedgerError(w, err, doing)
		return
	}

	slog.Info(logMsg, "user", GetClaims(r.Context()).Username, "asset", asset.Code)
	jsonResponse(w, http.StatusOK, asset)
}

// UploadPhoto handles PUT /api/assets/{id}/photo. The photo is either the
// "photo" field of a multipart form or the raw request body.
func (h *AssetsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("photo")
		if err != nil {
			jsonError(w, http.StatusBadRequest, "missing photo file")
			return
		}
		defer file.Close()
		src = file
	}

	data, err := imaging.ReadUpload(src)
	if errors.Is(err, imaging.ErrUnsupported) {
		jsonError(w, http.StatusRequestEntityTooLarge, "photo too large")
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read photo")
		return
	}

	asset, err := h.Ledger.SetAssetPhoto(r.Context(), actor(r), id, data)
	if err != nil {
		writeLedgerError(w, err, "store photo")
		return
	}

	slog.Info("asset photo updated", "user", GetClaims(r.Context()).Username, "asset", asset.Code)
	jsonResponse(w, http.StatusOK, asset)
}

// GetPhoto handles GET /api/assets/{id}/photo.
func (h *AssetsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	data, mime, err := h.Ledger.GetAssetPhoto(r.Context(), actor(r), id)
	if err != nil {
		writeLedgerError(w, err, "get photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
