package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// AuditHandler serves the audit log (admin only).
type AuditHandler struct {
	DB *sql.DB
}

const defaultAuditLimit = 100

// List handles GET /api/audit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AuditFilter{
		Resource:   q.Get("resource"),
		ResourceID: q.Get("resource_id"),
		Severity:   q.Get("severity"),
		Limit:      defaultAuditLimit,
	}

	actorID, err := queryID(r, "actor_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.ActorID = actorID

	since, err := queryTime(r, "since")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if since != nil {
		f.Since = *since
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}

	entries, err := store.ListAudit(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list audit log", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// recordFor hands an audit event attributed to the request's user to sink.
func recordFor(r *http.Request, sink audit.Sink, action, resource, resourceID string, details map[string]any) {
	a := actor(r)
	sink.Record(r.Context(), audit.Event{
		ActorID:     a.UserID,
		ActorBaseID: a.BaseID,
		Action:      action,
		Resource:    resource,
		ResourceID:  resourceID,
		Details:     details,
		At:          time.Now().UTC(),
	})
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
