package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/arsenal/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Error codes carried in the "code" field of every error response. Clients
// branch on the code; the message is for people.
const (
	CodeValidation   = "validation"
	CodeUnauthorized = "unauthorized"
	CodeAccessDenied = "access_denied"
	CodeNotFound     = "not_found"
	CodeInvalidState = "invalid_state"
	CodeConflict     = "conflict"
	CodeTooLarge     = "too_large"
	CodeInternal     = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// jsonError writes a JSON error response with the default code for status.
func jsonError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, codeFor(status), message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Code: code})
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeAccessDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestEntityTooLarge:
		return CodeTooLarge
	}
	return CodeInternal
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeStrict is decodeJSON that rejects fields the target does not have.
func decodeStrict(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// writeLedgerError maps a ledger error to a status code and error code and
// writes it. An invalid state and a lost race share 409 but not the code.
// Internal errors are logged and hidden from the client.
func writeLedgerError(w http.ResponseWriter, err error, doing string) {
	var status int
	var code string
	switch {
	case errors.Is(err, model.ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, model.ErrValidation):
		status, code = http.StatusBadRequest, CodeValidation
	case errors.Is(err, model.ErrInvalidState):
		status, code = http.StatusConflict, CodeInvalidState
	case errors.Is(err, model.ErrConflict):
		status, code = http.StatusConflict, CodeConflict
	case errors.Is(err, model.ErrAccessDenied):
		status, code = http.StatusForbidden, CodeAccessDenied
	default:
		slog.Error("failed to "+doing, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to "+doing)
		return
	}
	writeError(w, status, code, err.Error())
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter.
func queryID(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryTime parses an optional RFC 3339 or date-only query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s", name)
}
