package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB    *sql.DB
	Audit audit.Sink
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Rank     string `json:"rank"`
	Role     string `json:"role"`
	BaseID   *int64 `json:"base_id"`
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Rank   *string `json:"rank"`
	Role   *string `json:"role"`
	BaseID *int64  `json:"base_id"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// checkAssignment verifies that a role and base fit together: admins may
// float, everyone else belongs to an existing base.
func (h *UsersHandler) checkAssignment(ctx context.Context, role string, baseID *int64) (string, error) {
	if !model.ValidRole(role) {
		return "invalid role", nil
	}
	if baseID == nil || *baseID == 0 {
		if role != model.RoleAdmin {
			return "base_id required for role " + role, nil
		}
		return "", nil
	}
	b, err := store.GetBase(ctx, h.DB, *baseID)
	if err != nil {
		return "", err
	}
	if b == nil {
		return fmt.Sprintf("base %d not found", *baseID), nil
	}
	return "", nil
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	baseID, err := queryID(r, "base_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := store.ListUsers(r.Context(), h.DB, baseID)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "username, password, and role required")
		return
	}

	problem, err := h.checkAssignment(r.Context(), req.Role, req.BaseID)
	if err != nil {
		slog.Error("failed to check base", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if problem != "" {
		jsonError(w, http.StatusBadRequest, problem)
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	u := &model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Rank:         req.Rank,
		Role:         req.Role,
	}
	if req.BaseID != nil && *req.BaseID > 0 {
		u.BaseID = req.BaseID
	}

	user, err := store.CreateUser(r.Context(), h.DB, u)
	if errors.Is(err, model.ErrConflict) {
		jsonError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	recordFor(r, h.Audit, audit.ActionUserCreated, model.ResourceUser, idString(user.ID),
		map[string]any{"username": user.Username, "role": user.Role})
	claims := GetClaims(r.Context())
	slog.Info("user created", "user", claims.Username, "new_user", req.Username, "role", req.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeStrict(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Rank != nil {
		user.Rank = *req.Rank
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.BaseID != nil {
		user.BaseID = req.BaseID
		if *req.BaseID == 0 {
			user.BaseID = nil
		}
	}

	problem, err := h.checkAssignment(r.Context(), user.Role, user.BaseID)
	if err != nil {
		slog.Error("failed to check base", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if problem != "" {
		jsonError(w, http.StatusBadRequest, problem)
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, user); err != nil {
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	recordFor(r, h.Audit, audit.ActionUserUpdated, model.ResourceUser, idString(id),
		map[string]any{"role": user.Role, "base_id": user.HomeBase()})
	claims := GetClaims(r.Context())
	slog.Info("user updated", "user", claims.Username, "target_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password required")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		slog.Error("failed to reset password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	recordFor(r, h.Audit, audit.ActionUserUpdated, model.ResourceUser, idString(id),
		map[string]any{"field": "password"})
	claims := GetClaims(r.Context())
	slog.Info("user password reset", "user", claims.Username, "target_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Prevent self-deletion.
	claims := GetClaims(r.Context())
	if claims != nil && claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	active, err := store.ListAssignments(r.Context(), h.DB, store.AssignmentFilter{
		AssigneeID: id,
		Status:     model.AssignmentStatusActive,
	})
	if err != nil {
		slog.Error("failed to check assignments", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if len(active) > 0 {
		writeError(w, http.StatusConflict, CodeInvalidState, fmt.Sprintf("user holds %d assigned assets", len(active)))
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	recordFor(r, h.Audit, audit.ActionUserDeleted, model.ResourceUser, idString(id),
		map[string]any{"username": target.Username})
	slog.Info("user deleted", "user", claims.Username, "deleted_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
