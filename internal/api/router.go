package api

import (
	"net/http"

	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(l *ledger.Ledger, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: l.DB, Audit: l.Audit, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: l.DB, Audit: l.Audit}
	basesHandler := &BasesHandler{Ledger: l}
	assetsHandler := &AssetsHandler{Ledger: l}
	purchasesHandler := &PurchasesHandler{Ledger: l}
	transfersHandler := &TransfersHandler{Ledger: l}
	assignmentsHandler := &AssignmentsHandler{Ledger: l}
	auditHandler := &AuditHandler{DB: l.DB}

	authMW := AuthMiddleware(jwtSecret, l.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireCommander := RequireRole(model.RoleCommander)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Bases: read (all roles), write (admin).
	mux.Handle("GET /api/bases", authMW(http.HandlerFunc(basesHandler.List)))
	mux.Handle("POST /api/bases", authMW(requireAdmin(http.HandlerFunc(basesHandler.Create))))
	mux.Handle("GET /api/bases/{id}", authMW(http.HandlerFunc(basesHandler.Get)))
	mux.Handle("PUT /api/bases/{id}", authMW(requireAdmin(http.HandlerFunc(basesHandler.Update))))
	mux.Handle("GET /api/bases/{id}/summary", authMW(http.HandlerFunc(basesHandler.Summary)))

	// Assets: the ledger scopes reads to the caller's base.
	mux.Handle("GET /api/assets", authMW(http.HandlerFunc(assetsHandler.List)))
	mux.Handle("GET /api/assets/{id}", authMW(http.HandlerFunc(assetsHandler.Get)))
	mux.Handle("GET /api/assets/code/{code}", authMW(http.HandlerFunc(assetsHandler.GetByCode)))
	mux.Handle("POST /api/assets/{id}/maintenance", authMW(requireCommander(http.HandlerFunc(assetsHandler.Maintenance))))
	mux.Handle("POST /api/assets/{id}/restore", authMW(requireCommander(http.HandlerFunc(assetsHandler.Restore))))
	mux.Handle("POST /api/assets/{id}/decommission", authMW(requireCommander(http.HandlerFunc(assetsHandler.Decommission))))
	mux.Handle("PUT /api/assets/{id}/photo", authMW(http.HandlerFunc(assetsHandler.UploadPhoto)))
	mux.Handle("GET /api/assets/{id}/photo", authMW(http.HandlerFunc(assetsHandler.GetPhoto)))

	// Purchases.
	mux.Handle("GET /api/purchases", authMW(http.HandlerFunc(purchasesHandler.List)))
	mux.Handle("POST /api/purchases", authMW(http.HandlerFunc(purchasesHandler.Create)))
	mux.Handle("GET /api/purchases/{id}", authMW(http.HandlerFunc(purchasesHandler.Get)))
	mux.Handle("PUT /api/purchases/{id}", authMW(http.HandlerFunc(purchasesHandler.Update)))
	mux.Handle("POST /api/purchases/{id}/approve", authMW(requireCommander(http.HandlerFunc(purchasesHandler.Approve))))
	mux.Handle("POST /api/purchases/{id}/receive", authMW(requireCommander(http.HandlerFunc(purchasesHandler.Receive))))
	mux.Handle("DELETE /api/purchases/{id}", authMW(requireAdmin(http.HandlerFunc(purchasesHandler.Delete))))

	// Transfers.
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("POST /api/transfers", authMW(http.HandlerFunc(transfersHandler.Create)))
	mux.Handle("GET /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("POST /api/transfers/{id}/approve", authMW(requireCommander(http.HandlerFunc(transfersHandler.Approve))))
	mux.Handle("POST /api/transfers/{id}/depart", authMW(requireCommander(http.HandlerFunc(transfersHandler.Depart))))
	mux.Handle("POST /api/transfers/{id}/complete", authMW(requireCommander(http.HandlerFunc(transfersHandler.Complete))))
	mux.Handle("POST /api/transfers/{id}/cancel", authMW(requireCommander(http.HandlerFunc(transfersHandler.Cancel))))
	mux.Handle("POST /api/transfers/{id}/fail", authMW(requireCommander(http.HandlerFunc(transfersHandler.Fail))))

	// Assignments.
	mux.Handle("GET /api/assignments", authMW(http.HandlerFunc(assignmentsHandler.List)))
	mux.Handle("POST /api/assignments", authMW(http.HandlerFunc(assignmentsHandler.Create)))
	mux.Handle("GET /api/assignments/assignees", authMW(http.HandlerFunc(assignmentsHandler.Assignees)))
	mux.Handle("GET /api/assignments/{id}", authMW(http.HandlerFunc(assignmentsHandler.Get)))
	mux.Handle("PUT /api/assignments/{id}", authMW(http.HandlerFunc(assignmentsHandler.Update)))
	mux.Handle("POST /api/assignments/{id}/return", authMW(http.HandlerFunc(assignmentsHandler.Return)))
	mux.Handle("POST /api/assignments/{id}/expend", authMW(http.HandlerFunc(assignmentsHandler.Expend)))
	mux.Handle("POST /api/assignments/{id}/close", authMW(http.HandlerFunc(assignmentsHandler.Close)))

	// Audit log (admin, read only).
	mux.Handle("GET /api/audit", authMW(requireAdmin(http.HandlerFunc(auditHandler.List))))

	return mux
}
