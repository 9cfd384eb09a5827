package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/auth"
	"github.com/erazemk/arsenal/internal/db"
	"github.com/erazemk/arsenal/internal/ids"
	"github.com/erazemk/arsenal/internal/ledger"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

const testJWTSecret = "test-secret"

const testPassword = "password123"

// syncSink writes audit events straight to the store so tests can read
// them back without waiting on a queue.
type syncSink struct {
	w audit.StoreWriter
}

func (s syncSink) Record(ctx context.Context, e audit.Event) {
	s.w.Write(ctx, e.Entry())
}

type testServer struct {
	*httptest.Server
	db    *sql.DB
	admin string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	l := ledger.New(database, &ids.Sequence{}, syncSink{audit.StoreWriter{DB: database}})
	l.DirectCompletion = true
	server := httptest.NewServer(NewRouter(l, testJWTSecret))
	t.Cleanup(server.Close)

	ts := &testServer{Server: server, db: database}
	ts.createUser(t, "admin", model.RoleAdmin, nil)
	ts.admin = ts.login(t, "admin", testPassword)
	return ts
}

func (ts *testServer) createUser(t *testing.T, username, role string, baseID *int64) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	u, err := store.CreateUser(context.Background(), ts.db, &model.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		BaseID:       baseID,
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

// base creates a base through the API and returns its ID.
func (ts *testServer) base(t *testing.T, name string) int64 {
	t.Helper()
	var b model.Base
	ts.expect(t, "POST", "/api/bases", ts.admin, map[string]any{
		"name":     name,
		"location": map[string]string{"city": name, "country": "SI"},
	}, http.StatusCreated, &b)
	return b.ID
}

// staff creates a user at baseID and logs them in.
func (ts *testServer) staff(t *testing.T, username, role string, baseID int64) (*model.User, string) {
	t.Helper()
	u := ts.createUser(t, username, role, &baseID)
	return u, ts.login(t, username, testPassword)
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// expect sends a request, checks the status and decodes the body into out
// when out is non-nil.
func (ts *testServer) expect(t *testing.T, method, path, token string, body any, status int, out any) {
	t.Helper()
	req, err := authRequest(method, ts.URL+path, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
}

func purchaseBody(baseID int64, qty int) map[string]any {
	return map[string]any{
		"base_id": baseID,
		"items": []map[string]any{{
			"asset_type": model.AssetTypeWeapon,
			"category":   "rifle",
			"name":       "Rifle",
			"quantity":   qty,
			"unit_cost":  "1200.50",
		}},
		"supplier":     map[string]string{"name": "Acme Defence"},
		"order_number": "ORD-7",
	}
}

// stock buys, approves and receives qty rifles at baseID as token's user.
func (ts *testServer) stock(t *testing.T, token string, baseID int64, qty int) []model.Asset {
	t.Helper()
	var p model.Purchase
	ts.expect(t, "POST", "/api/purchases", token, purchaseBody(baseID, qty), http.StatusCreated, &p)
	ts.expect(t, "POST", fmt.Sprintf("/api/purchases/%d/approve", p.ID), token, nil, http.StatusOK, nil)

	var received receivePurchaseResponse
	ts.expect(t, "POST", fmt.Sprintf("/api/purchases/%d/receive", p.ID), token, nil, http.StatusOK, &received)
	return received.Assets
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Test missing fields.
	body, _ = json.Marshal(map[string]string{"username": "admin"})
	resp, _ = http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	claims, err := auth.ValidateToken(testJWTSecret, ts.admin)
	if err != nil {
		t.Fatalf("validating login token: %v", err)
	}
	if claims.Role != model.RoleAdmin || claims.BaseID != 0 {
		t.Errorf("unexpected claims: role=%s base=%d", claims.Role, claims.BaseID)
	}

	entries, _ := store.ListAudit(context.Background(), ts.db, store.AuditFilter{})
	if len(entries) != 1 || entries[0].Action != audit.ActionLogin {
		t.Errorf("expected one login audit entry, got %+v", entries)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.login(t, "admin", testPassword)

	ts.expect(t, "GET", "/api/bases", token, nil, http.StatusOK, nil)
	ts.expect(t, "POST", "/api/auth/logout", token, nil, http.StatusOK, nil)
	ts.expect(t, "GET", "/api/bases", token, nil, http.StatusUnauthorized, nil)

	// Other sessions of the same user are unaffected.
	ts.expect(t, "GET", "/api/bases", ts.admin, nil, http.StatusOK, nil)
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)

	ts.expect(t, "PUT", "/api/auth/password", ts.admin, map[string]string{
		"current_password": "wrong-password",
		"new_password":     "new-password-1",
	}, http.StatusUnauthorized, nil)

	ts.expect(t, "PUT", "/api/auth/password", ts.admin, map[string]string{
		"current_password": testPassword,
		"new_password":     "short",
	}, http.StatusBadRequest, nil)

	ts.expect(t, "PUT", "/api/auth/password", ts.admin, map[string]string{
		"current_password": testPassword,
		"new_password":     "new-password-1",
	}, http.StatusOK, nil)

	ts.login(t, "admin", "new-password-1")
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	resp, _ := http.Get(ts.URL + "/api/assets")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	ts.expect(t, "GET", "/api/assets", "not-a-token", nil, http.StatusUnauthorized, nil)
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	_, officer := ts.staff(t, "officer", model.RoleOfficer, alpha)

	// Officers cannot manage users.
	ts.expect(t, "GET", "/api/users", officer, nil, http.StatusForbidden, nil)

	// Officers may request purchases but not approve them.
	var p model.Purchase
	ts.expect(t, "POST", "/api/purchases", officer, purchaseBody(alpha, 1), http.StatusCreated, &p)
	ts.expect(t, "POST", fmt.Sprintf("/api/purchases/%d/approve", p.ID), officer, nil, http.StatusForbidden, nil)

	// Only admins create bases.
	ts.expect(t, "POST", "/api/bases", officer, map[string]string{"name": "Rogue"}, http.StatusForbidden, nil)
}

func TestUsersAPI(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")

	ts.expect(t, "POST", "/api/users", ts.admin, map[string]any{
		"username": "cmd", "password": testPassword, "role": model.RoleCommander,
	}, http.StatusBadRequest, nil)

	ts.expect(t, "POST", "/api/users", ts.admin, map[string]any{
		"username": "cmd", "password": testPassword, "role": model.RoleCommander, "base_id": 999,
	}, http.StatusBadRequest, nil)

	var u model.User
	ts.expect(t, "POST", "/api/users", ts.admin, map[string]any{
		"username": "cmd", "password": testPassword, "role": model.RoleCommander,
		"base_id": alpha, "name": "Ana Novak", "rank": "Major",
	}, http.StatusCreated, &u)
	if u.HomeBase() != alpha || u.Rank != "Major" {
		t.Errorf("unexpected user %+v", u)
	}

	ts.expect(t, "POST", "/api/users", ts.admin, map[string]any{
		"username": "cmd", "password": testPassword, "role": model.RoleOfficer, "base_id": alpha,
	}, http.StatusConflict, nil)

	var updated model.User
	ts.expect(t, "PUT", fmt.Sprintf("/api/users/%d", u.ID), ts.admin, map[string]any{
		"role": model.RoleOfficer,
	}, http.StatusOK, &updated)
	if updated.Role != model.RoleOfficer || updated.Name != "Ana Novak" {
		t.Errorf("update changed the wrong fields: %+v", updated)
	}

	var users []model.User
	ts.expect(t, "GET", fmt.Sprintf("/api/users?base_id=%d", alpha), ts.admin, nil, http.StatusOK, &users)
	if len(users) != 1 {
		t.Errorf("expected 1 user at base, got %d", len(users))
	}

	admin, _ := store.GetUserByUsername(context.Background(), ts.db, "admin")
	ts.expect(t, "DELETE", fmt.Sprintf("/api/users/%d", admin.ID), ts.admin, nil, http.StatusBadRequest, nil)
	ts.expect(t, "DELETE", fmt.Sprintf("/api/users/%d", u.ID), ts.admin, nil, http.StatusOK, nil)
	ts.expect(t, "GET", fmt.Sprintf("/api/users/%d", u.ID), ts.admin, nil, http.StatusNotFound, nil)

	entries, _ := store.ListAudit(context.Background(), ts.db, store.AuditFilter{Resource: model.ResourceUser, ResourceID: fmt.Sprint(u.ID)})
	if len(entries) != 3 {
		t.Fatalf("expected create, update and delete entries, got %d", len(entries))
	}
	if entries[0].Action != audit.ActionUserDeleted || entries[0].Severity != model.SeverityCritical {
		t.Errorf("unexpected newest entry %+v", entries[0])
	}
}

func TestPurchaseToAssignmentFlow(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	_, commander := ts.staff(t, "cmd-alpha", model.RoleCommander, alpha)
	officer, officerToken := ts.staff(t, "off-alpha", model.RoleOfficer, alpha)

	assets := ts.stock(t, commander, alpha, 2)
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if assets[0].Provenance.UnitCost.String() != "1200.5" {
		t.Errorf("unexpected provenance cost %s", assets[0].Provenance.UnitCost)
	}

	var listed []model.Asset
	ts.expect(t, "GET", "/api/assets?status=available", officerToken, nil, http.StatusOK, &listed)
	if len(listed) != 2 {
		t.Errorf("expected 2 available assets, got %d", len(listed))
	}

	var a model.Assignment
	ts.expect(t, "POST", "/api/assignments", officerToken, map[string]any{
		"asset_id":    assets[0].ID,
		"assignee_id": officer.ID,
		"purpose":     "range qualification",
	}, http.StatusCreated, &a)

	// The asset is no longer available.
	ts.expect(t, "POST", "/api/assignments", officerToken, map[string]any{
		"asset_id":    assets[0].ID,
		"assignee_id": officer.ID,
	}, http.StatusConflict, nil)

	// Only descriptive fields can be updated.
	ts.expect(t, "PUT", fmt.Sprintf("/api/assignments/%d", a.ID), officerToken, map[string]any{
		"status": model.AssignmentStatusReturned,
	}, http.StatusBadRequest, nil)
	ts.expect(t, "PUT", fmt.Sprintf("/api/assignments/%d", a.ID), officerToken, map[string]any{
		"purpose": "field exercise",
	}, http.StatusOK, nil)

	var returned model.Assignment
	ts.expect(t, "POST", fmt.Sprintf("/api/assignments/%d/return", a.ID), officerToken, map[string]any{
		"condition_returned": model.ConditionGood,
	}, http.StatusOK, &returned)
	if returned.Status != model.AssignmentStatusReturned {
		t.Errorf("expected returned, got %s", returned.Status)
	}

	var asset model.Asset
	ts.expect(t, "GET", fmt.Sprintf("/api/assets/%d", assets[0].ID), officerToken, nil, http.StatusOK, &asset)
	if asset.Status != model.AssetStatusAvailable || asset.CustodianID != nil {
		t.Errorf("expected asset available without custodian, got %s", asset.Status)
	}

	var entries []model.AuditEntry
	ts.expect(t, "GET", "/api/audit?resource=assignment", ts.admin, nil, http.StatusOK, &entries)
	if len(entries) != 3 {
		t.Errorf("expected assigned, updated and returned entries, got %d", len(entries))
	}
	ts.expect(t, "GET", "/api/audit", officerToken, nil, http.StatusForbidden, nil)
}

func TestTransferFlow(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	bravo := ts.base(t, "Bravo")
	_, cmdA := ts.staff(t, "cmd-alpha", model.RoleCommander, alpha)
	_, cmdB := ts.staff(t, "cmd-bravo", model.RoleCommander, bravo)

	assets := ts.stock(t, cmdA, alpha, 1)

	var tr model.Transfer
	ts.expect(t, "POST", "/api/transfers", cmdA, map[string]any{
		"from_base_id": alpha,
		"to_base_id":   bravo,
		"assets":       []map[string]any{{"asset_id": assets[0].ID}},
		"reason":       "redeployment",
	}, http.StatusCreated, &tr)

	// Bravo cannot complete before approval.
	ts.expect(t, "POST", fmt.Sprintf("/api/transfers/%d/complete", tr.ID), cmdB, nil, http.StatusConflict, nil)

	ts.expect(t, "POST", fmt.Sprintf("/api/transfers/%d/approve", tr.ID), cmdA, nil, http.StatusOK, nil)

	// Only the receiving base completes.
	ts.expect(t, "POST", fmt.Sprintf("/api/transfers/%d/complete", tr.ID), cmdA, nil, http.StatusForbidden, nil)

	var done model.Transfer
	ts.expect(t, "POST", fmt.Sprintf("/api/transfers/%d/complete", tr.ID), cmdB, map[string]any{
		"notes": "received in good order",
	}, http.StatusOK, &done)
	if done.Status != model.TransferStatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}

	var moved model.Asset
	ts.expect(t, "GET", fmt.Sprintf("/api/assets/%d", assets[0].ID), cmdB, nil, http.StatusOK, &moved)
	if moved.BaseID != bravo {
		t.Errorf("expected asset at bravo, got base %d", moved.BaseID)
	}
	ts.expect(t, "GET", fmt.Sprintf("/api/assets/%d", assets[0].ID), cmdA, nil, http.StatusForbidden, nil)

	var byCode model.Asset
	ts.expect(t, "GET", "/api/assets/code/"+assets[0].Code, cmdB, nil, http.StatusOK, &byCode)
	if byCode.ID != assets[0].ID {
		t.Errorf("expected asset %d by code, got %d", assets[0].ID, byCode.ID)
	}
	ts.expect(t, "GET", "/api/assets/code/"+assets[0].Code, cmdA, nil, http.StatusForbidden, nil)
	ts.expect(t, "GET", "/api/assets/code/NOPE-1", cmdB, nil, http.StatusNotFound, nil)

	var summary model.BaseSummary
	ts.expect(t, "GET", fmt.Sprintf("/api/bases/%d/summary", bravo), cmdB, nil, http.StatusOK, &summary)
	if summary.TransferredIn != 1 {
		t.Errorf("expected 1 transferred in, got %d", summary.TransferredIn)
	}
	if summary.OpeningBalance != 0 || summary.ClosingBalance != 1 {
		t.Errorf("expected balances 0 -> 1, got %d -> %d", summary.OpeningBalance, summary.ClosingBalance)
	}
	if m := summary.MovementByType[model.AssetTypeWeapon]; m.TransferredIn != 1 {
		t.Errorf("expected one weapon transferred in, got %+v", m)
	}

	var vehicles model.BaseSummary
	ts.expect(t, "GET", fmt.Sprintf("/api/bases/%d/summary?type=vehicle", bravo), cmdB, nil, http.StatusOK, &vehicles)
	if vehicles.ClosingBalance != 0 || vehicles.TransferredIn != 0 {
		t.Errorf("expected no vehicles at bravo, got %+v", vehicles)
	}
	ts.expect(t, "GET", fmt.Sprintf("/api/bases/%d/summary?type=spaceship", bravo), cmdB, nil, http.StatusBadRequest, nil)
	ts.expect(t, "GET", fmt.Sprintf("/api/bases/%d/summary?from=nonsense", bravo), cmdB, nil, http.StatusBadRequest, nil)
}

func TestTransferHoldAndFailure(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	bravo := ts.base(t, "Bravo")
	officer, _ := ts.staff(t, "off-alpha", model.RoleOfficer, alpha)
	_, cmdA := ts.staff(t, "cmd-alpha", model.RoleCommander, alpha)
	_, cmdB := ts.staff(t, "cmd-bravo", model.RoleCommander, bravo)
	assets := ts.stock(t, cmdA, alpha, 1)

	var tr model.Transfer
	ts.expect(t, "POST", "/api/transfers", cmdA, map[string]any{
		"from_base_id": alpha,
		"to_base_id":   bravo,
		"assets":       []map[string]any{{"asset_id": assets[0].ID}},
	}, http.StatusCreated, &tr)

	var held errorResponse
	ts.expect(t, "POST", "/api/assignments", cmdA, map[string]any{
		"asset_id":    assets[0].ID,
		"assignee_id": officer.ID,
	}, http.StatusConflict, &held)
	if held.Code != CodeInvalidState {
		t.Errorf("expected invalid_state for a held asset, got %q", held.Code)
	}

	path := fmt.Sprintf("/api/transfers/%d", tr.ID)
	ts.expect(t, "POST", path+"/approve", cmdA, nil, http.StatusOK, nil)
	ts.expect(t, "POST", path+"/depart", cmdA, map[string]any{"carrier": "Convoy 7"}, http.StatusOK, nil)
	ts.expect(t, "POST", path+"/cancel", cmdA, nil, http.StatusConflict, nil)
	ts.expect(t, "POST", path+"/fail", cmdB, map[string]any{}, http.StatusBadRequest, nil)

	var failed model.Transfer
	ts.expect(t, "POST", path+"/fail", cmdB, map[string]any{"reason": "lost at sea"}, http.StatusOK, &failed)
	if failed.Status != model.TransferStatusFailed {
		t.Errorf("expected failed, got %s", failed.Status)
	}

	ts.expect(t, "POST", "/api/assignments", cmdA, map[string]any{
		"asset_id":    assets[0].ID,
		"assignee_id": officer.ID,
	}, http.StatusCreated, nil)
}

func TestAssigneesEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	bravo := ts.base(t, "Bravo")
	officer, offA := ts.staff(t, "off-alpha", model.RoleOfficer, alpha)
	_, cmdA := ts.staff(t, "cmd-alpha", model.RoleCommander, alpha)
	ts.staff(t, "off-bravo", model.RoleOfficer, bravo)

	// The user directory stays admin-only.
	ts.expect(t, "GET", "/api/users", cmdA, nil, http.StatusForbidden, nil)

	var assignees []model.User
	ts.expect(t, "GET", "/api/assignments/assignees", offA, nil, http.StatusOK, &assignees)
	if len(assignees) != 2 {
		t.Fatalf("expected 2 assignees at alpha, got %d", len(assignees))
	}
	for _, u := range assignees {
		if u.HomeBase() != alpha {
			t.Errorf("assignee %s is not at alpha", u.Username)
		}
	}

	ts.expect(t, "GET", fmt.Sprintf("/api/assignments/assignees?base_id=%d", bravo), cmdA, nil, http.StatusForbidden, nil)
	ts.expect(t, "GET", fmt.Sprintf("/api/assignments/assignees?base_id=%d", bravo), ts.admin, nil, http.StatusOK, &assignees)
	if len(assignees) != 1 || assignees[0].Username != "off-bravo" {
		t.Errorf("unexpected bravo assignees: %+v", assignees)
	}

	assets := ts.stock(t, cmdA, alpha, 1)
	ts.expect(t, "POST", "/api/assignments", cmdA, map[string]any{
		"asset_id":    assets[0].ID,
		"assignee_id": officer.ID,
	}, http.StatusCreated, nil)
}

func TestLedgerErrorMapping(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	_, commander := ts.staff(t, "cmd-alpha", model.RoleCommander, alpha)
	assets := ts.stock(t, commander, alpha, 1)
	inShop := fmt.Sprintf("/api/assets/%d/maintenance", assets[0].ID)
	ts.expect(t, "POST", inShop, commander, nil, http.StatusOK, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"invalid id", "GET", "/api/assets/abc", nil, http.StatusBadRequest, CodeValidation},
		{"missing asset", "GET", "/api/assets/999", nil, http.StatusNotFound, CodeNotFound},
		{"empty purchase", "POST", "/api/purchases", map[string]any{"base_id": alpha}, http.StatusBadRequest, CodeValidation},
		{"foreign base", "POST", "/api/purchases", purchaseBody(alpha+100, 1), http.StatusForbidden, CodeAccessDenied},
		{"missing transfer", "POST", "/api/transfers/999/approve", nil, http.StatusNotFound, CodeNotFound},
		{"wrong state", "POST", inShop, nil, http.StatusConflict, CodeInvalidState},
		{"duplicate base", "POST", "/api/bases", map[string]any{"name": "Alpha"}, http.StatusConflict, CodeConflict},
		{"admin only", "GET", "/api/users", nil, http.StatusForbidden, CodeAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := commander
			if tt.name == "duplicate base" {
				token = ts.admin
			}
			var body errorResponse
			ts.expect(t, tt.method, tt.path, token, tt.body, tt.status, &body)
			if body.Code != tt.code {
				t.Errorf("expected code %q, got %q (%s)", tt.code, body.Code, body.Error)
			}
			if body.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestAssetMaintenanceAndPhoto(t *testing.T) {
	ts := setupTestServer(t)
	alpha := ts.base(t, "Alpha")
	_, commander := ts.staff(t, "cmd-alpha", model.RoleCommander, alpha)
	_, officer := ts.staff(t, "off-alpha", model.RoleOfficer, alpha)
	assets := ts.stock(t, commander, alpha, 1)
	path := fmt.Sprintf("/api/assets/%d", assets[0].ID)

	ts.expect(t, "POST", path+"/maintenance", officer, nil, http.StatusForbidden, nil)

	var inShop model.Asset
	ts.expect(t, "POST", path+"/maintenance", commander, map[string]string{"notes": "optics"}, http.StatusOK, &inShop)
	if inShop.Status != model.AssetStatusMaintenance {
		t.Errorf("expected maintenance, got %s", inShop.Status)
	}
	ts.expect(t, "POST", path+"/maintenance", commander, nil, http.StatusConflict, nil)
	ts.expect(t, "POST", path+"/restore", commander, nil, http.StatusOK, nil)

	ts.expect(t, "GET", path+"/photo", officer, nil, http.StatusNotFound, nil)

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{90, 100, 50, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)

	req, _ := http.NewRequest("PUT", ts.URL+path+"/photo", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Authorization", "Bearer "+officer)
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("uploading photo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for photo upload, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest("GET", ts.URL+path+"/photo", nil)
	req.Header.Set("Authorization", "Bearer "+officer)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("fetching photo: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}

	req, _ = http.NewRequest("PUT", ts.URL+path+"/photo", bytes.NewReader([]byte("plain text")))
	req.Header.Set("Authorization", "Bearer "+officer)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("uploading text: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-image upload, got %d", resp.StatusCode)
	}
}
