package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	app "github.com/opsdeck/backoffice/internal/app"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
)

type envelope struct {
	Code  int             `json:"code"`
	Msg   string          `json:"msg"`
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Application) {
	t.Helper()

	application, err := app.New(app.Options{
		Auth:      auth.Config{Secret: []byte("test-secret")},
		UploadDir: t.TempDir(),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	h, err := New(application, Config{RateLimit: 1000, RateBurst: 1000}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Seed(context.Background(), application, h.LiveApis(), zerolog.Nop()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, application
}

func request(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func login(t *testing.T, srv *httptest.Server, username, password string) auth.TokenPair {
	t.Helper()

	status, env := request(t, srv, http.MethodPost, "/api/v1/base/access_token", "", map[string]string{
		"username": username,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status = %d, msg %q", username, status, env.Msg)
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("login returned empty access token")
	}
	return pair
}

func TestLoginAndIdentity(t *testing.T) {
	srv, _ := newTestServer(t)

	pair := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodGet, "/api/v1/base/userinfo", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("userinfo status = %d", status)
	}
	var info struct {
		Username    string `json:"username"`
		IsSuperuser bool   `json:"is_superuser"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("decode userinfo: %v", err)
	}
	if info.Username != SeedUsername || !info.IsSuperuser {
		t.Fatalf("userinfo = %+v, want superuser admin", info)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/base/access_token", "", map[string]string{
		"username": SeedUsername,
		"password": "wrong-password",
	})
	if status != http.StatusUnauthorized || env.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d code %d, want 401/401", status, env.Code)
	}
	if env.Msg != "invalid username or password" {
		t.Fatalf("bad login msg = %q", env.Msg)
	}
}

func TestRefreshTokenFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	pair := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/base/refresh_token", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d msg %q", status, env.Msg)
	}
	var fresh auth.TokenPair
	if err := json.Unmarshal(env.Data, &fresh); err != nil {
		t.Fatalf("decode refreshed pair: %v", err)
	}

	status, _ = request(t, srv, http.MethodGet, "/api/v1/base/userinfo", fresh.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("userinfo with refreshed token = %d", status)
	}
}

func TestAnonymousRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	status, env := request(t, srv, http.MethodGet, "/api/v1/user/list", "", nil)
	if status != http.StatusUnauthorized || env.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: status %d code %d", status, env.Code)
	}
}

func TestRateLimitKeyedByUser(t *testing.T) {
	application, err := app.New(app.Options{
		Auth:      auth.Config{Secret: []byte("test-secret")},
		UploadDir: t.TempDir(),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	h, err := New(application, Config{RateLimit: 1, RateBurst: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Seed(context.Background(), application, h.LiveApis(), zerolog.Nop()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	// The anonymous login spends one token from the address bucket; the
	// signed-in requests draw from their own per-user bucket and must not
	// starve against it.
	pair := login(t, srv, SeedUsername, SeedPassword)
	for i := 0; i < 2; i++ {
		if status, _ := request(t, srv, http.MethodGet, "/api/v1/base/userinfo", pair.AccessToken, nil); status != http.StatusOK {
			t.Fatalf("userinfo %d: status = %d, want 200", i, status)
		}
	}

	// The address bucket had one token left; the request after that is
	// throttled.
	creds := map[string]string{"username": SeedUsername, "password": SeedPassword}
	if status, _ := request(t, srv, http.MethodPost, "/api/v1/base/access_token", "", creds); status != http.StatusOK {
		t.Fatalf("second anonymous login: status = %d, want 200", status)
	}
	status, env := request(t, srv, http.MethodPost, "/api/v1/base/access_token", "", creds)
	if status != http.StatusTooManyRequests || env.Code != http.StatusTooManyRequests {
		t.Fatalf("exhausted address bucket: status %d code %d, want 429", status, env.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	srv, _ := newTestServer(t)
	pair := login(t, srv, SeedUsername, SeedPassword)

	if status, _ := request(t, srv, http.MethodPost, "/api/v1/base/logout", pair.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}
	status, _ := request(t, srv, http.MethodGet, "/api/v1/base/userinfo", pair.AccessToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted, status = %d", status)
	}
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/user/create", admin.AccessToken, map[string]any{
		"username": "carol", "email": "carol@example.com", "password": "abcd1234", "is_active": true,
	})
	if status != http.StatusOK {
		t.Fatalf("create user: %d %s", status, env.Msg)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}

	status, env = request(t, srv, http.MethodGet, "/api/v1/user/list?username=caro", admin.AccessToken, nil)
	if status != http.StatusOK || env.Total != 1 {
		t.Fatalf("filtered list: status %d total %d", status, env.Total)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/user/update", admin.AccessToken, map[string]any{
		"id": created.ID, "username": "carol", "nickname": "Carol", "email": "carol@example.com", "is_active": true,
	})
	if status != http.StatusOK {
		t.Fatalf("update user: %d %s", status, env.Msg)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/user/reset_password", admin.AccessToken, map[string]any{
		"user_id": created.ID,
	})
	if status != http.StatusOK {
		t.Fatalf("reset password: %d %s", status, env.Msg)
	}
	var reset map[string]string
	if err := json.Unmarshal(env.Data, &reset); err != nil || reset["password"] == "" {
		t.Fatalf("reset password data = %s err %v", env.Data, err)
	}
	login(t, srv, "carol", reset["password"])

	status, _ = request(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/user/delete?user_id=%d", created.ID), admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete user: %d", status)
	}
	status, _ = request(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/user/get?user_id=%d", created.ID), admin.AccessToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get deleted user: %d, want 404", status)
	}
}

func TestPermissionEnforcement(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	// Find the seeded readonly role.
	status, env := request(t, srv, http.MethodGet, "/api/v1/role/list?role_name=readonly", admin.AccessToken, nil)
	if status != http.StatusOK || env.Total != 1 {
		t.Fatalf("locate readonly role: status %d total %d", status, env.Total)
	}
	var roles []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &roles); err != nil || len(roles) != 1 {
		t.Fatalf("decode roles: %v", err)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/user/create", admin.AccessToken, map[string]any{
		"username": "viewer", "password": "abcd1234", "is_active": true, "role_ids": []int64{roles[0].ID},
	})
	if status != http.StatusOK {
		t.Fatalf("create viewer: %d %s", status, env.Msg)
	}

	viewer := login(t, srv, "viewer", "abcd1234")

	if status, _ := request(t, srv, http.MethodGet, "/api/v1/user/list", viewer.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("viewer GET list: %d, want granted", status)
	}
	status, env = request(t, srv, http.MethodPost, "/api/v1/user/create", viewer.AccessToken, map[string]any{
		"username": "sneaky", "password": "abcd1234",
	})
	if status != http.StatusForbidden || env.Code != http.StatusForbidden {
		t.Fatalf("viewer POST create: status %d code %d, want 403", status, env.Code)
	}

	// Granting the missing API flips the outcome.
	status, env = request(t, srv, http.MethodGet, "/api/v1/role/authorized?id="+fmt.Sprint(roles[0].ID), admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("read grants: %d", status)
	}
	var granted struct {
		Menus []struct {
			ID int64 `json:"id"`
		} `json:"menus"`
		Apis []struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
			Path   string `json:"path"`
		} `json:"apis"`
	}
	if err := json.Unmarshal(env.Data, &granted); err != nil {
		t.Fatalf("decode grants: %v", err)
	}

	var menuIDs, apiIDs []int64
	for _, m := range granted.Menus {
		menuIDs = append(menuIDs, m.ID)
	}
	for _, a := range granted.Apis {
		apiIDs = append(apiIDs, a.ID)
	}
	// Locate the create-user API id.
	status, env = request(t, srv, http.MethodGet, "/api/v1/api/list?path=/api/v1/user/create", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("api list: %d", status)
	}
	var apis []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &apis); err != nil || len(apis) == 0 {
		t.Fatalf("decode api list: %v (%s)", err, env.Data)
	}
	apiIDs = append(apiIDs, apis[0].ID)

	status, env = request(t, srv, http.MethodPost, "/api/v1/role/authorized", admin.AccessToken, map[string]any{
		"id": roles[0].ID, "menu_ids": menuIDs, "api_ids": apiIDs,
	})
	if status != http.StatusOK {
		t.Fatalf("extend grants: %d %s", status, env.Msg)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/user/create", viewer.AccessToken, map[string]any{
		"username": "sneaky", "password": "abcd1234", "is_active": true,
	})
	if status != http.StatusOK {
		t.Fatalf("viewer POST after grant: %d %s", status, env.Msg)
	}
}

func TestUserMenuAndUserApi(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodGet, "/api/v1/base/usermenu", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("usermenu: %d", status)
	}
	var menus []struct {
		Name     string `json:"name"`
		Children []struct {
			Name string `json:"name"`
		} `json:"children"`
	}
	if err := json.Unmarshal(env.Data, &menus); err != nil {
		t.Fatalf("decode usermenu: %v", err)
	}
	var system bool
	for _, m := range menus {
		if m.Name == "System" {
			system = true
			if len(m.Children) != 6 {
				t.Fatalf("System children = %d, want 6", len(m.Children))
			}
		}
	}
	if !system {
		t.Fatal("usermenu missing System catalog")
	}

	status, env = request(t, srv, http.MethodGet, "/api/v1/base/userapi", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("userapi: %d", status)
	}
	var perms []string
	if err := json.Unmarshal(env.Data, &perms); err != nil {
		t.Fatalf("decode userapi: %v", err)
	}
	var hasUserList bool
	for _, p := range perms {
		if p == "get/api/v1/user/list" {
			hasUserList = true
		}
	}
	if !hasUserList {
		t.Fatalf("userapi missing get/api/v1/user/list: %v", perms)
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/role/create", admin.AccessToken, map[string]string{
		"name": "auditors",
	})
	if status != http.StatusOK {
		t.Fatalf("create role: %d %s", status, env.Msg)
	}

	status, env = request(t, srv, http.MethodGet, "/api/v1/auditlog/list?module=role&method=POST", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("audit list: %d", status)
	}
	var entries []struct {
		Module        string          `json:"module"`
		Summary       string          `json:"summary"`
		Username      string          `json:"username"`
		Status        int             `json:"status"`
		OperationType string          `json:"operation_type"`
		RequestArgs   json.RawMessage `json:"request_args"`
	}
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("decode audit entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("mutation not recorded in audit trail")
	}
	e := entries[0]
	if e.Module != "role" || e.Summary != "Create role" || e.Username != SeedUsername || e.Status != http.StatusOK || e.OperationType != "create" {
		t.Fatalf("audit entry = %+v", e)
	}
	if !strings.Contains(string(e.RequestArgs), "auditors") {
		t.Fatalf("request args not captured: %s", e.RequestArgs)
	}

	// Reads of the audit trail itself never feed back into it.
	status, env = request(t, srv, http.MethodGet, "/api/v1/auditlog/list?module=auditlog", admin.AccessToken, nil)
	if status != http.StatusOK || env.Total != 0 {
		t.Fatalf("auditlog reads recorded: total = %d", env.Total)
	}
}

func TestAuditExportAndClear(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	for _, name := range []string{"auditors", "operators"} {
		if status, env := request(t, srv, http.MethodPost, "/api/v1/role/create", admin.AccessToken, map[string]string{
			"name": name,
		}); status != http.StatusOK {
			t.Fatalf("create role %s: %d %s", name, status, env.Msg)
		}
	}

	// Export is raw CSV, not an envelope.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auditlog/export?module=role", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+admin.AccessToken)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("export content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "auditlog_export_") {
		t.Fatalf("export disposition = %q", cd)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 3 {
		t.Fatalf("export lines = %d, want header plus two rows: %s", len(lines), body)
	}
	if !strings.HasPrefix(lines[0], "id,user_id,username") {
		t.Fatalf("export header = %q", lines[0])
	}
	if !strings.Contains(string(body), "Create role") {
		t.Fatalf("export missing recorded mutation: %s", body)
	}

	// A bounded clear keeps fresh entries; an unbounded one empties the
	// trail.
	status, env := request(t, srv, http.MethodDelete, "/api/v1/auditlog/clear?days=30", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("bounded clear: %d %s", status, env.Msg)
	}
	var result struct {
		Cleared int `json:"cleared"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode clear result: %v", err)
	}
	if result.Cleared != 0 {
		t.Fatalf("bounded clear removed fresh entries: %d", result.Cleared)
	}

	status, env = request(t, srv, http.MethodDelete, "/api/v1/auditlog/clear", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("clear: %d %s", status, env.Msg)
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode clear result: %v", err)
	}
	if result.Cleared != 2 {
		t.Fatalf("cleared = %d, want 2", result.Cleared)
	}

	status, env = request(t, srv, http.MethodGet, "/api/v1/auditlog/list", admin.AccessToken, nil)
	if status != http.StatusOK || env.Total != 0 {
		t.Fatalf("trail not empty after clear: total = %d", env.Total)
	}
}

func TestAuditTrailRedactsPasswords(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/user/create", admin.AccessToken, map[string]any{
		"username": "dave", "password": "abcd1234", "is_active": true,
	})
	if status != http.StatusOK {
		t.Fatalf("create user: %d %s", status, env.Msg)
	}

	_, env = request(t, srv, http.MethodGet, "/api/v1/auditlog/list?module=user&method=POST", admin.AccessToken, nil)
	var entries []struct {
		RequestArgs json.RawMessage `json:"request_args"`
	}
	if err := json.Unmarshal(env.Data, &entries); err != nil || len(entries) == 0 {
		t.Fatalf("audit entries: %v", err)
	}
	args := string(entries[0].RequestArgs)
	if strings.Contains(args, "abcd1234") {
		t.Fatalf("password leaked into audit args: %s", args)
	}
	if !strings.Contains(args, "***") {
		t.Fatalf("password not redacted: %s", args)
	}
}

func TestProductCatalogOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/categories", admin.AccessToken, map[string]any{
		"name": "Peripherals",
	})
	if status != http.StatusOK {
		t.Fatalf("create category: %d %s", status, env.Msg)
	}
	var category struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &category); err != nil {
		t.Fatalf("decode category: %v", err)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/products", admin.AccessToken, map[string]any{
		"name": "Trackball", "category_id": category.ID, "cost_price": 19.5, "sale_price": 39.0, "status": true,
	})
	if status != http.StatusOK {
		t.Fatalf("create product: %d %s", status, env.Msg)
	}
	var prod struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &prod); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	status, env = request(t, srv, http.MethodPut, fmt.Sprintf("/api/v1/products/%d/status", prod.ID), admin.AccessToken, map[string]any{
		"status": false,
	})
	if status != http.StatusOK {
		t.Fatalf("toggle status: %d %s", status, env.Msg)
	}
	var toggled struct {
		Status bool `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &toggled); err != nil || toggled.Status {
		t.Fatalf("status after toggle = %+v err %v", toggled, err)
	}

	status, env = request(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", category.ID), admin.AccessToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("delete referenced category: %d, want 400", status)
	}
	if !strings.Contains(env.Msg, "products") {
		t.Fatalf("refusal msg = %q", env.Msg)
	}

	if status, _ := request(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", prod.ID), admin.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("delete product: %d", status)
	}
	if status, _ := request(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", category.ID), admin.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("delete emptied category: %d", status)
	}
}

func TestApiRefreshPrunesStrays(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/api/create", admin.AccessToken, map[string]string{
		"path": "/api/v1/legacy/purge", "method": "DELETE", "summary": "copied from an old deploy",
	})
	if status != http.StatusOK {
		t.Fatalf("create stray api: %d %s", status, env.Msg)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/api/refresh", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("refresh: %d %s", status, env.Msg)
	}
	var diff map[string]int
	if err := json.Unmarshal(env.Data, &diff); err != nil {
		t.Fatalf("decode refresh diff: %v", err)
	}
	if diff["removed"] != 1 || diff["added"] != 0 {
		t.Fatalf("refresh diff = %v, want removed 1 added 0", diff)
	}
}

func TestUploadAndStaticServe(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	payload := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 1, 2, 3}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="logo.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/upload/image", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin.AccessToken)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, body)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var result struct {
		URL  string `json:"url"`
		Size int64  `json:"size"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(result.URL, "/static/uploads/") || result.Size != int64(len(payload)) {
		t.Fatalf("upload result = %+v", result)
	}

	served, err := srv.Client().Get(srv.URL + result.URL)
	if err != nil {
		t.Fatalf("fetch static: %v", err)
	}
	defer served.Body.Close()
	got, _ := io.ReadAll(served.Body)
	if served.StatusCode != http.StatusOK || !bytes.Equal(got, payload) {
		t.Fatalf("static serve status %d, body %d bytes", served.StatusCode, len(got))
	}
}

func TestAuditWebsocketTail(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/auditlog/ws?token=" + admin.AccessToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	// Give the server side a moment to register the subscriber.
	time.Sleep(100 * time.Millisecond)

	status, env := request(t, srv, http.MethodPost, "/api/v1/role/create", admin.AccessToken, map[string]string{
		"name": "streamers",
	})
	if status != http.StatusOK {
		t.Fatalf("create role: %d %s", status, env.Msg)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	var entry struct {
		Module  string `json:"module"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(msg, &entry); err != nil {
		t.Fatalf("decode streamed entry: %v", err)
	}
	if entry.Module != "role" || entry.Summary != "Create role" {
		t.Fatalf("streamed entry = %+v", entry)
	}
}

func TestAuditWebsocketRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/auditlog/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial with bad token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}
}

func TestOpsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "backoffice_http_requests_total") {
		t.Fatalf("metrics exposition missing counters (status %d)", resp.StatusCode)
	}

	admin := login(t, srv, SeedUsername, SeedPassword)
	status, env := request(t, srv, http.MethodGet, "/api/v1/base/health", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("base health: %d", status)
	}
	var stats struct {
		GoVersion  string `json:"go_version"`
		Goroutines int    `json:"goroutines"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode host stats: %v", err)
	}
	if stats.GoVersion == "" || stats.Goroutines <= 0 {
		t.Fatalf("host stats = %+v", stats)
	}
}

func TestMenuTreePagingOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodGet, "/api/v1/menu/list?page=1&page_size=2", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("menu list: %d", status)
	}
	if env.Total != 3 {
		t.Fatalf("top-level total = %d, want 3", env.Total)
	}
	var menus []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &menus); err != nil {
		t.Fatalf("decode menus: %v", err)
	}
	if len(menus) != 2 {
		t.Fatalf("page size = %d, want 2", len(menus))
	}

	// Deleting a catalog with children is refused.
	var sysID int64
	status, env = request(t, srv, http.MethodGet, "/api/v1/menu/list?page_size=100", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("menu list full: %d", status)
	}
	var full []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &full); err != nil {
		t.Fatalf("decode full menus: %v", err)
	}
	for _, m := range full {
		if m.Name == "System" {
			sysID = m.ID
		}
	}
	status, env = request(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/menu/delete?id=%d", sysID), admin.AccessToken, nil)
	if status != http.StatusBadRequest || !strings.Contains(env.Msg, "children") {
		t.Fatalf("delete parent menu: status %d msg %q", status, env.Msg)
	}
}

func TestDeptTreeOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := login(t, srv, SeedUsername, SeedPassword)

	status, env := request(t, srv, http.MethodPost, "/api/v1/dept/create", admin.AccessToken, map[string]any{
		"name": "Engineering",
	})
	if status != http.StatusOK {
		t.Fatalf("create dept: %d %s", status, env.Msg)
	}
	var eng struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &eng); err != nil {
		t.Fatalf("decode dept: %v", err)
	}

	status, env = request(t, srv, http.MethodPost, "/api/v1/dept/create", admin.AccessToken, map[string]any{
		"name": "Backend", "parent_id": eng.ID,
	})
	if status != http.StatusOK {
		t.Fatalf("create child dept: %d %s", status, env.Msg)
	}

	status, env = request(t, srv, http.MethodGet, "/api/v1/dept/list", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("dept list: %d", status)
	}
	var tree []struct {
		Name     string `json:"name"`
		Children []struct {
			Name string `json:"name"`
		} `json:"children"`
	}
	if err := json.Unmarshal(env.Data, &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree) != 1 || tree[0].Name != "Engineering" || len(tree[0].Children) != 1 {
		t.Fatalf("tree = %+v", tree)
	}

	status, _ = request(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/dept/delete?dept_id=%d", eng.ID), admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("cascade delete: %d", status)
	}
	status, env = request(t, srv, http.MethodGet, "/api/v1/dept/list", admin.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("dept list after delete: %d", status)
	}
	var after []json.RawMessage
	if err := json.Unmarshal(env.Data, &after); err != nil {
		t.Fatalf("decode tree after delete: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("tree not emptied: %s", env.Data)
	}
}
