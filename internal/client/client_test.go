package client

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app"
	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/httpapi"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/session"
)

// testBackend is a full server over the in-memory store plus a client bound
// to it through a swappable token.
type testBackend struct {
	server *httptest.Server
	client *Client

	mu    sync.Mutex
	token string
}

func (b *testBackend) setToken(tok string) {
	b.mu.Lock()
	b.token = tok
	b.mu.Unlock()
}

func (b *testBackend) currentToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func newTestBackend(t *testing.T, handler *errdefs.Handler) *testBackend {
	t.Helper()

	log := zerolog.Nop()
	application, err := app.New(app.Options{
		Auth:      auth.Config{Secret: []byte("client-test-secret")},
		UploadDir: t.TempDir(),
	}, log)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	h, err := httpapi.New(application, httpapi.Config{RateLimit: 1000, RateBurst: 1000}, log)
	if err != nil {
		t.Fatalf("httpapi.New: %v", err)
	}
	if err := httpapi.Seed(context.Background(), application, h.LiveApis(), log); err != nil {
		t.Fatalf("seed: %v", err)
	}

	server := httptest.NewServer(h.Router())
	t.Cleanup(server.Close)

	backend := &testBackend{server: server}
	backend.client = New(Options{
		BaseURL: server.URL,
		Tokens:  backend.currentToken,
		Handler: handler,
		Log:     log,
	})
	return backend
}

func login(t *testing.T, b *testBackend) TokenPair {
	t.Helper()
	pair, err := b.client.Base.Login(context.Background(), httpapi.SeedUsername, httpapi.SeedPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	b.setToken(pair.AccessToken)
	return pair
}

func TestLoginAndUserInfo(t *testing.T) {
	b := newTestBackend(t, nil)
	pair := login(t, b)

	if pair.TokenType != "bearer" {
		t.Fatalf("token type = %q, want bearer", pair.TokenType)
	}
	if pair.RefreshToken == "" {
		t.Fatal("expected a refresh token")
	}

	info, err := b.client.Base.UserInfo(context.Background())
	if err != nil {
		t.Fatalf("userinfo: %v", err)
	}
	if info.Username != httpapi.SeedUsername || !info.IsSuperuser {
		t.Fatalf("unexpected identity: %+v", info)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	b := newTestBackend(t, nil)
	pair := login(t, b)

	fresh, err := b.client.Base.RefreshToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatalf("incomplete pair: %+v", fresh)
	}

	b.setToken(fresh.AccessToken)
	if _, err := b.client.Base.UserInfo(context.Background()); err != nil {
		t.Fatalf("userinfo with refreshed token: %v", err)
	}
}

func TestBusinessErrorClassification(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)

	// Duplicate the seeded admin account.
	_, err := b.client.Users.Create(context.Background(), UserInput{
		Username: httpapi.SeedUsername,
		Password: "whatever1",
		IsActive: true,
	})
	if err == nil {
		t.Fatal("expected duplicate username to fail")
	}
	var e *errdefs.Error
	if !errors.As(err, &e) {
		t.Fatalf("error type = %T, want *errdefs.Error", err)
	}
	if e.Kind != errdefs.KindBusiness {
		t.Fatalf("kind = %s, want %s", e.Kind, errdefs.KindBusiness)
	}
	if !strings.Contains(e.Message, "exists") {
		t.Fatalf("message = %q, want a duplicate notice", e.Message)
	}
}

func TestAuthErrorClearsSessionOnce(t *testing.T) {
	store, err := session.Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if err := store.SetTokens("stale-token", "stale-refresh"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	cleared := 0
	handler := errdefs.NewHandler(zerolog.Nop())
	handler.Register(errdefs.KindAuth, func(e *errdefs.Error) {
		wiped, err := store.Clear()
		if err != nil {
			t.Fatalf("clear session: %v", err)
		}
		if wiped {
			cleared++
		}
	})

	b := newTestBackend(t, handler)
	b.setToken("stale-token")

	for i := 0; i < 3; i++ {
		_, err := b.client.Base.UserInfo(context.Background())
		var e *errdefs.Error
		if !errors.As(err, &e) || e.Kind != errdefs.KindAuth {
			t.Fatalf("call %d: error = %v, want auth kind", i, err)
		}
	}
	if cleared != 1 {
		t.Fatalf("session cleared %d times, want exactly once", cleared)
	}
	if store.Token() != "" {
		t.Fatal("token survived the clear")
	}
}

func TestNetworkErrorOnDeadServer(t *testing.T) {
	b := newTestBackend(t, nil)
	b.server.Close()

	_, err := b.client.Base.Login(context.Background(), "a", "b")
	var e *errdefs.Error
	if !errors.As(err, &e) {
		t.Fatalf("error type = %T, want *errdefs.Error", err)
	}
	if e.Kind != errdefs.KindNetwork {
		t.Fatalf("kind = %s, want %s", e.Kind, errdefs.KindNetwork)
	}
	if e.Code != 0 {
		t.Fatalf("code = %d, want 0 for transport failures", e.Code)
	}
}

func TestUserLifecycle(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	created, err := b.client.Users.Create(ctx, UserInput{
		Username: "dana",
		Nickname: "Dana",
		Email:    "dana@example.com",
		Password: "initial-pass1",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created user has no id")
	}

	list, page, err := b.client.Users.List(ctx, UserListOptions{Username: "dana", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(list) != 1 {
		t.Fatalf("total = %d, len = %d, want 1/1", page.Total, len(list))
	}
	if page.PageSize != 10 {
		t.Fatalf("page size echoed as %d, want 10", page.PageSize)
	}

	created.Nickname = "Dana Q"
	updated, err := b.client.Users.Update(ctx, UserInput{
		ID:       created.ID,
		Username: created.Username,
		Nickname: "Dana Q",
		Email:    created.Email,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Nickname != "Dana Q" {
		t.Fatalf("nickname = %q after update", updated.Nickname)
	}

	password, err := b.client.Users.ResetPassword(ctx, created.ID)
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if password == "" {
		t.Fatal("reset returned an empty password")
	}

	if err := b.client.Users.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := b.client.Users.Get(ctx, created.ID); err == nil {
		t.Fatal("expected get after delete to fail")
	}
}

func TestRoleGrantsRoundTrip(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	role, err := b.client.Roles.Create(ctx, "support", "support desk")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	apis, _, err := b.client.Apis.List(ctx, ApiListOptions{Path: "/api/v1/user/list", PageSize: 10})
	if err != nil {
		t.Fatalf("list apis: %v", err)
	}
	if len(apis) != 1 {
		t.Fatalf("expected exactly one user list endpoint, got %d", len(apis))
	}

	if err := b.client.Roles.SetAuthorized(ctx, role.ID, nil, []int64{apis[0].ID}); err != nil {
		t.Fatalf("set authorized: %v", err)
	}

	got, err := b.client.Roles.Authorized(ctx, role.ID)
	if err != nil {
		t.Fatalf("authorized: %v", err)
	}
	if len(got.Apis) != 1 || got.Apis[0].Path != "/api/v1/user/list" {
		t.Fatalf("grants did not round trip: %+v", got.Apis)
	}
}

func TestMenuAndDeptTrees(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	menus, page, err := b.client.Menus.List(ctx, 1, 50)
	if err != nil {
		t.Fatalf("menu list: %v", err)
	}
	if page.Total == 0 || len(menus) == 0 {
		t.Fatal("seeded menus missing")
	}
	var system bool
	for _, m := range menus {
		if m.Name == "System" && len(m.Children) > 0 {
			system = true
		}
	}
	if !system {
		t.Fatal("System menu did not arrive with children")
	}

	root, err := b.client.Depts.Create(ctx, deptNamed("Engineering", 0))
	if err != nil {
		t.Fatalf("create dept: %v", err)
	}
	if _, err := b.client.Depts.Create(ctx, deptNamed("Platform", root.ID)); err != nil {
		t.Fatalf("create child dept: %v", err)
	}

	tree, err := b.client.Depts.List(ctx, "")
	if err != nil {
		t.Fatalf("dept list: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree shape: %+v", tree)
	}
	if tree[0].Children[0].Name != "Platform" {
		t.Fatalf("child = %q, want Platform", tree[0].Children[0].Name)
	}
}

func TestProductCatalogFlow(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	cat, err := b.client.Categories.Create(ctx, product.Category{Name: "Peripherals", Description: "Input devices"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	p, err := b.client.Products.Create(ctx, product.Product{
		Name:       "Trackball",
		CategoryID: cat.ID,
		CostPrice:  29.90,
		SalePrice:  49.90,
		Status:     true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	toggled, err := b.client.Products.SetStatus(ctx, p.ID, false)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if toggled.Status {
		t.Fatal("product still active after disable")
	}

	inactive := false
	list, page, err := b.client.Products.List(ctx, ProductListOptions{IsActive: &inactive, PageSize: 10})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if page.Total != 1 || len(list) != 1 || list[0].ID != p.ID {
		t.Fatalf("inactive filter missed the product: total=%d list=%+v", page.Total, list)
	}

	if err := b.client.Categories.Delete(ctx, cat.ID); err == nil {
		t.Fatal("expected category delete to fail while a product references it")
	}
	if err := b.client.Products.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if err := b.client.Categories.Delete(ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
}

func TestApiRefreshAndTags(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	stray, err := b.client.Apis.Create(ctx, ApiInput{
		Path:   "/api/v1/ghost",
		Method: "GET",
		Tags:   "ghost",
	})
	if err != nil {
		t.Fatalf("create stray api: %v", err)
	}
	if stray.ID == 0 {
		t.Fatal("stray api has no id")
	}

	added, removed, err := b.client.Apis.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if added != 0 || removed != 1 {
		t.Fatalf("refresh = (%d added, %d removed), want (0, 1)", added, removed)
	}

	tags, err := b.client.Apis.Tags(ctx)
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(tags) == 0 {
		t.Fatal("no tags after refresh")
	}
	for _, tag := range tags {
		if tag == "ghost" {
			t.Fatal("stray tag survived the refresh")
		}
	}
}

func TestUploadImage(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)

	payload := []byte("\x89PNG\r\n\x1a\nfake image bytes")
	res, err := b.client.Uploads.Image(context.Background(), "avatar.png", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(res.URL, "/static/uploads/") {
		t.Fatalf("url = %q, want /static/uploads/ prefix", res.URL)
	}
	if res.Size != int64(len(payload)) {
		t.Fatalf("size = %d, want %d", res.Size, len(payload))
	}
}

func TestAuditTailStreamsEntries(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	tail, err := b.client.AuditLogs.Tail(ctx)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	defer tail.Close()

	// The subscriber registers right after the upgrade; give it a moment
	// before generating traffic.
	time.Sleep(100 * time.Millisecond)

	if _, err := b.client.Roles.Create(ctx, "auditors", "watched"); err != nil {
		t.Fatalf("create role: %v", err)
	}

	entry, err := tail.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if entry.Module != "role" || entry.Method != "POST" {
		t.Fatalf("unexpected entry: module=%q method=%q", entry.Module, entry.Method)
	}
}

func TestAuditListAndPrune(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	if _, err := b.client.Roles.Create(ctx, "temp", ""); err != nil {
		t.Fatalf("create role: %v", err)
	}

	entries, page, err := b.client.AuditLogs.List(ctx, AuditListOptions{Module: "role", PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total == 0 || len(entries) == 0 {
		t.Fatal("role mutation left no audit entry")
	}

	stats, err := b.client.AuditLogs.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total == 0 || stats.ByModule["role"] == 0 {
		t.Fatalf("stats missing role traffic: %+v", stats)
	}

	deleted, err := b.client.AuditLogs.BatchDelete(ctx, []int64{entries[0].ID})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}

func TestAuditExportAndClear(t *testing.T) {
	b := newTestBackend(t, nil)
	login(t, b)
	ctx := context.Background()

	if _, err := b.client.Roles.Create(ctx, "temp", ""); err != nil {
		t.Fatalf("create role: %v", err)
	}

	var buf bytes.Buffer
	name, err := b.client.AuditLogs.Export(ctx, AuditListOptions{Module: "role"}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(name, "auditlog_export_") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("suggested name = %q", name)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("export lines = %d, want header plus one row: %s", len(lines), buf.String())
	}

	cleared, err := b.client.AuditLogs.Clear(ctx, 0)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared == 0 {
		t.Fatal("clear removed nothing")
	}
	if _, page, err := b.client.AuditLogs.List(ctx, AuditListOptions{}); err != nil || page.Total != 0 {
		t.Fatalf("trail not empty after clear: total = %d, err = %v", page.Total, err)
	}
}

func deptNamed(name string, parent int64) admin.Dept {
	return admin.Dept{Name: name, ParentID: parent}
}
