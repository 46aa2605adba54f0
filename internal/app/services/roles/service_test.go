package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/app/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, zerolog.Nop()), store
}

func TestCreateAndRename(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "  ", "blank"); err == nil {
		t.Fatalf("blank name accepted")
	}

	r, err := svc.Create(ctx, " operator ", "day to day ops")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Name != "operator" {
		t.Fatalf("name not trimmed: %q", r.Name)
	}

	if _, err := svc.Create(ctx, "operator", ""); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate name should conflict, got %v", err)
	}

	renamed, err := svc.Update(ctx, r.ID, "auditor", "read only")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if renamed.Name != "auditor" || renamed.Desc != "read only" {
		t.Fatalf("rename lost: %+v", renamed)
	}
}

func TestGrantRoundTrip(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "operator", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	menu, err := store.CreateMenu(ctx, admin.Menu{Name: "users", MenuType: admin.MenuTypeMenu, Path: "user"})
	if err != nil {
		t.Fatalf("seed menu: %v", err)
	}
	api, err := store.CreateApi(ctx, admin.Api{Method: "GET", Path: "/api/v1/user/list", Summary: "list users"})
	if err != nil {
		t.Fatalf("seed api: %v", err)
	}

	if err := svc.SetAuthorized(ctx, r.ID, []int64{menu.ID}, []int64{api.ID}); err != nil {
		t.Fatalf("set grants: %v", err)
	}

	got, err := svc.Authorized(ctx, r.ID)
	if err != nil {
		t.Fatalf("authorized: %v", err)
	}
	if len(got.Menus) != 1 || got.Menus[0].ID != menu.ID {
		t.Fatalf("menu grants wrong: %+v", got.Menus)
	}
	if len(got.Apis) != 1 || got.Apis[0].ID != api.ID {
		t.Fatalf("api grants wrong: %+v", got.Apis)
	}

	// Replacing with empty sets clears everything.
	if err := svc.SetAuthorized(ctx, r.ID, nil, nil); err != nil {
		t.Fatalf("clear grants: %v", err)
	}
	got, err = svc.Authorized(ctx, r.ID)
	if err != nil {
		t.Fatalf("authorized: %v", err)
	}
	if len(got.Menus) != 0 || len(got.Apis) != 0 {
		t.Fatalf("grants survived clear: %+v", got)
	}

	if err := svc.SetAuthorized(ctx, r.ID+99, nil, nil); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown role should be not found, got %v", err)
	}
}
