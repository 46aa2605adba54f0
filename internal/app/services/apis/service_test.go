package apis

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/app/storage/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), zerolog.Nop())
}

func TestCreateNormalizes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin.Api{Method: " get ", Path: "/api/v1/user/list", Summary: "list users"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Method != "GET" {
		t.Fatalf("method not upper-cased: %q", a.Method)
	}
	if a.Perm() != "get/api/v1/user/list" {
		t.Fatalf("perm string wrong: %q", a.Perm())
	}

	if _, err := svc.Create(ctx, admin.Api{Method: "FETCH", Path: "/x"}); err == nil {
		t.Fatalf("bogus method accepted")
	}
	if _, err := svc.Create(ctx, admin.Api{Method: "GET", Path: "relative"}); err == nil {
		t.Fatalf("relative path accepted")
	}
}

func TestRefreshReconcilesTable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed := []admin.Api{
		{Method: "GET", Path: "/api/v1/user/list", Summary: "old summary", Tags: "user"},
		{Method: "POST", Path: "/api/v1/user/create", Summary: "create user", Tags: "user"},
		{Method: "DELETE", Path: "/api/v1/legacy/purge", Summary: "gone route", Tags: "legacy"},
	}
	for _, a := range seed {
		if _, err := svc.Create(ctx, a); err != nil {
			t.Fatalf("seed %s: %v", a.Path, err)
		}
	}

	live := []admin.Api{
		{Method: "GET", Path: "/api/v1/user/list", Summary: "list users", Tags: "user"},
		{Method: "POST", Path: "/api/v1/user/create", Summary: "create user", Tags: "user"},
		{Method: "GET", Path: "/api/v1/role/list", Summary: "list roles", Tags: "role"},
	}
	added, removed, err := svc.Refresh(ctx, live)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if added != 1 || removed != 1 {
		t.Fatalf("added=%d removed=%d, want 1 and 1", added, removed)
	}

	all, total, err := svc.List(ctx, storage.ApiFilter{PageArgs: storage.PageArgs{PageSize: 50}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("table should hold 3 routes, got %d", total)
	}
	byPerm := make(map[string]admin.Api, len(all))
	for _, a := range all {
		byPerm[a.Perm()] = a
	}
	if _, ok := byPerm["delete/api/v1/legacy/purge"]; ok {
		t.Fatalf("stale route survived refresh")
	}
	if got := byPerm["get/api/v1/user/list"].Summary; got != "list users" {
		t.Fatalf("summary not refreshed: %q", got)
	}
	if _, ok := byPerm["get/api/v1/role/list"]; !ok {
		t.Fatalf("new route not inserted")
	}

	// A second pass over the same routes is a no-op.
	added, removed, err = svc.Refresh(ctx, live)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if added != 0 || removed != 0 {
		t.Fatalf("second refresh should change nothing, got added=%d removed=%d", added, removed)
	}
}

func TestTags(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, a := range []admin.Api{
		{Method: "GET", Path: "/api/v1/user/list", Tags: "user"},
		{Method: "POST", Path: "/api/v1/user/create", Tags: "user"},
		{Method: "GET", Path: "/api/v1/role/list", Tags: "role"},
	} {
		if _, err := svc.Create(ctx, a); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("want 2 distinct tags, got %v", tags)
	}
}
