package users

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/app/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, store, zerolog.Nop()), store
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		p    CreateParams
	}{
		{"missing username", CreateParams{Password: "abcd1234"}},
		{"missing password", CreateParams{Username: "alice"}},
		{"short password", CreateParams{Username: "alice", Password: "ab1"}},
		{"letters only", CreateParams{Username: "alice", Password: "abcdefgh"}},
		{"digits only", CreateParams{Username: "alice", Password: "12345678"}},
		{"dangling dept", CreateParams{Username: "alice", Password: "abcd1234", DeptID: 42}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.p); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}
}

func TestCreateAttachesRoles(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	role, err := store.CreateRole(ctx, admin.Role{Name: "operator"})
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
	dept, err := store.CreateDept(ctx, admin.Dept{Name: "ops"})
	if err != nil {
		t.Fatalf("seed dept: %v", err)
	}

	u, err := svc.Create(ctx, CreateParams{
		Username: "alice",
		Password: "abcd1234",
		Email:    " alice@example.com ",
		IsActive: true,
		DeptID:   dept.ID,
		RoleIDs:  []int64{role.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not trimmed: %q", u.Email)
	}
	if len(u.Roles) != 1 || u.Roles[0].ID != role.ID {
		t.Fatalf("roles not attached: %+v", u.Roles)
	}
	if u.Password == "abcd1234" || u.Password == "" {
		t.Fatalf("password stored unhashed")
	}
	if !auth.VerifyPassword(u.Password, "abcd1234") {
		t.Fatal("stored hash does not verify")
	}

	if _, err := svc.Create(ctx, CreateParams{Username: "alice", Password: "abcd1234"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate username should conflict, got %v", err)
	}
}

func TestUpdateRoleSemantics(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	role, _ := store.CreateRole(ctx, admin.Role{Name: "operator"})
	u, err := svc.Create(ctx, CreateParams{Username: "alice", Password: "abcd1234", RoleIDs: []int64{role.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Nil RoleIDs leaves assignments alone.
	got, err := svc.Update(ctx, UpdateParams{ID: u.ID, Username: "alice", Nickname: "Al", IsActive: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Nickname != "Al" || len(got.Roles) != 1 {
		t.Fatalf("nil role ids must keep roles: %+v", got)
	}

	// An empty, non-nil slice clears them.
	got, err = svc.Update(ctx, UpdateParams{ID: u.ID, Username: "alice", IsActive: true, RoleIDs: []int64{}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Roles) != 0 {
		t.Fatalf("empty role ids must clear roles: %+v", got.Roles)
	}
}

func TestResetPassword(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateParams{Username: "alice", Password: "abcd1234"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	plain, err := svc.ResetPassword(ctx, u.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(plain) != 16 {
		t.Fatalf("want a 16 char password, got %q", plain)
	}

	stored, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !auth.VerifyPassword(stored.Password, plain) {
		t.Fatal("new password does not verify")
	}
	if auth.VerifyPassword(stored.Password, "abcd1234") {
		t.Fatal("old password still verifies")
	}

	if _, err := svc.ResetPassword(ctx, u.ID+99); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown id should be not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateParams{Username: "alice", Password: "abcd1234"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deleted user still visible: %v", err)
	}
}
