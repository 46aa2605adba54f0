package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

func TestUserLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, admin.User{Username: "admin", Email: "admin@example.com", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Fatalf("created user not initialized: %+v", u)
	}

	if _, err := s.CreateUser(ctx, admin.User{Username: "ADMIN"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate username error = %v, want ErrConflict", err)
	}
	if _, err := s.CreateUser(ctx, admin.User{Username: "other", Email: "admin@example.com"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate email error = %v, want ErrConflict", err)
	}

	u.Nickname = "Administrator"
	updated, err := s.UpdateUser(ctx, u)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Nickname != "Administrator" {
		t.Fatalf("nickname = %q", updated.Nickname)
	}
	if !updated.CreatedAt.Equal(u.CreatedAt) {
		t.Fatal("update must preserve created_at")
	}

	if err := s.UpdatePassword(ctx, u.ID, "hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	got, _ := s.GetUser(ctx, u.ID)
	if got.Password != "hash" {
		t.Fatal("password not stored")
	}

	at := time.Now().UTC()
	if err := s.SetLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("set last login: %v", err)
	}
	got, _ = s.GetUser(ctx, u.ID)
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("last login = %v", got.LastLogin)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestListUsersFilterAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, name := range []string{"alice", "bob", "carol", "albert"} {
		if _, err := s.CreateUser(ctx, admin.User{Username: name, IsActive: true}); err != nil {
			t.Fatal(err)
		}
	}

	users, total, err := s.ListUsers(ctx, storage.UserFilter{Username: "al"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("filtered total = %d len = %d", total, len(users))
	}

	users, total, err = s.ListUsers(ctx, storage.UserFilter{PageArgs: storage.PageArgs{Page: 2, PageSize: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(users) != 1 {
		t.Fatalf("page 2: total = %d len = %d", total, len(users))
	}
}

func TestRoleGrants(t *testing.T) {
	s := New()
	ctx := context.Background()

	role, err := s.CreateRole(ctx, admin.Role{Name: "auditor"})
	if err != nil {
		t.Fatal(err)
	}
	m1, _ := s.CreateMenu(ctx, admin.Menu{Name: "System", MenuType: admin.MenuTypeCatalog, Path: "/system", Order: 2})
	m2, _ := s.CreateMenu(ctx, admin.Menu{Name: "Audit", MenuType: admin.MenuTypeMenu, Path: "auditlog", ParentID: m1.ID, Order: 1})
	a1, _ := s.CreateApi(ctx, admin.Api{Path: "/api/v1/auditlog/list", Method: "GET", Summary: "list audit", Tags: "auditlog"})

	if err := s.SetRoleMenus(ctx, role.ID, []int64{m1.ID, m2.ID}); err != nil {
		t.Fatalf("set menus: %v", err)
	}
	if err := s.SetRoleApis(ctx, role.ID, []int64{a1.ID}); err != nil {
		t.Fatalf("set apis: %v", err)
	}
	if err := s.SetRoleMenus(ctx, role.ID, []int64{404}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown menu grant = %v, want ErrNotFound", err)
	}

	menus, err := s.ListRoleMenus(ctx, role.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(menus) != 2 || menus[0].ID != m2.ID {
		t.Fatalf("menus = %+v, want sorted by order", menus)
	}

	u, _ := s.CreateUser(ctx, admin.User{Username: "worker", IsActive: true})
	if err := s.SetUserRoles(ctx, u.ID, []int64{role.ID}); err != nil {
		t.Fatal(err)
	}
	roles, err := s.ListUserRoles(ctx, u.ID)
	if err != nil || len(roles) != 1 {
		t.Fatalf("user roles = %v err = %v", roles, err)
	}

	// deleting the role detaches it everywhere
	if err := s.DeleteRole(ctx, role.ID); err != nil {
		t.Fatal(err)
	}
	roles, _ = s.ListUserRoles(ctx, u.ID)
	if len(roles) != 0 {
		t.Fatalf("roles after delete = %v", roles)
	}
}

func TestDeptClosure(t *testing.T) {
	s := New()
	ctx := context.Background()

	hq, _ := s.CreateDept(ctx, admin.Dept{Name: "HQ"})
	eng, _ := s.CreateDept(ctx, admin.Dept{Name: "Engineering", ParentID: hq.ID})

	rows := []admin.DeptClosure{
		{Ancestor: hq.ID, Descendant: hq.ID, Level: 0},
		{Ancestor: hq.ID, Descendant: eng.ID, Level: 1},
		{Ancestor: eng.ID, Descendant: eng.ID, Level: 0},
	}
	if err := s.InsertClosures(ctx, rows); err != nil {
		t.Fatal(err)
	}

	ids, err := s.ListDescendantIDs(ctx, hq.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != eng.ID {
		t.Fatalf("descendants = %v", ids)
	}

	ancestors, err := s.ListClosuresTo(ctx, eng.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("closure rows to eng = %d", len(ancestors))
	}

	if err := s.SoftDeleteDept(ctx, eng.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetDept(ctx, eng.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("soft-deleted dept still visible")
	}
	// name lookup still sees it for restore
	if _, err := s.GetDeptByName(ctx, "Engineering"); err != nil {
		t.Fatalf("get by name after soft delete: %v", err)
	}

	if err := s.DeleteClosures(ctx, eng.ID); err != nil {
		t.Fatal(err)
	}
	ids, _ = s.ListDescendantIDs(ctx, hq.ID)
	if len(ids) != 0 {
		t.Fatalf("descendants after closure delete = %v", ids)
	}
}

func TestAuditLogFilterAndStats(t *testing.T) {
	s := New()
	ctx := context.Background()

	entries := []admin.AuditLog{
		{UserID: 1, Username: "admin", Module: "user", Method: "POST", Status: 200, ResponseTime: 10, OperationType: admin.OpCreate},
		{UserID: 1, Username: "admin", Module: "role", Method: "DELETE", Status: 500, ResponseTime: 30, OperationType: admin.OpDelete, LogLevel: "error"},
		{UserID: 2, Username: "carol", Module: "user", Method: "POST", Status: 200, ResponseTime: 20, OperationType: admin.OpCreate},
	}
	for _, e := range entries {
		if _, err := s.CreateAuditLog(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	logs, total, err := s.ListAuditLogs(ctx, storage.AuditLogFilter{Username: "admin"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("admin entries = %d", total)
	}
	if logs[0].ID < logs[1].ID {
		t.Fatal("audit list must be newest first")
	}

	_, total, _ = s.ListAuditLogs(ctx, storage.AuditLogFilter{Status: 500})
	if total != 1 {
		t.Fatalf("status filter total = %d", total)
	}

	stats, err := s.AuditLogStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("stats total = %d", stats.Total)
	}
	if stats.ErrorCount != 1 || stats.ByMethod["POST"] != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	if err := s.SoftDeleteAuditLog(ctx, logs[0].ID); err != nil {
		t.Fatal(err)
	}
	_, total, _ = s.ListAuditLogs(ctx, storage.AuditLogFilter{})
	if total != 2 {
		t.Fatalf("total after soft delete = %d", total)
	}
}

func TestProductAndCategory(t *testing.T) {
	s := New()
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, product.Category{Name: "Drinks"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateCategory(ctx, product.Category{Name: "drinks"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate category = %v", err)
	}

	p, err := s.CreateProduct(ctx, product.Product{Name: "Cola", CategoryID: cat.ID, SalePrice: 3.5, Status: true})
	if err != nil {
		t.Fatal(err)
	}
	if p.CategoryName != "Drinks" {
		t.Fatalf("category name = %q", p.CategoryName)
	}

	n, _ := s.CountProductsInCategory(ctx, cat.ID)
	if n != 1 {
		t.Fatalf("count in category = %d", n)
	}

	active := true
	items, total, err := s.ListProducts(ctx, storage.ProductFilter{Status: &active})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("list = %v total = %d err = %v", items, total, err)
	}

	if err := s.SetProductStatus(ctx, p.ID, false); err != nil {
		t.Fatal(err)
	}
	_, total, _ = s.ListProducts(ctx, storage.ProductFilter{Status: &active})
	if total != 0 {
		t.Fatalf("active products after disable = %d", total)
	}

	if err := s.SoftDeleteProduct(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetProduct(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("soft-deleted product still visible")
	}
	n, _ = s.CountProductsInCategory(ctx, cat.ID)
	if n != 0 {
		t.Fatalf("count after delete = %d", n)
	}
}
