package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	app "github.com/opsdeck/backoffice/internal/app"
	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/services/users"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// SeedUsername and SeedPassword are the first-run superuser credentials. The
// account is expected to change its password immediately.
const (
	SeedUsername = "admin"
	SeedPassword = "abcd1234"
)

// Seed bootstraps an empty store: the admin superuser, the navigation menu
// tree, the grantable API table and two starter roles. It is a no-op when the
// admin account already exists.
func Seed(ctx context.Context, a *app.Application, routes []admin.Api, log zerolog.Logger) error {
	_, total, err := a.Users.List(ctx, storage.UserFilter{
		Username: SeedUsername,
		PageArgs: storage.PageArgs{Page: 1, PageSize: 1},
	})
	if err != nil {
		return fmt.Errorf("seed: probe admin account: %w", err)
	}
	if total > 0 {
		return nil
	}

	if _, err := a.Users.Create(ctx, users.CreateParams{
		Username:    SeedUsername,
		Nickname:    "Administrator",
		Email:       "admin@backoffice.local",
		Password:    SeedPassword,
		IsActive:    true,
		IsSuperuser: true,
	}); err != nil {
		return fmt.Errorf("seed: create admin: %w", err)
	}

	menuIDs, err := seedMenus(ctx, a)
	if err != nil {
		return fmt.Errorf("seed: menus: %w", err)
	}

	added, _, err := a.Apis.Refresh(ctx, routes)
	if err != nil {
		return fmt.Errorf("seed: api table: %w", err)
	}

	if err := seedRoles(ctx, a, menuIDs); err != nil {
		return fmt.Errorf("seed: roles: %w", err)
	}

	log.Info().
		Str("username", SeedUsername).
		Int("menus", len(menuIDs)).
		Int("apis", added).
		Msg("seeded initial data")
	return nil
}

func seedMenus(ctx context.Context, a *app.Application) ([]int64, error) {
	var ids []int64
	create := func(m admin.Menu) (int64, error) {
		created, err := a.Menus.Create(ctx, m)
		if err != nil {
			return 0, err
		}
		ids = append(ids, created.ID)
		return created.ID, nil
	}

	if _, err := create(admin.Menu{
		Name: "Dashboard", MenuType: admin.MenuTypeMenu, Icon: "mdi:monitor-dashboard",
		Path: "/dashboard", Component: "/dashboard", Order: 1,
	}); err != nil {
		return nil, err
	}

	systemID, err := create(admin.Menu{
		Name: "System", MenuType: admin.MenuTypeCatalog, Icon: "carbon:gui-management",
		Path: "/system", Redirect: "/system/user", Order: 2,
	})
	if err != nil {
		return nil, err
	}
	systemChildren := []admin.Menu{
		{Name: "Users", Icon: "mdi:account-multiple", Path: "/system/user", Component: "/system/user", Order: 1},
		{Name: "Roles", Icon: "carbon:user-role", Path: "/system/role", Component: "/system/role", Order: 2},
		{Name: "Menus", Icon: "mdi:menu", Path: "/system/menu", Component: "/system/menu", Order: 3},
		{Name: "APIs", Icon: "mdi:api", Path: "/system/api", Component: "/system/api", Order: 4},
		{Name: "Departments", Icon: "mdi:file-tree", Path: "/system/dept", Component: "/system/dept", Order: 5},
		{Name: "Audit Trail", Icon: "mdi:history", Path: "/system/auditlog", Component: "/system/auditlog", Order: 6},
	}
	for _, child := range systemChildren {
		child.MenuType = admin.MenuTypeMenu
		child.ParentID = systemID
		child.KeepAlive = true
		if _, err := create(child); err != nil {
			return nil, err
		}
	}

	catalogID, err := create(admin.Menu{
		Name: "Catalog", MenuType: admin.MenuTypeCatalog, Icon: "mdi:package-variant",
		Path: "/catalog", Redirect: "/catalog/products", Order: 3,
	})
	if err != nil {
		return nil, err
	}
	catalogChildren := []admin.Menu{
		{Name: "Products", Icon: "mdi:cube-outline", Path: "/catalog/products", Component: "/catalog/products", Order: 1},
		{Name: "Categories", Icon: "mdi:shape-outline", Path: "/catalog/categories", Component: "/catalog/categories", Order: 2},
	}
	for _, child := range catalogChildren {
		child.MenuType = admin.MenuTypeMenu
		child.ParentID = catalogID
		child.KeepAlive = true
		if _, err := create(child); err != nil {
			return nil, err
		}
	}

	return ids, nil
}

// seedRoles creates an operator role holding every grant and a readonly role
// limited to GET routes.
func seedRoles(ctx context.Context, a *app.Application, menuIDs []int64) error {
	apis, _, err := a.Apis.List(ctx, storage.ApiFilter{PageArgs: storage.PageArgs{Page: 1, PageSize: 100}})
	if err != nil {
		return err
	}
	var allApis, readApis []int64
	for _, api := range apis {
		allApis = append(allApis, api.ID)
		if api.Method == http.MethodGet {
			readApis = append(readApis, api.ID)
		}
	}

	operator, err := a.Roles.Create(ctx, "operator", "full access to every module")
	if err != nil {
		return err
	}
	if err := a.Roles.SetAuthorized(ctx, operator.ID, menuIDs, allApis); err != nil {
		return err
	}

	readonly, err := a.Roles.Create(ctx, "readonly", "read-only access")
	if err != nil {
		return err
	}
	return a.Roles.SetAuthorized(ctx, readonly.ID, menuIDs, readApis)
}
