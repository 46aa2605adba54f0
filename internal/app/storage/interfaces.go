// Package storage defines the persistence interfaces the services depend
// on. Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/domain/product"
)

// ErrNotFound marks lookups that matched nothing. Stores wrap it with the
// entity and key so services can both classify and report.
var ErrNotFound = errors.New("not found")

// ErrConflict marks writes rejected by a uniqueness rule.
var ErrConflict = errors.New("already exists")

// PageArgs is the common list pagination request.
type PageArgs struct {
	Page     int
	PageSize int
}

// Normalized clamps paging to sane bounds: page >= 1, 1 <= size <= 100 with
// a default of 10.
func (p PageArgs) Normalized() PageArgs {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset converts normalized paging into a slice/SQL offset.
func (p PageArgs) Offset() int {
	n := p.Normalized()
	return (n.Page - 1) * n.PageSize
}

// UserFilter narrows user listings. String fields match as substrings.
type UserFilter struct {
	Username string
	Email    string
	DeptID   int64
	PageArgs
}

// RoleFilter narrows role listings.
type RoleFilter struct {
	Name string
	PageArgs
}

// ApiFilter narrows API listings.
type ApiFilter struct {
	Path    string
	Summary string
	Tags    string
	PageArgs
}

// AuditLogFilter narrows audit trail listings. Zero times are unset bounds;
// Status zero means any.
type AuditLogFilter struct {
	Username      string
	Module        string
	Method        string
	Summary       string
	Status        int
	OperationType string
	LogLevel      string
	StartTime     time.Time
	EndTime       time.Time
	PageArgs
}

// AuditLogStats summarizes the retained audit trail.
type AuditLogStats struct {
	Total          int64            `json:"total"`
	ByMethod       map[string]int64 `json:"by_method"`
	ByModule       map[string]int64 `json:"by_module"`
	ByLogLevel     map[string]int64 `json:"by_log_level"`
	AvgResponseMs  float64          `json:"avg_response_ms"`
	ErrorCount     int64            `json:"error_count"`
	Last24hEntries int64            `json:"last_24h_entries"`
}

// ProductFilter narrows product listings. Status nil means any.
type ProductFilter struct {
	Name       string
	CategoryID int64
	Status     *bool
	PageArgs
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	Name string
	PageArgs
}

// UserStore persists operator accounts and their role assignments.
type UserStore interface {
	CreateUser(ctx context.Context, u admin.User) (admin.User, error)
	UpdateUser(ctx context.Context, u admin.User) (admin.User, error)
	GetUser(ctx context.Context, id int64) (admin.User, error)
	GetUserByUsername(ctx context.Context, username string) (admin.User, error)
	GetUserByEmail(ctx context.Context, email string) (admin.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]admin.User, int, error)
	DeleteUser(ctx context.Context, id int64) error
	SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	ListUserRoles(ctx context.Context, userID int64) ([]admin.Role, error)
	SetLastLogin(ctx context.Context, userID int64, at time.Time) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
}

// RoleStore persists roles and their grants.
type RoleStore interface {
	CreateRole(ctx context.Context, r admin.Role) (admin.Role, error)
	UpdateRole(ctx context.Context, r admin.Role) (admin.Role, error)
	GetRole(ctx context.Context, id int64) (admin.Role, error)
	GetRoleByName(ctx context.Context, name string) (admin.Role, error)
	ListRoles(ctx context.Context, f RoleFilter) ([]admin.Role, int, error)
	DeleteRole(ctx context.Context, id int64) error
	SetRoleMenus(ctx context.Context, roleID int64, menuIDs []int64) error
	SetRoleApis(ctx context.Context, roleID int64, apiIDs []int64) error
	ListRoleMenus(ctx context.Context, roleID int64) ([]admin.Menu, error)
	ListRoleApis(ctx context.Context, roleID int64) ([]admin.Api, error)
}

// MenuStore persists permission menu records.
type MenuStore interface {
	CreateMenu(ctx context.Context, m admin.Menu) (admin.Menu, error)
	UpdateMenu(ctx context.Context, m admin.Menu) (admin.Menu, error)
	GetMenu(ctx context.Context, id int64) (admin.Menu, error)
	ListMenus(ctx context.Context) ([]admin.Menu, error)
	CountMenuChildren(ctx context.Context, parentID int64) (int, error)
	DeleteMenu(ctx context.Context, id int64) error
}

// ApiStore persists the grantable route table.
type ApiStore interface {
	CreateApi(ctx context.Context, a admin.Api) (admin.Api, error)
	UpdateApi(ctx context.Context, a admin.Api) (admin.Api, error)
	GetApi(ctx context.Context, id int64) (admin.Api, error)
	GetApiByRoute(ctx context.Context, method, path string) (admin.Api, error)
	ListApis(ctx context.Context, f ApiFilter) ([]admin.Api, int, error)
	ListAllApis(ctx context.Context) ([]admin.Api, error)
	ListApiTags(ctx context.Context) ([]string, error)
	DeleteApi(ctx context.Context, id int64) error
}

// DeptStore persists departments and their closure edges. Department
// deletion is soft; closure rows are maintained explicitly by the service.
type DeptStore interface {
	CreateDept(ctx context.Context, d admin.Dept) (admin.Dept, error)
	UpdateDept(ctx context.Context, d admin.Dept) (admin.Dept, error)
	GetDept(ctx context.Context, id int64) (admin.Dept, error)
	GetDeptByName(ctx context.Context, name string) (admin.Dept, error)
	ListDepts(ctx context.Context, name string) ([]admin.Dept, error)
	SoftDeleteDept(ctx context.Context, id int64) error
	HardDeleteDept(ctx context.Context, id int64) error

	ListClosuresTo(ctx context.Context, descendant int64) ([]admin.DeptClosure, error)
	InsertClosures(ctx context.Context, rows []admin.DeptClosure) error
	DeleteClosures(ctx context.Context, deptID int64) error
	ListDescendantIDs(ctx context.Context, ancestor int64) ([]int64, error)
}

// AuditLogStore persists the request audit trail.
type AuditLogStore interface {
	CreateAuditLog(ctx context.Context, e admin.AuditLog) (admin.AuditLog, error)
	ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]admin.AuditLog, int, error)
	SoftDeleteAuditLog(ctx context.Context, id int64) error
	SoftDeleteAuditLogs(ctx context.Context, ids []int64) (int, error)
	// ClearAuditLogs soft-deletes every live entry created before the
	// bound; a zero bound clears the whole trail.
	ClearAuditLogs(ctx context.Context, before time.Time) (int, error)
	AuditLogStats(ctx context.Context) (AuditLogStats, error)
}

// ProductStore persists the catalog.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id int64) (product.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]product.Product, int, error)
	SoftDeleteProduct(ctx context.Context, id int64) error
	SetProductStatus(ctx context.Context, id int64, status bool) error
	CountProductsInCategory(ctx context.Context, categoryID int64) (int, error)

	CreateCategory(ctx context.Context, c product.Category) (product.Category, error)
	UpdateCategory(ctx context.Context, c product.Category) (product.Category, error)
	GetCategory(ctx context.Context, id int64) (product.Category, error)
	GetCategoryByName(ctx context.Context, name string) (product.Category, error)
	ListCategories(ctx context.Context, f CategoryFilter) ([]product.Category, int, error)
	SoftDeleteCategory(ctx context.Context, id int64) error
}
