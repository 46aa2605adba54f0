// Package admin holds the RBAC entities: operators, roles, permission menus,
// API grants, departments and the audit trail.
package admin

import (
	"encoding/json"
	"strings"
	"time"
)

// PermString is the grant form of a route: lower-cased method immediately
// followed by the path, e.g. "get/api/v1/user/list". The userapi endpoint
// and the RBAC middleware both use this form.
func PermString(method, path string) string {
	return strings.ToLower(method) + path
}

// User is an operator account. The password hash never serializes.
type User struct {
	ID          int64      `json:"id" db:"id"`
	Username    string     `json:"username" db:"username"`
	Nickname    string     `json:"nickname" db:"nickname"`
	Email       string     `json:"email" db:"email"`
	Phone       string     `json:"phone" db:"phone"`
	Password    string     `json:"-" db:"password"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	IsSuperuser bool       `json:"is_superuser" db:"is_superuser"`
	LastLogin   *time.Time `json:"last_login" db:"last_login"`
	DeptID      int64      `json:"dept_id" db:"dept_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Roles is populated on reads; persistence goes through the m2m table.
	Roles []Role `json:"roles" db:"-"`
}

// RoleNames lists the user's role names for token claims and display.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Role groups menu and API grants.
type Role struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Desc      string    `json:"desc" db:"desc"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Populated by the authorized endpoints; persisted via m2m tables.
	Menus []Menu `json:"menus,omitempty" db:"-"`
	Apis  []Api  `json:"apis,omitempty" db:"-"`
}

// Api is one grantable backend route.
type Api struct {
	ID        int64     `json:"id" db:"id"`
	Path      string    `json:"path" db:"path"`
	Method    string    `json:"method" db:"method"`
	Summary   string    `json:"summary" db:"summary"`
	Tags      string    `json:"tags" db:"tags"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Perm is the "method path" permission string checked by the RBAC
// middleware, lower-cased method per the grant convention.
func (a Api) Perm() string {
	return PermString(a.Method, a.Path)
}

// Menu types. Catalogs group menus; buttons carry page-level action
// permissions and never appear in the navigation tree.
const (
	MenuTypeCatalog = "catalog"
	MenuTypeMenu    = "menu"
	MenuTypeButton  = "button"
)

// Menu is one navigation or permission record.
type Menu struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	MenuType  string          `json:"menu_type" db:"menu_type"`
	Icon      string          `json:"icon" db:"icon"`
	Path      string          `json:"path" db:"path"`
	Order     int             `json:"order" db:"sort_order"`
	ParentID  int64           `json:"parent_id" db:"parent_id"`
	IsHidden  bool            `json:"is_hidden" db:"is_hidden"`
	Component string          `json:"component" db:"component"`
	KeepAlive bool            `json:"keepalive" db:"keepalive"`
	Redirect  string          `json:"redirect" db:"redirect"`
	Remark    json.RawMessage `json:"remark,omitempty" db:"remark"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`

	Children []Menu `json:"children,omitempty" db:"-"`
}

// Dept is an organizational unit. Deletion is soft; the closure table keeps
// ancestry queries cheap.
type Dept struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Desc      string    `json:"desc" db:"desc"`
	Order     int       `json:"order" db:"sort_order"`
	ParentID  int64     `json:"parent_id" db:"parent_id"`
	IsDeleted bool      `json:"-" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Children []Dept `json:"children,omitempty" db:"-"`
}

// DeptClosure is one ancestry edge: ancestor reaches descendant in level
// steps. Every department keeps a self edge at level zero.
type DeptClosure struct {
	ID         int64 `json:"id" db:"id"`
	Ancestor   int64 `json:"ancestor" db:"ancestor"`
	Descendant int64 `json:"descendant" db:"descendant"`
	Level      int   `json:"level" db:"level"`
}

// AuditLog is one recorded request against a mutating or sensitive endpoint.
type AuditLog struct {
	ID            int64           `json:"id" db:"id"`
	UserID        int64           `json:"user_id" db:"user_id"`
	Username      string          `json:"username" db:"username"`
	Module        string          `json:"module" db:"module"`
	Summary       string          `json:"summary" db:"summary"`
	Method        string          `json:"method" db:"method"`
	Path          string          `json:"path" db:"path"`
	Status        int             `json:"status" db:"status"`
	ResponseTime  int             `json:"response_time" db:"response_time"`
	RequestArgs   json.RawMessage `json:"request_args,omitempty" db:"request_args"`
	ResponseBody  json.RawMessage `json:"response_body,omitempty" db:"response_body"`
	IPAddress     string          `json:"ip_address" db:"ip_address"`
	UserAgent     string          `json:"user_agent" db:"user_agent"`
	OperationType string          `json:"operation_type" db:"operation_type"`
	LogLevel      string          `json:"log_level" db:"log_level"`
	IsDeleted     bool            `json:"-" db:"is_deleted"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Operation types recorded by the audit middleware.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpQuery  = "query"
	OpLogin  = "login"
	OpOther  = "other"
)
