// Package app composes the domain services over their stores and manages
// their lifecycle. Business rules live in internal/app/services, persistence
// behind internal/app/storage, and the HTTP surface in internal/app/httpapi;
// this package only wires them together.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/services/apis"
	"github.com/opsdeck/backoffice/internal/app/services/auditlogs"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/app/services/depts"
	"github.com/opsdeck/backoffice/internal/app/services/menus"
	"github.com/opsdeck/backoffice/internal/app/services/products"
	"github.com/opsdeck/backoffice/internal/app/services/roles"
	"github.com/opsdeck/backoffice/internal/app/services/uploads"
	"github.com/opsdeck/backoffice/internal/app/services/users"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/app/storage/memory"
	"github.com/opsdeck/backoffice/internal/app/system"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users     storage.UserStore
	Roles     storage.RoleStore
	Menus     storage.MenuStore
	Apis      storage.ApiStore
	Depts     storage.DeptStore
	AuditLogs storage.AuditLogStore
	Catalog   storage.ProductStore
}

// Options carries everything Application construction needs beyond stores.
type Options struct {
	Stores    Stores
	Auth      auth.Config
	Blacklist auth.Blacklist // nil selects the in-memory blacklist
	UploadDir string
	MaxUpload int64
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     zerolog.Logger

	Auth      *auth.Service
	Users     *users.Service
	Roles     *roles.Service
	Menus     *menus.Service
	Apis      *apis.Service
	Depts     *depts.Service
	AuditLogs *auditlogs.Service
	Catalog   *products.Service
	Uploads   *uploads.Service
}

// New builds a fully initialised application with the provided stores.
func New(opts Options, log zerolog.Logger) (*Application, error) {
	stores := opts.Stores
	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Roles == nil {
		stores.Roles = mem
	}
	if stores.Menus == nil {
		stores.Menus = mem
	}
	if stores.Apis == nil {
		stores.Apis = mem
	}
	if stores.Depts == nil {
		stores.Depts = mem
	}
	if stores.AuditLogs == nil {
		stores.AuditLogs = mem
	}
	if stores.Catalog == nil {
		stores.Catalog = mem
	}

	manager := system.NewManager(log)

	authSvc := auth.New(stores.Users, stores.Roles, stores.Menus, stores.Apis, opts.Blacklist, opts.Auth, log)
	if svc, ok := authSvc.Blacklist().(system.Service); ok {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register blacklist: %w", err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Auth:      authSvc,
		Users:     users.New(stores.Users, stores.Depts, log),
		Roles:     roles.New(stores.Roles, log),
		Menus:     menus.New(stores.Menus, log),
		Apis:      apis.New(stores.Apis, log),
		Depts:     depts.New(stores.Depts, log),
		AuditLogs: auditlogs.New(stores.AuditLogs, log),
		Catalog:   products.New(stores.Catalog, log),
		Uploads:   uploads.New(opts.UploadDir, opts.MaxUpload, log),
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
