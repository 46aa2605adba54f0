// Package apis manages the grantable route table the RBAC middleware checks
// against.
package apis

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /api operations.
type Service struct {
	store storage.ApiStore
	log   zerolog.Logger
}

// New constructs an API table service.
func New(store storage.ApiStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "apis").Logger(),
	}
}

// List returns a page of API records.
func (s *Service) List(ctx context.Context, f storage.ApiFilter) ([]admin.Api, int, error) {
	return s.store.ListApis(ctx, f)
}

// Get returns one API record.
func (s *Service) Get(ctx context.Context, id int64) (admin.Api, error) {
	return s.store.GetApi(ctx, id)
}

// Create stores a new grantable route.
func (s *Service) Create(ctx context.Context, a admin.Api) (admin.Api, error) {
	if err := normalize(&a); err != nil {
		return admin.Api{}, err
	}
	created, err := s.store.CreateApi(ctx, a)
	if err != nil {
		return admin.Api{}, err
	}
	s.log.Info().Str("perm", created.Perm()).Msg("api created")
	return created, nil
}

// Update stores the changed route record.
func (s *Service) Update(ctx context.Context, a admin.Api) (admin.Api, error) {
	if err := normalize(&a); err != nil {
		return admin.Api{}, err
	}
	return s.store.UpdateApi(ctx, a)
}

// Delete removes the route record. Role grants referencing it cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteApi(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("api_id", id).Msg("api deleted")
	return nil
}

// Tags returns the distinct tag values for the filter dropdown.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	return s.store.ListApiTags(ctx)
}

// Refresh reconciles the stored table with the routes the server actually
// serves: unknown routes are inserted, stale records removed, summaries and
// tags of surviving records refreshed. It reports how many of each.
func (s *Service) Refresh(ctx context.Context, live []admin.Api) (added, removed int, err error) {
	stored, err := s.store.ListAllApis(ctx)
	if err != nil {
		return 0, 0, err
	}

	key := func(a admin.Api) string { return strings.ToUpper(a.Method) + " " + a.Path }
	liveByKey := make(map[string]admin.Api, len(live))
	for _, a := range live {
		if err := normalize(&a); err != nil {
			return 0, 0, err
		}
		liveByKey[key(a)] = a
	}

	storedByKey := make(map[string]admin.Api, len(stored))
	for _, a := range stored {
		storedByKey[key(a)] = a
	}

	for k, a := range liveByKey {
		existing, ok := storedByKey[k]
		if !ok {
			if _, err := s.store.CreateApi(ctx, a); err != nil && !errors.Is(err, storage.ErrConflict) {
				return added, removed, err
			}
			added++
			continue
		}
		if existing.Summary != a.Summary || existing.Tags != a.Tags {
			existing.Summary = a.Summary
			existing.Tags = a.Tags
			if _, err := s.store.UpdateApi(ctx, existing); err != nil {
				return added, removed, err
			}
		}
	}

	for k, a := range storedByKey {
		if _, ok := liveByKey[k]; ok {
			continue
		}
		if err := s.store.DeleteApi(ctx, a.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return added, removed, err
		}
		removed++
	}

	s.log.Info().Int("added", added).Int("removed", removed).Msg("api table refreshed")
	return added, removed, nil
}

func normalize(a *admin.Api) error {
	a.Method = strings.ToUpper(strings.TrimSpace(a.Method))
	a.Path = strings.TrimSpace(a.Path)
	switch a.Method {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
	default:
		return errdefs.Businessf("unsupported method %q", a.Method)
	}
	if !strings.HasPrefix(a.Path, "/") {
		return errdefs.Business("api path must start with /")
	}
	return nil
}
