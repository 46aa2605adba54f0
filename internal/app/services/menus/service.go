// Package menus manages the permission menu records behind the navigation
// tree.
package menus

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /menu operations.
type Service struct {
	store storage.MenuStore
	log   zerolog.Logger
}

// New constructs a menu service.
func New(store storage.MenuStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "menus").Logger(),
	}
}

// List returns the menu tree, paged over the top-level entries. Children
// always travel with their parent.
func (s *Service) List(ctx context.Context, page storage.PageArgs) ([]admin.Menu, int, error) {
	all, err := s.store.ListMenus(ctx)
	if err != nil {
		return nil, 0, err
	}
	tree := admin.MenuTree(all)
	total := len(tree)

	p := page.Normalized()
	off := page.Offset()
	if off >= len(tree) {
		return []admin.Menu{}, total, nil
	}
	end := off + p.PageSize
	if end > len(tree) {
		end = len(tree)
	}
	return tree[off:end], total, nil
}

// Get returns one menu record.
func (s *Service) Get(ctx context.Context, id int64) (admin.Menu, error) {
	return s.store.GetMenu(ctx, id)
}

// Create validates and stores a new menu record.
func (s *Service) Create(ctx context.Context, m admin.Menu) (admin.Menu, error) {
	if err := s.validate(ctx, &m); err != nil {
		return admin.Menu{}, err
	}
	created, err := s.store.CreateMenu(ctx, m)
	if err != nil {
		return admin.Menu{}, err
	}
	s.log.Info().Int64("menu_id", created.ID).Str("name", created.Name).Msg("menu created")
	return created, nil
}

// Update validates and stores the changed record. Reparenting onto the
// record itself or one of its descendants is refused.
func (s *Service) Update(ctx context.Context, m admin.Menu) (admin.Menu, error) {
	if err := s.validate(ctx, &m); err != nil {
		return admin.Menu{}, err
	}
	if m.ParentID != 0 {
		if m.ParentID == m.ID {
			return admin.Menu{}, errdefs.Business("menu cannot be its own parent")
		}
		ok, err := s.wouldCycle(ctx, m.ID, m.ParentID)
		if err != nil {
			return admin.Menu{}, err
		}
		if ok {
			return admin.Menu{}, errdefs.Business("menu cannot move under one of its descendants")
		}
	}
	return s.store.UpdateMenu(ctx, m)
}

// Delete removes a leaf menu. Records with children are refused so subtrees
// never orphan silently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	children, err := s.store.CountMenuChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return errdefs.Business("cannot delete a menu that still has children")
	}
	if err := s.store.DeleteMenu(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("menu_id", id).Msg("menu deleted")
	return nil
}

func (s *Service) validate(ctx context.Context, m *admin.Menu) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Path = strings.TrimSpace(m.Path)
	if m.Name == "" {
		return errdefs.Business("menu name is required")
	}
	switch m.MenuType {
	case admin.MenuTypeCatalog, admin.MenuTypeMenu, admin.MenuTypeButton:
	case "":
		m.MenuType = admin.MenuTypeMenu
	default:
		return errdefs.Businessf("unknown menu type %q", m.MenuType)
	}
	if m.ParentID != 0 {
		if _, err := s.store.GetMenu(ctx, m.ParentID); err != nil {
			return errdefs.Businessf("parent menu %d does not exist", m.ParentID)
		}
	}
	return nil
}

// wouldCycle reports whether newParent sits in the subtree rooted at id.
func (s *Service) wouldCycle(ctx context.Context, id, newParent int64) (bool, error) {
	all, err := s.store.ListMenus(ctx)
	if err != nil {
		return false, err
	}
	parentOf := make(map[int64]int64, len(all))
	for _, m := range all {
		parentOf[m.ID] = m.ParentID
	}
	for cur, hops := newParent, 0; cur != 0 && hops <= len(all); hops++ {
		if cur == id {
			return true, nil
		}
		cur = parentOf[cur]
	}
	return false, nil
}
