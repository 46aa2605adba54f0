// Package depts manages the organizational tree. Ancestry is materialized in
// a closure table so descendant lookups never walk the tree at query time.
package depts

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Service implements the /dept operations.
type Service struct {
	store storage.DeptStore
	log   zerolog.Logger
}

// New constructs a department service.
func New(store storage.DeptStore, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "depts").Logger(),
	}
}

// List returns the department tree, optionally filtered by name. A name
// filter matches nodes anywhere; matches keep their own subtrees.
func (s *Service) List(ctx context.Context, name string) ([]admin.Dept, error) {
	depts, err := s.store.ListDepts(ctx, name)
	if err != nil {
		return nil, err
	}
	return admin.DeptTree(depts), nil
}

// Get returns one department.
func (s *Service) Get(ctx context.Context, id int64) (admin.Dept, error) {
	return s.store.GetDept(ctx, id)
}

// Create stores a new department and its closure rows. Creating under the
// name of a soft-deleted department restores that record instead of
// inserting a conflicting twin.
func (s *Service) Create(ctx context.Context, d admin.Dept) (admin.Dept, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return admin.Dept{}, errdefs.Business("department name is required")
	}
	if d.ParentID != 0 {
		if _, err := s.store.GetDept(ctx, d.ParentID); err != nil {
			return admin.Dept{}, errdefs.Businessf("parent department %d does not exist", d.ParentID)
		}
	}

	if existing, err := s.store.GetDeptByName(ctx, d.Name); err == nil {
		if !existing.IsDeleted {
			return admin.Dept{}, errdefs.Conflict("department name already exists")
		}
		// Restore the soft-deleted record under the requested parent.
		existing.Desc = d.Desc
		existing.Order = d.Order
		existing.ParentID = d.ParentID
		existing.IsDeleted = false
		restored, err := s.store.UpdateDept(ctx, existing)
		if err != nil {
			return admin.Dept{}, err
		}
		if err := s.rebuildClosures(ctx, restored.ID); err != nil {
			return admin.Dept{}, err
		}
		s.log.Info().Int64("dept_id", restored.ID).Str("name", restored.Name).Msg("dept restored")
		return restored, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return admin.Dept{}, err
	}

	created, err := s.store.CreateDept(ctx, d)
	if err != nil {
		return admin.Dept{}, err
	}
	if err := s.insertClosureChain(ctx, created); err != nil {
		return admin.Dept{}, err
	}
	s.log.Info().Int64("dept_id", created.ID).Str("name", created.Name).Msg("dept created")
	return created, nil
}

// Update stores the changed fields. Moving a department re-anchors the whole
// subtree's ancestry; moving under itself or a descendant is refused.
func (s *Service) Update(ctx context.Context, d admin.Dept) (admin.Dept, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return admin.Dept{}, errdefs.Business("department name is required")
	}
	current, err := s.store.GetDept(ctx, d.ID)
	if err != nil {
		return admin.Dept{}, err
	}

	moved := current.ParentID != d.ParentID
	if moved && d.ParentID != 0 {
		if d.ParentID == d.ID {
			return admin.Dept{}, errdefs.Business("department cannot be its own parent")
		}
		if _, err := s.store.GetDept(ctx, d.ParentID); err != nil {
			return admin.Dept{}, errdefs.Businessf("parent department %d does not exist", d.ParentID)
		}
		descendants, err := s.store.ListDescendantIDs(ctx, d.ID)
		if err != nil {
			return admin.Dept{}, err
		}
		for _, id := range descendants {
			if id == d.ParentID {
				return admin.Dept{}, errdefs.Business("department cannot move under one of its descendants")
			}
		}
	}

	d.IsDeleted = false
	updated, err := s.store.UpdateDept(ctx, d)
	if err != nil {
		return admin.Dept{}, err
	}
	if moved {
		if err := s.rebuildClosures(ctx, d.ID); err != nil {
			return admin.Dept{}, err
		}
		s.log.Info().Int64("dept_id", d.ID).Int64("parent_id", d.ParentID).Msg("dept moved")
	}
	return updated, nil
}

// Delete soft-deletes the department and every descendant, then drops their
// closure rows. Restoring later goes through Create's same-name rule.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetDept(ctx, id); err != nil {
		return err
	}
	descendants, err := s.store.ListDescendantIDs(ctx, id)
	if err != nil {
		return err
	}

	ids := append([]int64{id}, descendants...)
	for _, deptID := range ids {
		if err := s.store.SoftDeleteDept(ctx, deptID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	for _, deptID := range ids {
		if err := s.store.DeleteClosures(ctx, deptID); err != nil {
			return err
		}
	}
	s.log.Info().Int64("dept_id", id).Int("cascade", len(descendants)).Msg("dept deleted")
	return nil
}

// insertClosureChain writes the self row plus one row per ancestor of the
// parent, shifted one level down.
func (s *Service) insertClosureChain(ctx context.Context, d admin.Dept) error {
	rows := []admin.DeptClosure{{Ancestor: d.ID, Descendant: d.ID, Level: 0}}
	if d.ParentID != 0 {
		parentRows, err := s.store.ListClosuresTo(ctx, d.ParentID)
		if err != nil {
			return err
		}
		for _, pr := range parentRows {
			rows = append(rows, admin.DeptClosure{
				Ancestor:   pr.Ancestor,
				Descendant: d.ID,
				Level:      pr.Level + 1,
			})
		}
	}
	return s.store.InsertClosures(ctx, rows)
}

// rebuildClosures recomputes ancestry for the subtree rooted at id. Nodes
// are processed parents-first so each step can copy its parent's already
// correct chain.
func (s *Service) rebuildClosures(ctx context.Context, id int64) error {
	all, err := s.store.ListDepts(ctx, "")
	if err != nil {
		return err
	}
	byID := make(map[int64]admin.Dept, len(all))
	childrenOf := make(map[int64][]admin.Dept, len(all))
	for _, d := range all {
		byID[d.ID] = d
		childrenOf[d.ParentID] = append(childrenOf[d.ParentID], d)
	}
	root, ok := byID[id]
	if !ok {
		return errdefs.Businessf("department %d does not exist", id)
	}

	queue := []admin.Dept{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if err := s.store.DeleteClosures(ctx, cur.ID); err != nil {
			return err
		}
		if err := s.insertClosureChain(ctx, cur); err != nil {
			return err
		}
		queue = append(queue, childrenOf[cur.ID]...)
	}
	return nil
}
