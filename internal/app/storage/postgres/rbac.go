package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/storage"
)

// RoleStore ----------------------------------------------------------------

const roleColumns = `id, name, "desc", created_at, updated_at`

func (s *Store) CreateRole(ctx context.Context, r admin.Role) (admin.Role, error) {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_role (name, "desc", created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.Name, r.Desc, r.CreatedAt, r.UpdatedAt).Scan(&r.ID)
	if err != nil {
		return admin.Role{}, mapErr(err, "role", r.Name)
	}
	r.Menus, r.Apis = nil, nil
	return r, nil
}

func (s *Store) UpdateRole(ctx context.Context, r admin.Role) (admin.Role, error) {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_role SET name = $2, "desc" = $3, updated_at = $4 WHERE id = $1
	`, r.ID, r.Name, r.Desc, r.UpdatedAt)
	if err != nil {
		return admin.Role{}, mapErr(err, "role", r.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return admin.Role{}, fmt.Errorf("role %d: %w", r.ID, storage.ErrNotFound)
	}
	return s.GetRole(ctx, r.ID)
}

func (s *Store) GetRole(ctx context.Context, id int64) (admin.Role, error) {
	var r admin.Role
	err := s.db.GetContext(ctx, &r,
		`SELECT `+roleColumns+` FROM admin_role WHERE id = $1`, id)
	if err != nil {
		return admin.Role{}, mapErr(err, "role", id)
	}
	return r, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (admin.Role, error) {
	var r admin.Role
	err := s.db.GetContext(ctx, &r,
		`SELECT `+roleColumns+` FROM admin_role WHERE lower(name) = lower($1)`, name)
	if err != nil {
		return admin.Role{}, mapErr(err, "role", name)
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context, f storage.RoleFilter) ([]admin.Role, int, error) {
	where := "TRUE"
	var args []any
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		where = "name ILIKE $1"
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM admin_role WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	p := f.PageArgs.Normalized()
	args = append(args, p.PageSize, f.PageArgs.Offset())
	roles := []admin.Role{}
	err := s.db.SelectContext(ctx, &roles,
		`SELECT `+roleColumns+` FROM admin_role WHERE `+where+
			fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_role WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("role %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SetRoleMenus(ctx context.Context, roleID int64, menuIDs []int64) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM admin_role_menu WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, menuID := range menuIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO admin_role_menu (role_id, menu_id) VALUES ($1, $2)`,
				roleID, menuID); err != nil {
				return mapErr(err, "menu", menuID)
			}
		}
		return nil
	})
}

func (s *Store) SetRoleApis(ctx context.Context, roleID int64, apiIDs []int64) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM admin_role_api WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, apiID := range apiIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO admin_role_api (role_id, api_id) VALUES ($1, $2)`,
				roleID, apiID); err != nil {
				return mapErr(err, "api", apiID)
			}
		}
		return nil
	})
}

func (s *Store) ListRoleMenus(ctx context.Context, roleID int64) ([]admin.Menu, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	menus := []admin.Menu{}
	err := s.db.SelectContext(ctx, &menus, `
		SELECT m.id, m.name, m.menu_type, m.icon, m.path, m.sort_order,
			m.parent_id, m.is_hidden, m.component, m.keepalive, m.redirect,
			m.remark, m.created_at, m.updated_at
		FROM admin_menu m
		JOIN admin_role_menu rm ON rm.menu_id = m.id
		WHERE rm.role_id = $1
		ORDER BY m.sort_order, m.id
	`, roleID)
	if err != nil {
		return nil, err
	}
	return menus, nil
}

func (s *Store) ListRoleApis(ctx context.Context, roleID int64) ([]admin.Api, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	apis := []admin.Api{}
	err := s.db.SelectContext(ctx, &apis, `
		SELECT a.id, a.path, a.method, a.summary, a.tags, a.created_at, a.updated_at
		FROM admin_api a
		JOIN admin_role_api ra ON ra.api_id = a.id
		WHERE ra.role_id = $1
		ORDER BY a.id
	`, roleID)
	if err != nil {
		return nil, err
	}
	return apis, nil
}

// MenuStore ------------------------------------------------------------------

const menuColumns = `id, name, menu_type, icon, path, sort_order, parent_id,
	is_hidden, component, keepalive, redirect, remark, created_at, updated_at`

func (s *Store) CreateMenu(ctx context.Context, m admin.Menu) (admin.Menu, error) {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_menu (name, menu_type, icon, path, sort_order, parent_id,
			is_hidden, component, keepalive, redirect, remark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, m.Name, m.MenuType, m.Icon, m.Path, m.Order, m.ParentID,
		m.IsHidden, m.Component, m.KeepAlive, m.Redirect, nullJSON(m.Remark),
		m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
	if err != nil {
		return admin.Menu{}, mapErr(err, "menu", m.Name)
	}
	m.Children = nil
	return m, nil
}

func (s *Store) UpdateMenu(ctx context.Context, m admin.Menu) (admin.Menu, error) {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_menu
		SET name = $2, menu_type = $3, icon = $4, path = $5, sort_order = $6,
			parent_id = $7, is_hidden = $8, component = $9, keepalive = $10,
			redirect = $11, remark = $12, updated_at = $13
		WHERE id = $1
	`, m.ID, m.Name, m.MenuType, m.Icon, m.Path, m.Order, m.ParentID,
		m.IsHidden, m.Component, m.KeepAlive, m.Redirect, nullJSON(m.Remark),
		m.UpdatedAt)
	if err != nil {
		return admin.Menu{}, mapErr(err, "menu", m.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return admin.Menu{}, fmt.Errorf("menu %d: %w", m.ID, storage.ErrNotFound)
	}
	return s.GetMenu(ctx, m.ID)
}

func (s *Store) GetMenu(ctx context.Context, id int64) (admin.Menu, error) {
	var m admin.Menu
	err := s.db.GetContext(ctx, &m,
		`SELECT `+menuColumns+` FROM admin_menu WHERE id = $1`, id)
	if err != nil {
		return admin.Menu{}, mapErr(err, "menu", id)
	}
	return m, nil
}

func (s *Store) ListMenus(ctx context.Context) ([]admin.Menu, error) {
	menus := []admin.Menu{}
	err := s.db.SelectContext(ctx, &menus,
		`SELECT `+menuColumns+` FROM admin_menu ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	return menus, nil
}

func (s *Store) CountMenuChildren(ctx context.Context, parentID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM admin_menu WHERE parent_id = $1`, parentID)
	return count, err
}

func (s *Store) DeleteMenu(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_menu WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("menu %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ApiStore ---------------------------------------------------------------

const apiColumns = `id, path, method, summary, tags, created_at, updated_at`

func (s *Store) CreateApi(ctx context.Context, a admin.Api) (admin.Api, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_api (path, method, summary, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.Path, strings.ToUpper(a.Method), a.Summary, a.Tags, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		return admin.Api{}, mapErr(err, "api", a.Method+" "+a.Path)
	}
	a.Method = strings.ToUpper(a.Method)
	return a, nil
}

func (s *Store) UpdateApi(ctx context.Context, a admin.Api) (admin.Api, error) {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_api
		SET path = $2, method = $3, summary = $4, tags = $5, updated_at = $6
		WHERE id = $1
	`, a.ID, a.Path, strings.ToUpper(a.Method), a.Summary, a.Tags, a.UpdatedAt)
	if err != nil {
		return admin.Api{}, mapErr(err, "api", a.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return admin.Api{}, fmt.Errorf("api %d: %w", a.ID, storage.ErrNotFound)
	}
	return s.GetApi(ctx, a.ID)
}

func (s *Store) GetApi(ctx context.Context, id int64) (admin.Api, error) {
	var a admin.Api
	err := s.db.GetContext(ctx, &a,
		`SELECT `+apiColumns+` FROM admin_api WHERE id = $1`, id)
	if err != nil {
		return admin.Api{}, mapErr(err, "api", id)
	}
	return a, nil
}

func (s *Store) GetApiByRoute(ctx context.Context, method, path string) (admin.Api, error) {
	var a admin.Api
	err := s.db.GetContext(ctx, &a,
		`SELECT `+apiColumns+` FROM admin_api WHERE method = $1 AND path = $2`,
		strings.ToUpper(method), path)
	if err != nil {
		return admin.Api{}, mapErr(err, "api", method+" "+path)
	}
	return a, nil
}

func (s *Store) ListApis(ctx context.Context, f storage.ApiFilter) ([]admin.Api, int, error) {
	where := []string{"TRUE"}
	var args []any
	if f.Path != "" {
		args = append(args, "%"+f.Path+"%")
		where = append(where, fmt.Sprintf("path ILIKE $%d", len(args)))
	}
	if f.Summary != "" {
		args = append(args, "%"+f.Summary+"%")
		where = append(where, fmt.Sprintf("summary ILIKE $%d", len(args)))
	}
	if f.Tags != "" {
		args = append(args, "%"+f.Tags+"%")
		where = append(where, fmt.Sprintf("tags ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM admin_api WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	p := f.PageArgs.Normalized()
	args = append(args, p.PageSize, f.PageArgs.Offset())
	apis := []admin.Api{}
	err := s.db.SelectContext(ctx, &apis,
		`SELECT `+apiColumns+` FROM admin_api WHERE `+cond+
			fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return apis, total, nil
}

func (s *Store) ListAllApis(ctx context.Context) ([]admin.Api, error) {
	apis := []admin.Api{}
	err := s.db.SelectContext(ctx, &apis,
		`SELECT `+apiColumns+` FROM admin_api ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return apis, nil
}

func (s *Store) ListApiTags(ctx context.Context) ([]string, error) {
	tags := []string{}
	err := s.db.SelectContext(ctx, &tags,
		`SELECT DISTINCT tags FROM admin_api WHERE tags <> '' ORDER BY tags`)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) DeleteApi(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_api WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("api %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
