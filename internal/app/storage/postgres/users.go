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

const userColumns = `id, username, nickname, COALESCE(email, '') AS email, phone,
	password, is_active, is_superuser, last_login, dept_id, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u admin.User) (admin.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admin_user (username, nickname, email, phone, password,
			is_active, is_superuser, dept_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, u.Username, u.Nickname, nullStr(u.Email), u.Phone, u.Password,
		u.IsActive, u.IsSuperuser, u.DeptID, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return admin.User{}, mapErr(err, "user", u.Username)
	}
	u.Roles = nil
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u admin.User) (admin.User, error) {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE admin_user
		SET username = $2, nickname = $3, email = $4, phone = $5,
			is_active = $6, is_superuser = $7, dept_id = $8, updated_at = $9
		WHERE id = $1
	`, u.ID, u.Username, u.Nickname, nullStr(u.Email), u.Phone,
		u.IsActive, u.IsSuperuser, u.DeptID, u.UpdatedAt)
	if err != nil {
		return admin.User{}, mapErr(err, "user", u.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return admin.User{}, fmt.Errorf("user %d: %w", u.ID, storage.ErrNotFound)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id int64) (admin.User, error) {
	var u admin.User
	err := s.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM admin_user WHERE id = $1`, id)
	if err != nil {
		return admin.User{}, mapErr(err, "user", id)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (admin.User, error) {
	var u admin.User
	err := s.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM admin_user WHERE lower(username) = lower($1)`, username)
	if err != nil {
		return admin.User{}, mapErr(err, "user", username)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (admin.User, error) {
	var u admin.User
	err := s.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM admin_user WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return admin.User{}, mapErr(err, "user", email)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context, f storage.UserFilter) ([]admin.User, int, error) {
	where := []string{"TRUE"}
	var args []any
	if f.Username != "" {
		args = append(args, "%"+f.Username+"%")
		where = append(where, fmt.Sprintf("username ILIKE $%d", len(args)))
	}
	if f.Email != "" {
		args = append(args, "%"+f.Email+"%")
		where = append(where, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if f.DeptID > 0 {
		args = append(args, f.DeptID)
		where = append(where, fmt.Sprintf("dept_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM admin_user WHERE `+cond, args...); err != nil {
		return nil, 0, err
	}

	p := f.PageArgs.Normalized()
	args = append(args, p.PageSize, f.PageArgs.Offset())
	users := []admin.User{}
	err := s.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM admin_user WHERE `+cond+
			fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_user WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "user", id)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM admin_user_role WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO admin_user_role (user_id, role_id) VALUES ($1, $2)`,
				userID, roleID); err != nil {
				return mapErr(err, "role", roleID)
			}
		}
		return nil
	})
}

func (s *Store) ListUserRoles(ctx context.Context, userID int64) ([]admin.Role, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	roles := []admin.Role{}
	err := s.db.SelectContext(ctx, &roles, `
		SELECT r.id, r.name, r."desc", r.created_at, r.updated_at
		FROM admin_role r
		JOIN admin_user_role ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admin_user SET last_login = $2 WHERE id = $1`, userID, at.UTC())
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE admin_user SET password = $2, updated_at = now() WHERE id = $1`,
		userID, hash)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	return nil
}
