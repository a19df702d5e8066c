package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/registry"
)

// OfficerFilter narrows an officer listing.
type OfficerFilter struct {
	Status  string
	Keyword string
	Limit   int
	Offset  int
}

// CreateOfficer provisions an account with an initial role assignment. The
// password is hashed here so the raw credential never reaches the database.
func (s *Store) CreateOfficer(ctx context.Context, in registry.OfficerInput) (registry.Officer, error) {
	o := registry.Officer{
		Handle:      strings.TrimSpace(in.Handle),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Phone:       strings.TrimSpace(in.Phone),
		Status:      strings.TrimSpace(in.Status),
		Active:      true,
	}
	if o.Status == "" {
		o.Status = auth.StatusActive
	}
	if o.Status != auth.StatusActive {
		o.Active = false
	}
	if err := o.Validate(); err != nil {
		return registry.Officer{}, err
	}
	if len(in.Password) < 8 {
		return registry.Officer{}, apperr.Validationf("password", "must be at least 8 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return registry.Officer{}, apperr.Internal(err)
	}
	if err := s.handleAvailable(ctx, o.Handle, 0); err != nil {
		return registry.Officer{}, err
	}

	roleIDs := registry.NormalizeRoleIDs(in.RoleIDs)
	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO officers (handle, display_name, password_hash, phone, status, active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			o.Handle, o.DisplayName, hash, o.Phone, o.Status, o.Active).Scan(&id)
		if err != nil {
			return err
		}
		return insertOfficerRoles(ctx, tx, id, roleIDs)
	})
	if err != nil {
		return registry.Officer{}, err
	}
	return s.loadOfficer(ctx, id)
}

// UpdateOfficer merges the patch over the stored record. Role assignments are
// replaced wholesale only when the patch supplies roleIds.
func (s *Store) UpdateOfficer(ctx context.Context, id int64, p registry.OfficerPatch) (registry.Officer, error) {
	existing, err := s.loadOfficer(ctx, id)
	if err != nil {
		return registry.Officer{}, err
	}
	merged := registry.MergeOfficer(existing, p)
	if err := merged.Validate(); err != nil {
		return registry.Officer{}, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE officers SET display_name = $1, phone = $2, status = $3,
				active = $4, updated_at = now()
			WHERE id = $5`,
			merged.DisplayName, merged.Phone, merged.Status, merged.Active, id)
		if err != nil {
			return err
		}
		if p.RoleIDs != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM officer_roles WHERE officer_id = $1`, id); err != nil {
				return err
			}
			return insertOfficerRoles(ctx, tx, id, registry.NormalizeRoleIDs(*p.RoleIDs))
		}
		return nil
	})
	if err != nil {
		return registry.Officer{}, err
	}
	return s.loadOfficer(ctx, id)
}

// DeactivateOfficer locks an account. The record stays so historical case
// references keep resolving; already-issued tokens expire on their own.
func (s *Store) DeactivateOfficer(ctx context.Context, id int64) (registry.Officer, error) {
	if _, err := s.loadOfficer(ctx, id); err != nil {
		return registry.Officer{}, err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE officers SET status = $1, active = false, updated_at = now()
		WHERE id = $2`, auth.StatusLocked, id)
	if err != nil {
		return registry.Officer{}, apperr.FromStorage(err)
	}
	return s.loadOfficer(ctx, id)
}

// GetOfficer returns one officer with assigned roles.
func (s *Store) GetOfficer(ctx context.Context, id int64) (registry.Officer, error) {
	return s.loadOfficer(ctx, id)
}

// ListOfficers returns officers matching the filter, without role expansion.
func (s *Store) ListOfficers(ctx context.Context, f OfficerFilter) ([]registry.Officer, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		where = append(where, fmt.Sprintf("(handle ILIKE $%d OR display_name ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT id, handle, display_name, status, active, phone, created_at, updated_at FROM officers`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	args = append(args, clampLimit(f.Limit))
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	defer rows.Close()

	out := []registry.Officer{}
	for rows.Next() {
		var o registry.Officer
		if err := rows.Scan(&o.ID, &o.Handle, &o.DisplayName, &o.Status,
			&o.Active, &o.Phone, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, apperr.FromStorage(err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return out, nil
}

// ListRoles returns the static role dictionary.
func (s *Store) ListRoles(ctx context.Context) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	defer rows.Close()

	out := []auth.Role{}
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Code, &r.Name); err != nil {
			return nil, apperr.FromStorage(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return out, nil
}

func (s *Store) loadOfficer(ctx context.Context, id int64) (registry.Officer, error) {
	var o registry.Officer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, status, active, phone, created_at, updated_at
		FROM officers WHERE id = $1`, id).
		Scan(&o.ID, &o.Handle, &o.DisplayName, &o.Status, &o.Active,
			&o.Phone, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return registry.Officer{}, apperr.FromStorage(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.code, r.name
		FROM roles r
		JOIN officer_roles orr ON orr.role_id = r.id
		WHERE orr.officer_id = $1
		ORDER BY r.id`, id)
	if err != nil {
		return registry.Officer{}, apperr.FromStorage(err)
	}
	defer rows.Close()
	o.Roles = []auth.Role{}
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Code, &r.Name); err != nil {
			return registry.Officer{}, apperr.FromStorage(err)
		}
		o.Roles = append(o.Roles, r)
	}
	if err := rows.Err(); err != nil {
		return registry.Officer{}, apperr.FromStorage(err)
	}
	return o, nil
}

func (s *Store) handleAvailable(ctx context.Context, handle string, excludeID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM officers WHERE handle = $1 AND id <> $2)`,
		handle, excludeID).Scan(&exists)
	if err != nil {
		return apperr.FromStorage(err)
	}
	if exists {
		return apperr.Conflict("handle already in use")
	}
	return nil
}

// insertOfficerRoles writes role assignments; a dangling role id trips the
// foreign key, which FromStorage reports as NotFound.
func insertOfficerRoles(ctx context.Context, tx *sql.Tx, officerID int64, roleIDs []int64) error {
	for _, rid := range roleIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO officer_roles (officer_id, role_id) VALUES ($1, $2)`,
			officerID, rid); err != nil {
			return err
		}
	}
	return nil
}
