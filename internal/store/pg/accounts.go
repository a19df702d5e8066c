package pg

import (
	"context"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/auth"
)

// FindAccountByHandle loads the credential view of an officer by login handle.
func (s *Store) FindAccountByHandle(ctx context.Context, handle string) (auth.Account, error) {
	var a auth.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, password_hash, status, active
		FROM officers
		WHERE handle = $1`, handle).
		Scan(&a.ID, &a.Handle, &a.DisplayName, &a.PasswordHash, &a.Status, &a.Active)
	if err != nil {
		return auth.Account{}, apperr.FromStorage(err)
	}
	return a, nil
}

// FindAccountByID loads the credential view of an officer by id.
func (s *Store) FindAccountByID(ctx context.Context, id int64) (auth.Account, error) {
	var a auth.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, password_hash, status, active
		FROM officers
		WHERE id = $1`, id).
		Scan(&a.ID, &a.Handle, &a.DisplayName, &a.PasswordHash, &a.Status, &a.Active)
	if err != nil {
		return auth.Account{}, apperr.FromStorage(err)
	}
	return a, nil
}

// RoleCodes returns the role codes assigned to a principal.
func (s *Store) RoleCodes(ctx context.Context, principalID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.code
		FROM roles r
		JOIN officer_roles orr ON orr.role_id = r.id
		WHERE orr.officer_id = $1
		ORDER BY r.code`, principalID)
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, apperr.FromStorage(err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return codes, nil
}

// PermissionCodes returns the union of permission codes granted through the
// principal's roles. This snapshot is what gets frozen into the session token.
func (s *Store) PermissionCodes(ctx context.Context, principalID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.code
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN officer_roles orr ON orr.role_id = rp.role_id
		WHERE orr.officer_id = $1
		ORDER BY p.code`, principalID)
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, apperr.FromStorage(err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return codes, nil
}

// UpdatePasswordHash replaces a principal's stored credential hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, principalID int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE officers SET password_hash = $1, updated_at = now() WHERE id = $2`,
		hash, principalID)
	if err != nil {
		return apperr.FromStorage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.FromStorage(err)
	}
	if n == 0 {
		return apperr.NotFound("officer not found")
	}
	return nil
}
