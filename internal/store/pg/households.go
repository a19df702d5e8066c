package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/registry"
)

// HouseholdFilter narrows a household listing.
type HouseholdFilter struct {
	Keyword string
	Limit   int
	Offset  int
}

// CreateHousehold writes a new registry entry with its member list. The head
// of household always ends up on the member list as 户主.
func (s *Store) CreateHousehold(ctx context.Context, p registry.HouseholdPatch) (registry.Household, error) {
	merged := registry.MergeHousehold(registry.Household{}, p)
	if err := merged.Validate(); err != nil {
		return registry.Household{}, err
	}
	if err := s.householdNoAvailable(ctx, merged.HouseholdNo, 0); err != nil {
		return registry.Household{}, err
	}

	var members []registry.HouseholdMember
	if p.Members != nil {
		members = *p.Members
	}
	members = registry.NormalizeHouseholdMembers(members, merged.HeadName, merged.HeadIDNumber)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO households (household_no, address, head_name, head_id_number, phone)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			merged.HouseholdNo, merged.Address, merged.HeadName,
			merged.HeadIDNumber, merged.Phone).Scan(&id)
		if err != nil {
			return err
		}
		return insertHouseholdMembers(ctx, tx, id, members)
	})
	if err != nil {
		return registry.Household{}, err
	}
	return s.loadHousehold(ctx, id)
}

// UpdateHousehold merges the patch over the stored aggregate. The member list
// is reconciled when the patch supplies it, and also when the head changes so
// the 户主 row tracks the new head.
func (s *Store) UpdateHousehold(ctx context.Context, id int64, p registry.HouseholdPatch) (registry.Household, error) {
	existing, err := s.loadHousehold(ctx, id)
	if err != nil {
		return registry.Household{}, err
	}
	merged := registry.MergeHousehold(existing, p)
	if err := merged.Validate(); err != nil {
		return registry.Household{}, err
	}
	if merged.HouseholdNo != existing.HouseholdNo {
		if err := s.householdNoAvailable(ctx, merged.HouseholdNo, id); err != nil {
			return registry.Household{}, err
		}
	}

	headChanged := merged.HeadName != existing.HeadName || merged.HeadIDNumber != existing.HeadIDNumber
	reconcile := p.Members != nil || headChanged
	var members []registry.HouseholdMember
	if reconcile {
		source := existing.Members
		if p.Members != nil {
			source = *p.Members
		}
		members = registry.NormalizeHouseholdMembers(source, merged.HeadName, merged.HeadIDNumber)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE households SET household_no = $1, address = $2, head_name = $3,
				head_id_number = $4, phone = $5, updated_at = now()
			WHERE id = $6`,
			merged.HouseholdNo, merged.Address, merged.HeadName,
			merged.HeadIDNumber, merged.Phone, id)
		if err != nil {
			return err
		}
		if reconcile {
			if _, err := tx.ExecContext(ctx, `DELETE FROM household_members WHERE household_id = $1`, id); err != nil {
				return err
			}
			return insertHouseholdMembers(ctx, tx, id, members)
		}
		return nil
	})
	if err != nil {
		return registry.Household{}, err
	}
	return s.loadHousehold(ctx, id)
}

// GetHousehold returns one aggregate with its member list.
func (s *Store) GetHousehold(ctx context.Context, id int64) (registry.Household, error) {
	return s.loadHousehold(ctx, id)
}

// ListHouseholds returns registry rows matching the filter.
func (s *Store) ListHouseholds(ctx context.Context, f HouseholdFilter) ([]registry.Household, error) {
	var (
		where []string
		args  []any
	)
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		where = append(where, fmt.Sprintf("(household_no ILIKE $%d OR address ILIKE $%d OR head_name ILIKE $%d)",
			len(args), len(args), len(args)))
	}

	q := `SELECT id, household_no, address, head_name, head_id_number, phone, created_at, updated_at FROM households`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
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

	out := []registry.Household{}
	for rows.Next() {
		var h registry.Household
		if err := rows.Scan(&h.ID, &h.HouseholdNo, &h.Address, &h.HeadName,
			&h.HeadIDNumber, &h.Phone, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, apperr.FromStorage(err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return out, nil
}

func (s *Store) loadHousehold(ctx context.Context, id int64) (registry.Household, error) {
	var h registry.Household
	err := s.db.QueryRowContext(ctx, `
		SELECT id, household_no, address, head_name, head_id_number, phone, created_at, updated_at
		FROM households WHERE id = $1`, id).
		Scan(&h.ID, &h.HouseholdNo, &h.Address, &h.HeadName, &h.HeadIDNumber,
			&h.Phone, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return registry.Household{}, apperr.FromStorage(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, id_number, relation, phone
		FROM household_members WHERE household_id = $1 ORDER BY id`, id)
	if err != nil {
		return registry.Household{}, apperr.FromStorage(err)
	}
	defer rows.Close()
	h.Members = []registry.HouseholdMember{}
	for rows.Next() {
		var m registry.HouseholdMember
		if err := rows.Scan(&m.Name, &m.IDNumber, &m.Relation, &m.Phone); err != nil {
			return registry.Household{}, apperr.FromStorage(err)
		}
		h.Members = append(h.Members, m)
	}
	if err := rows.Err(); err != nil {
		return registry.Household{}, apperr.FromStorage(err)
	}
	return h, nil
}

func (s *Store) householdNoAvailable(ctx context.Context, householdNo string, excludeID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM households WHERE household_no = $1 AND id <> $2)`,
		householdNo, excludeID).Scan(&exists)
	if err != nil {
		return apperr.FromStorage(err)
	}
	if exists {
		return apperr.Conflict("household number already in use")
	}
	return nil
}

func insertHouseholdMembers(ctx context.Context, tx *sql.Tx, householdID int64, members []registry.HouseholdMember) error {
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO household_members (household_id, name, id_number, relation, phone)
			VALUES ($1, $2, $3, $4, $5)`,
			householdID, m.Name, m.IDNumber, m.Relation, m.Phone); err != nil {
			return err
		}
	}
	return nil
}
