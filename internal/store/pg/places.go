package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/registry"
)

// PlaceFilter narrows a place listing.
type PlaceFilter struct {
	Status   string
	Category string
	Keyword  string
	Limit    int
	Offset   int
}

// CreatePlace writes a new venue with its inspection history. Status defaults
// to 正常.
func (s *Store) CreatePlace(ctx context.Context, p registry.PlacePatch) (registry.Place, error) {
	merged := registry.MergePlace(registry.Place{Status: registry.PlaceStatusOpen}, p)
	if p.Inspections != nil {
		merged.Inspections = *p.Inspections
	}
	if err := merged.Validate(); err != nil {
		return registry.Place{}, err
	}
	if err := s.placeNoAvailable(ctx, merged.PlaceNo, 0); err != nil {
		return registry.Place{}, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO places (place_no, name, category, address, owner_name, phone, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			merged.PlaceNo, merged.Name, merged.Category, merged.Address,
			merged.OwnerName, merged.Phone, merged.Status).Scan(&id)
		if err != nil {
			return err
		}
		return insertPlaceInspections(ctx, tx, id, merged.Inspections)
	})
	if err != nil {
		return registry.Place{}, err
	}
	return s.loadPlace(ctx, id)
}

// UpdatePlace merges the patch over the stored aggregate, replacing the
// inspection history only when the patch supplies it.
func (s *Store) UpdatePlace(ctx context.Context, id int64, p registry.PlacePatch) (registry.Place, error) {
	existing, err := s.loadPlace(ctx, id)
	if err != nil {
		return registry.Place{}, err
	}
	merged := registry.MergePlace(existing, p)
	if p.Inspections != nil {
		merged.Inspections = *p.Inspections
	}
	if err := merged.Validate(); err != nil {
		return registry.Place{}, err
	}
	if merged.PlaceNo != existing.PlaceNo {
		if err := s.placeNoAvailable(ctx, merged.PlaceNo, id); err != nil {
			return registry.Place{}, err
		}
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE places SET place_no = $1, name = $2, category = $3,
				address = $4, owner_name = $5, phone = $6, status = $7,
				updated_at = now()
			WHERE id = $8`,
			merged.PlaceNo, merged.Name, merged.Category, merged.Address,
			merged.OwnerName, merged.Phone, merged.Status, id)
		if err != nil {
			return err
		}
		if p.Inspections != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM place_inspections WHERE place_id = $1`, id); err != nil {
				return err
			}
			return insertPlaceInspections(ctx, tx, id, *p.Inspections)
		}
		return nil
	})
	if err != nil {
		return registry.Place{}, err
	}
	return s.loadPlace(ctx, id)
}

// GetPlace returns one venue with its inspection history.
func (s *Store) GetPlace(ctx context.Context, id int64) (registry.Place, error) {
	return s.loadPlace(ctx, id)
}

// ListPlaces returns venue rows matching the filter.
func (s *Store) ListPlaces(ctx context.Context, f PlaceFilter) ([]registry.Place, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		where = append(where, fmt.Sprintf("(place_no ILIKE $%d OR name ILIKE $%d OR owner_name ILIKE $%d)",
			len(args), len(args), len(args)))
	}

	q := `SELECT id, place_no, name, category, address, owner_name, phone, status, created_at, updated_at FROM places`
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

	out := []registry.Place{}
	for rows.Next() {
		var pl registry.Place
		if err := rows.Scan(&pl.ID, &pl.PlaceNo, &pl.Name, &pl.Category,
			&pl.Address, &pl.OwnerName, &pl.Phone, &pl.Status,
			&pl.CreatedAt, &pl.UpdatedAt); err != nil {
			return nil, apperr.FromStorage(err)
		}
		out = append(out, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return out, nil
}

func (s *Store) loadPlace(ctx context.Context, id int64) (registry.Place, error) {
	var pl registry.Place
	err := s.db.QueryRowContext(ctx, `
		SELECT id, place_no, name, category, address, owner_name, phone, status, created_at, updated_at
		FROM places WHERE id = $1`, id).
		Scan(&pl.ID, &pl.PlaceNo, &pl.Name, &pl.Category, &pl.Address,
			&pl.OwnerName, &pl.Phone, &pl.Status, &pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		return registry.Place{}, apperr.FromStorage(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT inspected_on, officer_id, result, notes
		FROM place_inspections WHERE place_id = $1 ORDER BY inspected_on, id`, id)
	if err != nil {
		return registry.Place{}, apperr.FromStorage(err)
	}
	defer rows.Close()
	pl.Inspections = []registry.PlaceInspection{}
	for rows.Next() {
		var ins registry.PlaceInspection
		if err := rows.Scan(&ins.InspectedOn, &ins.OfficerID, &ins.Result, &ins.Notes); err != nil {
			return registry.Place{}, apperr.FromStorage(err)
		}
		pl.Inspections = append(pl.Inspections, ins)
	}
	if err := rows.Err(); err != nil {
		return registry.Place{}, apperr.FromStorage(err)
	}
	return pl, nil
}

func (s *Store) placeNoAvailable(ctx context.Context, placeNo string, excludeID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM places WHERE place_no = $1 AND id <> $2)`,
		placeNo, excludeID).Scan(&exists)
	if err != nil {
		return apperr.FromStorage(err)
	}
	if exists {
		return apperr.Conflict("place number already in use")
	}
	return nil
}

func insertPlaceInspections(ctx context.Context, tx *sql.Tx, placeID int64, inspections []registry.PlaceInspection) error {
	for _, ins := range inspections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO place_inspections (place_id, inspected_on, officer_id, result, notes)
			VALUES ($1, $2, $3, $4, $5)`,
			placeID, ins.InspectedOn, ins.OfficerID, ins.Result, ins.Notes); err != nil {
			return err
		}
	}
	return nil
}
