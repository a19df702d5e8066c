package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/registry"
)

// CaseFilter narrows a case listing. Zero values mean "no filter".
type CaseFilter struct {
	Status  string
	Keyword string
	Limit   int
	Offset  int
}

const caseColumns = `id, case_no, title, category, status, received_date,
	closed_date, result_item_id, transfer_target, transfer_date, summary,
	main_officer_id, created_at, updated_at`

func scanCase(row interface{ Scan(...any) error }) (registry.Case, error) {
	var c registry.Case
	err := row.Scan(&c.ID, &c.CaseNo, &c.Title, &c.Category, &c.Status,
		&c.ReceivedDate, &c.ClosedDate, &c.ResultItemID, &c.TransferTarget,
		&c.TransferDate, &c.Summary, &c.MainOfficerID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCase runs the full coordinator sequence for a new case. The patch is
// merged over a zero record so create and update share one validation path.
// Status defaults to 在办 and the main officer defaults to the caller; the
// caller always ends up on the officer list as 主办.
func (s *Store) CreateCase(ctx context.Context, actorID int64, p registry.CasePatch) (registry.Case, error) {
	merged := registry.MergeCase(registry.Case{Status: registry.CaseStatusActive}, p)
	if merged.MainOfficerID == 0 {
		merged.MainOfficerID = actorID
	}
	if err := merged.Validate(); err != nil {
		return registry.Case{}, err
	}
	if err := s.caseNoAvailable(ctx, merged.CaseNo, 0); err != nil {
		return registry.Case{}, err
	}

	var officers []registry.CaseOfficer
	if p.Officers != nil {
		officers = *p.Officers
	}
	officers = registry.NormalizeCaseOfficers(officers, merged.MainOfficerID)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO cases (case_no, title, category, status, received_date,
				closed_date, result_item_id, transfer_target, transfer_date,
				summary, main_officer_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			merged.CaseNo, merged.Title, merged.Category, merged.Status,
			merged.ReceivedDate, merged.ClosedDate, merged.ResultItemID,
			merged.TransferTarget, merged.TransferDate, merged.Summary,
			merged.MainOfficerID).Scan(&id)
		if err != nil {
			return err
		}
		if err := insertCaseOfficers(ctx, tx, id, officers); err != nil {
			return err
		}
		if p.Persons != nil {
			if err := insertCasePersons(ctx, tx, id, *p.Persons); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return registry.Case{}, err
	}
	return s.loadCase(ctx, id)
}

// UpdateCase merges the patch over the stored aggregate and rewrites it. Child
// collections are replaced wholesale only when the patch supplies them, except
// that a main-officer change always re-normalizes the officer list so the new
// owner holds 主办.
func (s *Store) UpdateCase(ctx context.Context, actorID int64, all bool, id int64, p registry.CasePatch) (registry.Case, error) {
	existing, err := s.loadCase(ctx, id)
	if err != nil {
		return registry.Case{}, err
	}
	if !all && existing.MainOfficerID != actorID {
		return registry.Case{}, apperr.Forbidden("case belongs to another main officer")
	}

	merged := registry.MergeCase(existing, p)
	if err := merged.Validate(); err != nil {
		return registry.Case{}, err
	}
	if merged.CaseNo != existing.CaseNo {
		if err := s.caseNoAvailable(ctx, merged.CaseNo, id); err != nil {
			return registry.Case{}, err
		}
	}

	reconcileOfficers := p.Officers != nil || merged.MainOfficerID != existing.MainOfficerID
	var officers []registry.CaseOfficer
	if reconcileOfficers {
		source := existing.Officers
		if p.Officers != nil {
			source = *p.Officers
		}
		officers = registry.NormalizeCaseOfficers(source, merged.MainOfficerID)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE cases SET case_no = $1, title = $2, category = $3,
				status = $4, received_date = $5, closed_date = $6,
				result_item_id = $7, transfer_target = $8, transfer_date = $9,
				summary = $10, main_officer_id = $11, updated_at = now()
			WHERE id = $12`,
			merged.CaseNo, merged.Title, merged.Category, merged.Status,
			merged.ReceivedDate, merged.ClosedDate, merged.ResultItemID,
			merged.TransferTarget, merged.TransferDate, merged.Summary,
			merged.MainOfficerID, id)
		if err != nil {
			return err
		}
		if reconcileOfficers {
			if _, err := tx.ExecContext(ctx, `DELETE FROM case_officers WHERE case_id = $1`, id); err != nil {
				return err
			}
			if err := insertCaseOfficers(ctx, tx, id, officers); err != nil {
				return err
			}
		}
		if p.Persons != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM case_persons WHERE case_id = $1`, id); err != nil {
				return err
			}
			if err := insertCasePersons(ctx, tx, id, *p.Persons); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return registry.Case{}, err
	}
	return s.loadCase(ctx, id)
}

// DeleteCase removes a case and its children. Only 在办 cases may be deleted;
// closed and transferred ones are part of the permanent record.
func (s *Store) DeleteCase(ctx context.Context, actorID int64, all bool, id int64) error {
	existing, err := s.loadCase(ctx, id)
	if err != nil {
		return err
	}
	if !all && existing.MainOfficerID != actorID {
		return apperr.Forbidden("case belongs to another main officer")
	}
	if existing.Status != registry.CaseStatusActive {
		return apperr.Conflict(fmt.Sprintf("only %s cases can be deleted", registry.CaseStatusActive))
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM case_officers WHERE case_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM case_persons WHERE case_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, id)
		return err
	})
}

// GetCase returns one aggregate, enforcing main-officer ownership unless the
// caller holds the all-records permission.
func (s *Store) GetCase(ctx context.Context, actorID int64, all bool, id int64) (registry.Case, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return registry.Case{}, err
	}
	if !all && c.MainOfficerID != actorID {
		return registry.Case{}, apperr.Forbidden("case belongs to another main officer")
	}
	return c, nil
}

// ListCases returns parent rows matching the filter, scoped to the caller's
// own cases unless the all-records permission is held. Child collections are
// not loaded for listings.
func (s *Store) ListCases(ctx context.Context, actorID int64, all bool, f CaseFilter) ([]registry.Case, error) {
	var (
		where []string
		args  []any
	)
	if !all {
		args = append(args, actorID)
		where = append(where, fmt.Sprintf("main_officer_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		where = append(where, fmt.Sprintf("(case_no ILIKE $%d OR title ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT ` + caseColumns + ` FROM cases`
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

	out := []registry.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, apperr.FromStorage(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return out, nil
}

// loadCase reads the full aggregate without any ownership scoping.
func (s *Store) loadCase(ctx context.Context, id int64) (registry.Case, error) {
	c, err := scanCase(s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
	if err != nil {
		return registry.Case{}, apperr.FromStorage(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT officer_id, role FROM case_officers WHERE case_id = $1 ORDER BY id`, id)
	if err != nil {
		return registry.Case{}, apperr.FromStorage(err)
	}
	defer rows.Close()
	c.Officers = []registry.CaseOfficer{}
	for rows.Next() {
		var co registry.CaseOfficer
		if err := rows.Scan(&co.OfficerID, &co.Role); err != nil {
			return registry.Case{}, apperr.FromStorage(err)
		}
		c.Officers = append(c.Officers, co)
	}
	if err := rows.Err(); err != nil {
		return registry.Case{}, apperr.FromStorage(err)
	}

	prows, err := s.db.QueryContext(ctx, `
		SELECT name, id_number, role_in_case, phone
		FROM case_persons WHERE case_id = $1 ORDER BY id`, id)
	if err != nil {
		return registry.Case{}, apperr.FromStorage(err)
	}
	defer prows.Close()
	c.Persons = []registry.CasePerson{}
	for prows.Next() {
		var cp registry.CasePerson
		if err := prows.Scan(&cp.Name, &cp.IDNumber, &cp.RoleInCase, &cp.Phone); err != nil {
			return registry.Case{}, apperr.FromStorage(err)
		}
		c.Persons = append(c.Persons, cp)
	}
	if err := prows.Err(); err != nil {
		return registry.Case{}, apperr.FromStorage(err)
	}
	return c, nil
}

// caseNoAvailable is the pre-flight uniqueness probe. A racing insert can
// still trip the unique index; withTx maps that to the same Conflict.
func (s *Store) caseNoAvailable(ctx context.Context, caseNo string, excludeID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cases WHERE case_no = $1 AND id <> $2)`,
		caseNo, excludeID).Scan(&exists)
	if err != nil {
		return apperr.FromStorage(err)
	}
	if exists {
		return apperr.Conflict("case number already in use")
	}
	return nil
}

func insertCaseOfficers(ctx context.Context, tx *sql.Tx, caseID int64, officers []registry.CaseOfficer) error {
	for _, co := range officers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO case_officers (case_id, officer_id, role) VALUES ($1, $2, $3)`,
			caseID, co.OfficerID, co.Role); err != nil {
			return err
		}
	}
	return nil
}

func insertCasePersons(ctx context.Context, tx *sql.Tx, caseID int64, persons []registry.CasePerson) error {
	for _, cp := range persons {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO case_persons (case_id, name, id_number, role_in_case, phone)
			VALUES ($1, $2, $3, $4, $5)`,
			caseID, cp.Name, cp.IDNumber, cp.RoleInCase, cp.Phone); err != nil {
			return err
		}
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
