package pg

import (
	"context"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/registry"
)

// ListDictItems returns the seeded entries of one reference dictionary.
func (s *Store) ListDictItems(ctx context.Context, dictType string) ([]registry.DictItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dict_type, code, name, sort_order
		FROM dict_items
		WHERE dict_type = $1
		ORDER BY sort_order, id`, dictType)
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	defer rows.Close()

	out := []registry.DictItem{}
	for rows.Next() {
		var d registry.DictItem
		if err := rows.Scan(&d.ID, &d.DictType, &d.Code, &d.Name, &d.SortOrder); err != nil {
			return nil, apperr.FromStorage(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStorage(err)
	}
	return out, nil
}
