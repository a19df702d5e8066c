package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestFromStorageClassification(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   Kind
		status int
		code   string
	}{
		{"no rows", sql.ErrNoRows, KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped no rows", fmt.Errorf("load case: %w", sql.ErrNoRows), KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindConflict, http.StatusConflict, "CONFLICT"},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "cases_status_check"}, KindValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unclassified", errors.New("connection reset"), KindStorage, http.StatusInternalServerError, "STORAGE_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := FromStorage(tc.err)
			require.Equal(t, tc.kind, e.Kind)
			require.Equal(t, tc.status, e.HTTPStatus())
			require.Equal(t, tc.code, e.Code())
		})
	}
}

func TestFromStorageKeepsTaxonomyErrors(t *testing.T) {
	orig := Conflict("case number already in use")
	got := FromStorage(fmt.Errorf("create case: %w", orig))
	require.Equal(t, KindConflict, got.Kind)
	require.Equal(t, orig.Message, got.Message)
}

func TestValidationCollectsAllFields(t *testing.T) {
	e := Validation(map[string]string{
		"closedDate":   "required when status is 已结",
		"resultItemId": "required when status is 已结",
	})
	require.Equal(t, []string{"closedDate", "resultItemId"}, e.Fields())
	require.Equal(t, "validation failed: closedDate, resultItemId", e.Message)
	require.Equal(t, http.StatusBadRequest, e.HTTPStatus())
}

func TestClientMessageHidesInternals(t *testing.T) {
	e := FromStorage(errors.New("pq: password authentication failed for user postgres"))
	require.Equal(t, "storage operation failed", e.ClientMessage())
	require.NotContains(t, e.ClientMessage(), "postgres")

	internal := Internal(errors.New("nil pointer in coordinator"))
	require.Equal(t, "internal error", internal.ClientMessage())
}

func TestIsKindUnwraps(t *testing.T) {
	err := fmt.Errorf("handler: %w", Forbidden("not the main officer"))
	require.True(t, IsKind(err, KindForbidden))
	require.False(t, IsKind(err, KindConflict))
	require.False(t, IsKind(errors.New("plain"), KindForbidden))
}
