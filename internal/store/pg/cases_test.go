package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/registry"
)

var testTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func caseParentColumns() []string {
	return []string{"id", "case_no", "title", "category", "status",
		"received_date", "closed_date", "result_item_id", "transfer_target",
		"transfer_date", "summary", "main_officer_id", "created_at", "updated_at"}
}

func expectLoadCase(mock sqlmock.Sqlmock, id int64, mainOfficerID int64, status string) {
	mock.ExpectQuery(`SELECT .+ FROM cases WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(caseParentColumns()).
			AddRow(id, "C-001", "辖区盗窃案", "盗窃", status, "2024-01-01",
				nil, nil, nil, nil, "", mainOfficerID, testTime, testTime))
	mock.ExpectQuery(`SELECT officer_id, role FROM case_officers`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"officer_id", "role"}).
			AddRow(mainOfficerID, registry.CaseOfficerLead))
	mock.ExpectQuery(`SELECT name, id_number, role_in_case, phone`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "id_number", "role_in_case", "phone"}))
}

func TestCreateCaseSynthesizesLeadOfficer(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("C-001", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO cases`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectExec(`INSERT INTO case_officers`).
		WithArgs(int64(12), int64(7), registry.CaseOfficerLead).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	expectLoadCase(mock, 12, 7, registry.CaseStatusActive)

	got, err := s.CreateCase(context.Background(), 7, registry.CasePatch{
		CaseNo:       registry.Set("C-001"),
		Title:        registry.Set("辖区盗窃案"),
		ReceivedDate: registry.Set("2024-01-01"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), got.ID)
	require.Equal(t, []registry.CaseOfficer{{OfficerID: 7, Role: registry.CaseOfficerLead}}, got.Officers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCaseDuplicateCaseNo(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("C-001", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := s.CreateCase(context.Background(), 7, registry.CasePatch{
		CaseNo:       registry.Set("C-001"),
		Title:        registry.Set("辖区盗窃案"),
		ReceivedDate: registry.Set("2024-01-01"),
	})
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCaseValidationSkipsStorage(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CreateCase(context.Background(), 7, registry.CasePatch{
		Status: registry.Set(registry.CaseStatusClosed),
		CaseNo: registry.Set("C-002"),
		Title:  registry.Set("测试"),
	})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCaseForbiddenForNonOwner(t *testing.T) {
	s, mock := newMockStore(t)

	expectLoadCase(mock, 12, 9, registry.CaseStatusActive)

	_, err := s.UpdateCase(context.Background(), 7, false, 12, registry.CasePatch{
		Summary: registry.Set("补充侦查"),
	})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCaseReconcilesOfficersOnOwnerChange(t *testing.T) {
	s, mock := newMockStore(t)

	expectLoadCase(mock, 12, 7, registry.CaseStatusActive)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE cases SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM case_officers`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO case_officers`).
		WithArgs(int64(12), int64(7), registry.CaseOfficerAssist).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO case_officers`).
		WithArgs(int64(12), int64(9), registry.CaseOfficerLead).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	expectLoadCase(mock, 12, 9, registry.CaseStatusActive)

	got, err := s.UpdateCase(context.Background(), 7, false, 12, registry.CasePatch{
		MainOfficerID: registry.Set(int64(9)),
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCaseOnlyWhileActive(t *testing.T) {
	s, mock := newMockStore(t)

	expectLoadCase(mock, 12, 7, registry.CaseStatusClosed)

	err := s.DeleteCase(context.Background(), 7, false, 12)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCaseRemovesChildrenFirst(t *testing.T) {
	s, mock := newMockStore(t)

	expectLoadCase(mock, 12, 7, registry.CaseStatusActive)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM case_officers`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM case_persons`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM cases`).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteCase(context.Background(), 7, false, 12))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCaseNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM cases WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(caseParentColumns()))

	_, err := s.GetCase(context.Background(), 7, true, 404)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCasesScopesToOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM cases WHERE main_officer_id = \$1`).
		WithArgs(int64(7), 50).
		WillReturnRows(sqlmock.NewRows(caseParentColumns()).
			AddRow(int64(12), "C-001", "辖区盗窃案", "盗窃", registry.CaseStatusActive,
				"2024-01-01", nil, nil, nil, nil, "", int64(7), testTime, testTime))

	got, err := s.ListCases(context.Background(), 7, false, CaseFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "C-001", got[0].CaseNo)
	require.NoError(t, mock.ExpectationsWereMet())
}
