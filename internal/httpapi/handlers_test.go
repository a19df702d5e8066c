package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/registry"
	"github.com/qinshuxiang/server/internal/store/pg"
)

const testSecret = "test-secret-0123456789"

type stubAccounts struct {
	account auth.Account
	perms   []string
}

func (s *stubAccounts) FindAccountByHandle(_ context.Context, handle string) (auth.Account, error) {
	if handle != s.account.Handle {
		return auth.Account{}, apperr.NotFound("record not found")
	}
	return s.account, nil
}

func (s *stubAccounts) FindAccountByID(_ context.Context, id int64) (auth.Account, error) {
	if id != s.account.ID {
		return auth.Account{}, apperr.NotFound("record not found")
	}
	return s.account, nil
}

func (s *stubAccounts) RoleCodes(context.Context, int64) ([]string, error) {
	return []string{auth.RoleOfficer}, nil
}

func (s *stubAccounts) PermissionCodes(context.Context, int64) ([]string, error) {
	return s.perms, nil
}

func (s *stubAccounts) UpdatePasswordHash(context.Context, int64, string) error { return nil }

type stubCases struct {
	lastAll  bool
	lastID   int64
	caseErr  error
	returned registry.Case
}

func (s *stubCases) CreateCase(_ context.Context, actorID int64, _ registry.CasePatch) (registry.Case, error) {
	s.lastID = actorID
	return s.returned, s.caseErr
}

func (s *stubCases) UpdateCase(_ context.Context, _ int64, all bool, id int64, _ registry.CasePatch) (registry.Case, error) {
	s.lastAll, s.lastID = all, id
	return s.returned, s.caseErr
}

func (s *stubCases) DeleteCase(_ context.Context, _ int64, all bool, id int64) error {
	s.lastAll, s.lastID = all, id
	return s.caseErr
}

func (s *stubCases) GetCase(_ context.Context, _ int64, all bool, id int64) (registry.Case, error) {
	s.lastAll, s.lastID = all, id
	return s.returned, s.caseErr
}

func (s *stubCases) ListCases(_ context.Context, _ int64, all bool, _ pg.CaseFilter) ([]registry.Case, error) {
	s.lastAll = all
	return []registry.Case{s.returned}, s.caseErr
}

type stubDicts struct{ items []registry.DictItem }

func (s *stubDicts) ListDictItems(context.Context, string) ([]registry.DictItem, error) {
	return s.items, nil
}

func newTestAPI(t *testing.T, cases *stubCases, perms ...string) (*API, *auth.Service) {
	t.Helper()
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(&stubAccounts{
		account: auth.Account{
			ID:           7,
			Handle:       "wang.lei",
			DisplayName:  "王磊",
			PasswordHash: hash,
			Status:       auth.StatusActive,
			Active:       true,
		},
		perms: perms,
	}, tokens)
	api := New(Deps{
		Auth:  svc,
		Cases: cases,
		Dicts: &stubDicts{items: []registry.DictItem{{ID: 1, DictType: registry.DictCaseResult, Code: "起诉", Name: "移送起诉"}}},
	})
	return api, svc
}

func bearerToken(t *testing.T, svc *auth.Service) string {
	t.Helper()
	session, err := svc.Login(context.Background(), "wang.lei", "s3cret-pass")
	require.NoError(t, err)
	return session.Token
}

func doRequest(api *API, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestLoginReturnsTokenAndSnapshot(t *testing.T) {
	api, _ := newTestAPI(t, &stubCases{}, auth.PermCaseViewOwn)

	rec := doRequest(api, http.MethodPost, "/v1/auth/login", "",
		`{"handle":"wang.lei","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.Equal(t, true, env["success"])
	data := env["data"].(map[string]any)
	require.NotEmpty(t, data["token"])
	require.Equal(t, "王磊", data["displayName"])
}

func TestLoginBadCredentials(t *testing.T) {
	api, _ := newTestAPI(t, &stubCases{})

	rec := doRequest(api, http.MethodPost, "/v1/auth/login", "",
		`{"handle":"wang.lei","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, false, env["success"])
	require.Equal(t, "UNAUTHENTICATED", env["errorCode"])
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	api, _ := newTestAPI(t, &stubCases{}, auth.PermCaseViewOwn)

	rec := doRequest(api, http.MethodGet, "/v1/cases", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHENTICATED", decodeEnvelope(t, rec)["errorCode"])
}

func TestPermissionGateForbidsMissingCode(t *testing.T) {
	cases := &stubCases{}
	api, svc := newTestAPI(t, cases, auth.PermDictView)

	rec := doRequest(api, http.MethodGet, "/v1/cases", bearerToken(t, svc), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", decodeEnvelope(t, rec)["errorCode"])
}

func TestListCasesScopesByPermissionPair(t *testing.T) {
	cases := &stubCases{}
	api, svc := newTestAPI(t, cases, auth.PermCaseViewOwn)

	rec := doRequest(api, http.MethodGet, "/v1/cases", bearerToken(t, svc), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, cases.lastAll)
}

func TestListCasesAllPermissionWidensScope(t *testing.T) {
	cases := &stubCases{}
	api, svc := newTestAPI(t, cases, auth.PermCaseViewOwn, auth.PermCaseViewAll)

	rec := doRequest(api, http.MethodGet, "/v1/cases", bearerToken(t, svc), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, cases.lastAll)
}

func TestValidationErrorCarriesFieldMap(t *testing.T) {
	cases := &stubCases{caseErr: apperr.Validation(map[string]string{
		"closedDate":   "required when status is 已结",
		"resultItemId": "required when status is 已结",
	})}
	api, svc := newTestAPI(t, cases, auth.PermCaseCreate)

	rec := doRequest(api, http.MethodPost, "/v1/cases", bearerToken(t, svc),
		`{"caseNo":"C-001","status":"已结"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	require.Equal(t, "VALIDATION_ERROR", env["errorCode"])
	details := env["details"].(map[string]any)
	fieldErrors := details["fieldErrors"].(map[string]any)
	require.Contains(t, fieldErrors, "closedDate")
	require.Contains(t, fieldErrors, "resultItemId")
}

func TestStorageErrorHidesCause(t *testing.T) {
	cases := &stubCases{caseErr: apperr.FromStorage(context.DeadlineExceeded)}
	api, svc := newTestAPI(t, cases, auth.PermCaseViewAll)

	rec := doRequest(api, http.MethodGet, "/v1/cases/12", bearerToken(t, svc), "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	env := decodeEnvelope(t, rec)
	require.Equal(t, "STORAGE_ERROR", env["errorCode"])
	require.Equal(t, "storage operation failed", env["message"])
}

func TestDictEndpointRejectsUnknownType(t *testing.T) {
	api, svc := newTestAPI(t, &stubCases{}, auth.PermDictView)

	rec := doRequest(api, http.MethodGet, "/v1/dicts/nope", bearerToken(t, svc), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDictEndpointListsByType(t *testing.T) {
	api, svc := newTestAPI(t, &stubCases{}, auth.PermDictView)

	rec := doRequest(api, http.MethodGet, "/v1/dicts/case_result", bearerToken(t, svc), "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, true, env["success"])
	require.Len(t, env["data"], 1)
}

func TestMethodNotAllowed(t *testing.T) {
	api, svc := newTestAPI(t, &stubCases{}, auth.PermCaseViewOwn)

	rec := doRequest(api, http.MethodDelete, "/v1/cases", bearerToken(t, svc), "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUnknownFieldRejected(t *testing.T) {
	api, svc := newTestAPI(t, &stubCases{}, auth.PermCaseCreate)

	rec := doRequest(api, http.MethodPost, "/v1/cases", bearerToken(t, svc),
		`{"caseNo":"C-001","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec)["errorCode"])
}

func TestHealthzPublic(t *testing.T) {
	api, _ := newTestAPI(t, &stubCases{})

	rec := doRequest(api, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
