package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qinshuxiang/server/internal/apperr"
)

const testSecret = "unit-test-secret-0123456789"

func newTestTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret, time.Hour, opts...)
	require.NoError(t, err)
	return s
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	s := newTestTokens(t)

	token, expiresAt, err := s.Issue(7, "王磊", []string{RoleOfficer}, []string{PermCaseViewOwn, PermCaseViewOwn})
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := s.Parse(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.PrincipalID)
	require.Equal(t, "王磊", claims.DisplayName)
	require.Equal(t, []string{RoleOfficer}, claims.RoleCodes)
	// duplicates collapse on issue
	require.Equal(t, []string{PermCaseViewOwn}, claims.PermissionCodes)
	require.True(t, claims.HasPermission(PermCaseViewOwn))
	require.False(t, claims.HasPermission(PermCaseViewAll))
}

func TestParseRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	issued := newTestTokens(t, WithClock(func() time.Time { return now.Add(-2 * time.Hour) }))

	token, _, err := issued.Issue(7, "王磊", nil, nil)
	require.NoError(t, err)

	_, err = newTestTokens(t).Parse(token)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
}

func TestParseRejectsTamperedToken(t *testing.T) {
	s := newTestTokens(t)
	token, _, err := s.Issue(7, "王磊", nil, nil)
	require.NoError(t, err)

	_, err = s.Parse(token + "x")
	require.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
}

func TestParseRejectsForeignSecret(t *testing.T) {
	other, err := NewTokenService("some-other-secret-9876543210", time.Hour)
	require.NoError(t, err)
	token, _, err := other.Issue(7, "王磊", nil, nil)
	require.NoError(t, err)

	_, err = newTestTokens(t).Parse(token)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	other := newTestTokens(t, WithIssuer("someone-else"))
	token, _, err := other.Issue(7, "王磊", nil, nil)
	require.NoError(t, err)

	_, err = newTestTokens(t).Parse(token)
	require.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("  ", time.Hour)
	require.Error(t, err)
}
