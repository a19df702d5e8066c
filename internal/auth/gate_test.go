package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qinshuxiang/server/internal/apperr"
)

func claimsWith(perms ...string) *Claims {
	return &Claims{PrincipalID: 7, PermissionCodes: perms}
}

func TestRequireNilClaimsUnauthenticated(t *testing.T) {
	err := Require(nil, AnyOf(PermCaseViewOwn))
	require.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
}

func TestRequireEmptyRequirementPasses(t *testing.T) {
	require.NoError(t, Require(claimsWith(), AnyOf()))
}

func TestRequireAnyOfPair(t *testing.T) {
	req := AnyOf(PermCaseViewOwn, PermCaseViewAll)

	require.NoError(t, Require(claimsWith(PermCaseViewOwn), req))
	require.NoError(t, Require(claimsWith(PermCaseViewAll), req))

	err := Require(claimsWith(PermDictView), req)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestRequireAllOf(t *testing.T) {
	req := AllOf(PermCaseCreate, PermCaseViewOwn)

	require.NoError(t, Require(claimsWith(PermCaseCreate, PermCaseViewOwn), req))

	err := Require(claimsWith(PermCaseCreate), req)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
