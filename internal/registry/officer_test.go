package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qinshuxiang/server/internal/auth"
)

func TestMergeOfficerLockForcesInactive(t *testing.T) {
	existing := Officer{
		ID:          3,
		Handle:      "wang.lei",
		DisplayName: "王磊",
		Status:      auth.StatusActive,
		Active:      true,
	}
	merged := MergeOfficer(existing, OfficerPatch{Status: Set(auth.StatusLocked)})
	require.Equal(t, auth.StatusLocked, merged.Status)
	require.False(t, merged.Active)
}

func TestOfficerValidateRejectsActiveLocked(t *testing.T) {
	o := Officer{Handle: "wang.lei", DisplayName: "王磊", Status: auth.StatusLocked, Active: true}
	fields := fieldErrors(t, o.Validate())
	require.Contains(t, fields, "active")
}

func TestOfficerValidateCollectsAllViolations(t *testing.T) {
	o := Officer{Status: "SUSPENDED"}
	fields := fieldErrors(t, o.Validate())
	require.Contains(t, fields, "handle")
	require.Contains(t, fields, "displayName")
	require.Contains(t, fields, "status")
}

func TestNormalizeRoleIDs(t *testing.T) {
	require.Equal(t, []int64{2, 5}, NormalizeRoleIDs([]int64{2, 2, 0, -1, 5}))
}

func TestNormalizeHouseholdMembersSynthesizesHead(t *testing.T) {
	got := NormalizeHouseholdMembers([]HouseholdMember{
		{Name: "李四", IDNumber: "110101199001015678", Relation: "配偶"},
	}, "张三", "110101198001011234")
	require.Len(t, got, 2)
	require.Equal(t, MemberRelationHead, got[1].Relation)
	require.Equal(t, "张三", got[1].Name)
}

func TestNormalizeHouseholdMembersKeepsExplicitHead(t *testing.T) {
	got := NormalizeHouseholdMembers([]HouseholdMember{
		{Name: "张三", IDNumber: "110101198001011234", Relation: "本人"},
	}, "张三", "110101198001011234")
	require.Len(t, got, 1)
	require.Equal(t, MemberRelationHead, got[0].Relation)
}
