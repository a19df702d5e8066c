package auth

// Permission codes. The own/all pairs back the two-phase scoping scheme: the
// gate admits holders of either code, the store narrows queries for "own".
const (
	PermCaseViewOwn   = "case.view.own"
	PermCaseViewAll   = "case.view.all"
	PermCaseCreate    = "case.create"
	PermCaseUpdateOwn = "case.update.own"
	PermCaseUpdateAll = "case.update.all"
	PermCaseDelete    = "case.delete"

	PermOfficerView   = "officer.view"
	PermOfficerManage = "officer.manage"

	PermHouseholdView   = "household.view"
	PermHouseholdManage = "household.manage"

	PermPlaceView   = "place.view"
	PermPlaceManage = "place.manage"

	PermDictView = "dict.view"
)

// Role codes shipped in the seed data.
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleOfficer    = "officer"
)

// Permission is a fine-grained capability from the catalog.
type Permission struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// Role groups permissions; static reference data, many-to-many with officers.
type Role struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
