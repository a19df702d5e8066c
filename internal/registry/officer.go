package registry

import (
	"strings"
	"time"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/auth"
)

// Officer is the administrative view of a principal plus its assigned roles.
// Officers are never hard-deleted; deactivation locks the account so old
// cases keep a valid main-officer reference.
type Officer struct {
	ID          int64       `json:"id"`
	Handle      string      `json:"handle"`
	DisplayName string      `json:"displayName"`
	Status      string      `json:"status"`
	Active      bool        `json:"active"`
	Phone       string      `json:"phone"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Roles       []auth.Role `json:"roles"`
}

// OfficerInput is the creation payload.
type OfficerInput struct {
	Handle      string  `json:"handle"`
	DisplayName string  `json:"displayName"`
	Password    string  `json:"password"`
	Phone       string  `json:"phone"`
	Status      string  `json:"status"`
	RoleIDs     []int64 `json:"roleIds"`
}

// OfficerPatch is the update payload; a nil RoleIDs slice leaves the
// assignment collection untouched.
type OfficerPatch struct {
	DisplayName Optional[string] `json:"displayName"`
	Phone       Optional[string] `json:"phone"`
	Status      Optional[string] `json:"status"`
	Active      Optional[bool]   `json:"active"`

	RoleIDs *[]int64 `json:"roleIds"`
}

// MergeOfficer overlays the patch on the existing parent fields. A status
// change to LOCKED forces active=false so a deactivated account cannot stay
// usable through a stale flag.
func MergeOfficer(existing Officer, p OfficerPatch) Officer {
	merged := existing
	merged.DisplayName = strings.TrimSpace(p.DisplayName.Or(existing.DisplayName))
	merged.Phone = strings.TrimSpace(p.Phone.Or(existing.Phone))
	merged.Status = strings.TrimSpace(p.Status.Or(existing.Status))
	merged.Active = p.Active.Or(existing.Active)
	if merged.Status == auth.StatusLocked {
		merged.Active = false
	}
	return merged
}

// Validate checks the merged officer record.
func (o Officer) Validate() error {
	fields := map[string]string{}
	if o.Handle == "" {
		fields["handle"] = "required"
	}
	if o.DisplayName == "" {
		fields["displayName"] = "required"
	}
	switch o.Status {
	case auth.StatusActive, auth.StatusInactive, auth.StatusLocked:
	case "":
		fields["status"] = "required"
	default:
		fields["status"] = "unknown status " + o.Status
	}
	if o.Status == auth.StatusLocked && o.Active {
		fields["active"] = "must be false when status is " + auth.StatusLocked
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// NormalizeRoleIDs deduplicates role ids, dropping non-positive entries.
func NormalizeRoleIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
