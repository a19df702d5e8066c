package registry

import (
	"strings"
	"time"

	"github.com/qinshuxiang/server/internal/apperr"
)

// MemberRelationHead marks the head of household in the member list.
const MemberRelationHead = "户主"

// Household is an aggregate root: the registry row plus its member list.
type Household struct {
	ID           int64     `json:"id"`
	HouseholdNo  string    `json:"householdNo"`
	Address      string    `json:"address"`
	HeadName     string    `json:"headName"`
	HeadIDNumber string    `json:"headIdNumber"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Members []HouseholdMember `json:"members"`
}

// HouseholdMember is one registered resident of a household.
type HouseholdMember struct {
	Name     string `json:"name"`
	IDNumber string `json:"idNumber"`
	Relation string `json:"relation"`
	Phone    string `json:"phone"`
}

// HouseholdPatch is the update payload; a nil Members slice leaves the
// member collection untouched.
type HouseholdPatch struct {
	HouseholdNo  Optional[string] `json:"householdNo"`
	Address      Optional[string] `json:"address"`
	HeadName     Optional[string] `json:"headName"`
	HeadIDNumber Optional[string] `json:"headIdNumber"`
	Phone        Optional[string] `json:"phone"`

	Members *[]HouseholdMember `json:"members"`
}

// MergeHousehold overlays the patch on the existing parent fields.
func MergeHousehold(existing Household, p HouseholdPatch) Household {
	merged := existing
	merged.HouseholdNo = strings.TrimSpace(p.HouseholdNo.Or(existing.HouseholdNo))
	merged.Address = strings.TrimSpace(p.Address.Or(existing.Address))
	merged.HeadName = strings.TrimSpace(p.HeadName.Or(existing.HeadName))
	merged.HeadIDNumber = strings.TrimSpace(p.HeadIDNumber.Or(existing.HeadIDNumber))
	merged.Phone = strings.TrimSpace(p.Phone.Or(existing.Phone))
	return merged
}

// Validate checks the merged household record.
func (h Household) Validate() error {
	fields := map[string]string{}
	if h.HouseholdNo == "" {
		fields["householdNo"] = "required"
	}
	if h.Address == "" {
		fields["address"] = "required"
	}
	if h.HeadName == "" {
		fields["headName"] = "required"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// NormalizeHouseholdMembers guarantees the head of household appears in the
// member list with the 户主 relation, synthesizing the row when omitted.
// Matching is by id number when the head has one, by name otherwise.
func NormalizeHouseholdMembers(list []HouseholdMember, headName, headIDNumber string) []HouseholdMember {
	out := make([]HouseholdMember, 0, len(list)+1)
	headPresent := false
	for _, m := range list {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		isHead := false
		if headIDNumber != "" && m.IDNumber == headIDNumber {
			isHead = true
		} else if headIDNumber == "" && m.Name == headName {
			isHead = true
		}
		if isHead {
			m.Relation = MemberRelationHead
			headPresent = true
		} else if strings.TrimSpace(m.Relation) == "" {
			m.Relation = "成员"
		}
		out = append(out, m)
	}
	if !headPresent && headName != "" {
		out = append(out, HouseholdMember{
			Name:     headName,
			IDNumber: headIDNumber,
			Relation: MemberRelationHead,
		})
	}
	return out
}
