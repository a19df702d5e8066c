package registry

import (
	"strings"
	"time"

	"github.com/qinshuxiang/server/internal/apperr"
)

// Case statuses mirror the paper workflow they replaced.
const (
	CaseStatusActive      = "在办"
	CaseStatusClosed      = "已结"
	CaseStatusTransferred = "移交"
)

// Roles an officer can hold on a case. Every case has exactly one 主办
// (main officer); everyone else defaults to 协办.
const (
	CaseOfficerLead   = "主办"
	CaseOfficerAssist = "协办"
)

// Case is an aggregate root: the parent row plus its officer and person
// child collections, read and written as one unit.
type Case struct {
	ID             int64     `json:"id"`
	CaseNo         string    `json:"caseNo"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	ReceivedDate   string    `json:"receivedDate"`
	ClosedDate     *string   `json:"closedDate"`
	ResultItemID   *int64    `json:"resultItemId"`
	TransferTarget *string   `json:"transferTarget"`
	TransferDate   *string   `json:"transferDate"`
	Summary        string    `json:"summary"`
	MainOfficerID  int64     `json:"mainOfficerId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Officers []CaseOfficer `json:"officers"`
	Persons  []CasePerson  `json:"persons"`
}

// CaseOfficer links an officer to a case with a role.
type CaseOfficer struct {
	OfficerID int64  `json:"officerId"`
	Role      string `json:"role"`
}

// CasePerson is a person involved in a case (suspect, victim, witness).
type CasePerson struct {
	Name       string `json:"name"`
	IDNumber   string `json:"idNumber"`
	RoleInCase string `json:"roleInCase"`
	Phone      string `json:"phone"`
}

// CasePatch carries an update payload. Scalar fields distinguish absent,
// null and value; a nil child slice leaves that collection untouched while
// a non-nil slice (empty included) replaces it entirely.
type CasePatch struct {
	CaseNo         Optional[string] `json:"caseNo"`
	Title          Optional[string] `json:"title"`
	Category       Optional[string] `json:"category"`
	Status         Optional[string] `json:"status"`
	ReceivedDate   Optional[string] `json:"receivedDate"`
	ClosedDate     Optional[string] `json:"closedDate"`
	ResultItemID   Optional[int64]  `json:"resultItemId"`
	TransferTarget Optional[string] `json:"transferTarget"`
	TransferDate   Optional[string] `json:"transferDate"`
	Summary        Optional[string] `json:"summary"`
	MainOfficerID  Optional[int64]  `json:"mainOfficerId"`

	Officers *[]CaseOfficer `json:"officers"`
	Persons  *[]CasePerson  `json:"persons"`
}

// MergeCase overlays the patch on the existing parent fields. Child
// collections are reconciled separately by the store.
func MergeCase(existing Case, p CasePatch) Case {
	merged := existing
	merged.CaseNo = strings.TrimSpace(p.CaseNo.Or(existing.CaseNo))
	merged.Title = strings.TrimSpace(p.Title.Or(existing.Title))
	merged.Category = strings.TrimSpace(p.Category.Or(existing.Category))
	merged.Status = strings.TrimSpace(p.Status.Or(existing.Status))
	merged.ReceivedDate = strings.TrimSpace(p.ReceivedDate.Or(existing.ReceivedDate))
	merged.ClosedDate = p.ClosedDate.OrPtr(existing.ClosedDate)
	merged.ResultItemID = p.ResultItemID.OrPtr(existing.ResultItemID)
	merged.TransferTarget = p.TransferTarget.OrPtr(existing.TransferTarget)
	merged.TransferDate = p.TransferDate.OrPtr(existing.TransferDate)
	merged.Summary = strings.TrimSpace(p.Summary.Or(existing.Summary))
	merged.MainOfficerID = p.MainOfficerID.Or(existing.MainOfficerID)
	return merged
}

// Validate evaluates the status-gated and cross-field rules against the
// merged state. All violations are collected, not just the first.
func (c Case) Validate() error {
	fields := map[string]string{}

	if c.CaseNo == "" {
		fields["caseNo"] = "required"
	}
	if c.Title == "" {
		fields["title"] = "required"
	}
	if c.MainOfficerID <= 0 {
		fields["mainOfficerId"] = "required"
	}

	switch c.Status {
	case CaseStatusActive, CaseStatusClosed, CaseStatusTransferred:
	case "":
		fields["status"] = "required"
	default:
		fields["status"] = "unknown status " + c.Status
	}

	if c.ReceivedDate == "" {
		fields["receivedDate"] = "required"
	} else if !validDate(c.ReceivedDate) {
		fields["receivedDate"] = "must be a YYYY-MM-DD date"
	}

	if c.ClosedDate != nil && !validDate(*c.ClosedDate) {
		fields["closedDate"] = "must be a YYYY-MM-DD date"
	}
	if c.TransferDate != nil && !validDate(*c.TransferDate) {
		fields["transferDate"] = "must be a YYYY-MM-DD date"
	}

	if c.Status == CaseStatusClosed {
		if c.ClosedDate == nil {
			fields["closedDate"] = "required when status is " + CaseStatusClosed
		}
		if c.ResultItemID == nil {
			fields["resultItemId"] = "required when status is " + CaseStatusClosed
		}
	}
	if c.Status == CaseStatusTransferred {
		if c.TransferTarget == nil || strings.TrimSpace(*c.TransferTarget) == "" {
			fields["transferTarget"] = "required when status is " + CaseStatusTransferred
		}
		if c.TransferDate == nil {
			fields["transferDate"] = "required when status is " + CaseStatusTransferred
		}
	}

	// Lexicographic comparison is total-ordered for valid YYYY-MM-DD values.
	if c.ReceivedDate != "" && validDate(c.ReceivedDate) {
		if c.ClosedDate != nil && validDate(*c.ClosedDate) && *c.ClosedDate < c.ReceivedDate {
			fields["closedDate"] = "must not precede receivedDate"
		}
		if c.TransferDate != nil && validDate(*c.TransferDate) && *c.TransferDate < c.ReceivedDate {
			fields["transferDate"] = "must not precede receivedDate"
		}
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// NormalizeCaseOfficers deduplicates the supplied assignment list and
// guarantees the main officer is present with the 主办 role, synthesizing the
// row when the list omits it. Everyone else defaults to 协办. Order of the
// supplied list is preserved.
func NormalizeCaseOfficers(list []CaseOfficer, mainOfficerID int64) []CaseOfficer {
	out := make([]CaseOfficer, 0, len(list)+1)
	seen := make(map[int64]struct{}, len(list)+1)
	for _, co := range list {
		if co.OfficerID <= 0 {
			continue
		}
		if _, ok := seen[co.OfficerID]; ok {
			continue
		}
		seen[co.OfficerID] = struct{}{}
		role := strings.TrimSpace(co.Role)
		if co.OfficerID == mainOfficerID {
			role = CaseOfficerLead
		} else if role != CaseOfficerLead && role != CaseOfficerAssist {
			role = CaseOfficerAssist
		} else if role == CaseOfficerLead {
			// Only the designated main officer may hold 主办.
			role = CaseOfficerAssist
		}
		out = append(out, CaseOfficer{OfficerID: co.OfficerID, Role: role})
	}
	if _, ok := seen[mainOfficerID]; !ok && mainOfficerID > 0 {
		out = append(out, CaseOfficer{OfficerID: mainOfficerID, Role: CaseOfficerLead})
	}
	return out
}
