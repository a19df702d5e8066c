package registry

import (
	"strings"
	"time"

	"github.com/qinshuxiang/server/internal/apperr"
)

// Statuses of a "nine small places" venue.
const (
	PlaceStatusOpen   = "正常"
	PlaceStatusClosed = "停业"
)

// Place is an aggregate root for the small-venue registry (九小场所): the
// venue row plus its inspection history.
type Place struct {
	ID        int64     `json:"id"`
	PlaceNo   string    `json:"placeNo"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Address   string    `json:"address"`
	OwnerName string    `json:"ownerName"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Inspections []PlaceInspection `json:"inspections"`
}

// PlaceInspection is one recorded safety inspection of a venue.
type PlaceInspection struct {
	InspectedOn string `json:"inspectedOn"`
	OfficerID   int64  `json:"officerId"`
	Result      string `json:"result"`
	Notes       string `json:"notes"`
}

// PlacePatch is the update payload; a nil Inspections slice leaves the
// inspection collection untouched.
type PlacePatch struct {
	PlaceNo   Optional[string] `json:"placeNo"`
	Name      Optional[string] `json:"name"`
	Category  Optional[string] `json:"category"`
	Address   Optional[string] `json:"address"`
	OwnerName Optional[string] `json:"ownerName"`
	Phone     Optional[string] `json:"phone"`
	Status    Optional[string] `json:"status"`

	Inspections *[]PlaceInspection `json:"inspections"`
}

// MergePlace overlays the patch on the existing parent fields.
func MergePlace(existing Place, p PlacePatch) Place {
	merged := existing
	merged.PlaceNo = strings.TrimSpace(p.PlaceNo.Or(existing.PlaceNo))
	merged.Name = strings.TrimSpace(p.Name.Or(existing.Name))
	merged.Category = strings.TrimSpace(p.Category.Or(existing.Category))
	merged.Address = strings.TrimSpace(p.Address.Or(existing.Address))
	merged.OwnerName = strings.TrimSpace(p.OwnerName.Or(existing.OwnerName))
	merged.Phone = strings.TrimSpace(p.Phone.Or(existing.Phone))
	merged.Status = strings.TrimSpace(p.Status.Or(existing.Status))
	return merged
}

// Validate checks the merged place record and its inspection rows.
func (p Place) Validate() error {
	fields := map[string]string{}
	if p.PlaceNo == "" {
		fields["placeNo"] = "required"
	}
	if p.Name == "" {
		fields["name"] = "required"
	}
	switch p.Status {
	case PlaceStatusOpen, PlaceStatusClosed:
	case "":
		fields["status"] = "required"
	default:
		fields["status"] = "unknown status " + p.Status
	}
	for _, ins := range p.Inspections {
		if !validDate(ins.InspectedOn) {
			fields["inspections.inspectedOn"] = "must be a YYYY-MM-DD date"
		}
		if ins.OfficerID <= 0 {
			fields["inspections.officerId"] = "required"
		}
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
