package registry

// DictItem is one entry of a reference dictionary (case result codes, case
// categories, place categories). Seeded, read-only at runtime.
type DictItem struct {
	ID        int64  `json:"id"`
	DictType  string `json:"dictType"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// Dictionary types shipped in the seed data.
const (
	DictCaseResult    = "case_result"
	DictCaseCategory  = "case_category"
	DictPlaceCategory = "place_category"
)
