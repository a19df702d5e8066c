package httpapi

import (
	"net/http"
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/registry"
)

var knownDictTypes = map[string]struct{}{
	registry.DictCaseResult:    {},
	registry.DictCaseCategory:  {},
	registry.DictPlaceCategory: {},
}

// handleDicts serves one read-only dictionary per request; dictionary content
// is seed data and has no write endpoint.
func (a *API) handleDicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if a.require(w, r, auth.AnyOf(auth.PermDictView)) == nil {
		return
	}
	dictType := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/dicts/"), "/")
	if _, ok := knownDictTypes[dictType]; !ok {
		a.respondError(w, r, apperr.NotFound("unknown dictionary "+dictType))
		return
	}
	items, err := a.dicts.ListDictItems(r.Context(), dictType)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, items)
}
