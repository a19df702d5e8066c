package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/audit"
	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/registry"
	"github.com/qinshuxiang/server/internal/store/pg"
)

func (a *API) handleCases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		claims := a.require(w, r, auth.AnyOf(auth.PermCaseViewOwn, auth.PermCaseViewAll))
		if claims == nil {
			return
		}
		filter := pg.CaseFilter{
			Status:  r.URL.Query().Get("status"),
			Keyword: r.URL.Query().Get("keyword"),
			Limit:   queryInt(r, "limit"),
			Offset:  queryInt(r, "offset"),
		}
		all := claims.HasPermission(auth.PermCaseViewAll)
		cases, err := a.cases.ListCases(r.Context(), claims.PrincipalID, all, filter)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, cases)

	case http.MethodPost:
		claims := a.require(w, r, auth.AnyOf(auth.PermCaseCreate))
		if claims == nil {
			return
		}
		var patch registry.CasePatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		created, err := a.cases.CreateCase(r.Context(), claims.PrincipalID, patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "case.create",
			zap.Int64("case_id", created.ID),
			zap.String("case_no", created.CaseNo),
		)
		respondData(w, http.StatusCreated, created)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCaseItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/v1/cases/")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		claims := a.require(w, r, auth.AnyOf(auth.PermCaseViewOwn, auth.PermCaseViewAll))
		if claims == nil {
			return
		}
		c, err := a.cases.GetCase(r.Context(), claims.PrincipalID, claims.HasPermission(auth.PermCaseViewAll), id)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, c)

	case http.MethodPut:
		claims := a.require(w, r, auth.AnyOf(auth.PermCaseUpdateOwn, auth.PermCaseUpdateAll))
		if claims == nil {
			return
		}
		var patch registry.CasePatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		updated, err := a.cases.UpdateCase(r.Context(), claims.PrincipalID, claims.HasPermission(auth.PermCaseUpdateAll), id, patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "case.update", zap.Int64("case_id", id))
		respondData(w, http.StatusOK, updated)

	case http.MethodDelete:
		claims := a.require(w, r, auth.AnyOf(auth.PermCaseDelete))
		if claims == nil {
			return
		}
		if err := a.cases.DeleteCase(r.Context(), claims.PrincipalID, claims.HasPermission(auth.PermCaseUpdateAll), id); err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "case.delete", zap.Int64("case_id", id))
		respondData(w, http.StatusOK, nil)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// pathID extracts the numeric id segment after prefix.
func pathID(path, prefix string) (int64, error) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, apperr.NotFound("resource not found")
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("resource not found")
	}
	return id, nil
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
