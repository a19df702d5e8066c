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

func (a *API) handleOfficers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if a.require(w, r, auth.AnyOf(auth.PermOfficerView, auth.PermOfficerManage)) == nil {
			return
		}
		filter := pg.OfficerFilter{
			Status:  r.URL.Query().Get("status"),
			Keyword: r.URL.Query().Get("keyword"),
			Limit:   queryInt(r, "limit"),
			Offset:  queryInt(r, "offset"),
		}
		officers, err := a.officers.ListOfficers(r.Context(), filter)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, officers)

	case http.MethodPost:
		if a.require(w, r, auth.AnyOf(auth.PermOfficerManage)) == nil {
			return
		}
		var in registry.OfficerInput
		if err := decodeJSON(r, &in); err != nil {
			a.respondError(w, r, err)
			return
		}
		created, err := a.officers.CreateOfficer(r.Context(), in)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "officer.create",
			zap.Int64("officer_id", created.ID),
			zap.String("handle", created.Handle),
		)
		respondData(w, http.StatusCreated, created)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOfficerItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/officers/"), "/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		a.respondError(w, r, apperr.NotFound("resource not found"))
		return
	}

	if len(parts) == 2 && parts[1] == "deactivate" {
		a.handleOfficerDeactivate(w, r, id)
		return
	}
	if len(parts) != 1 {
		a.respondError(w, r, apperr.NotFound("resource not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		if a.require(w, r, auth.AnyOf(auth.PermOfficerView, auth.PermOfficerManage)) == nil {
			return
		}
		o, err := a.officers.GetOfficer(r.Context(), id)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, o)

	case http.MethodPut:
		if a.require(w, r, auth.AnyOf(auth.PermOfficerManage)) == nil {
			return
		}
		var patch registry.OfficerPatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		updated, err := a.officers.UpdateOfficer(r.Context(), id, patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "officer.update", zap.Int64("officer_id", id))
		respondData(w, http.StatusOK, updated)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// handleRoles lists the static role dictionary, used when assigning roleIds.
func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if a.require(w, r, auth.AnyOf(auth.PermOfficerView, auth.PermOfficerManage)) == nil {
		return
	}
	roles, err := a.officers.ListRoles(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, roles)
}

func (a *API) handleOfficerDeactivate(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if a.require(w, r, auth.AnyOf(auth.PermOfficerManage)) == nil {
		return
	}
	o, err := a.officers.DeactivateOfficer(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	audit.Log(r.Context(), a.log, "officer.deactivate", zap.Int64("officer_id", id))
	respondData(w, http.StatusOK, o)
}
