package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/audit"
	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/registry"
	"github.com/qinshuxiang/server/internal/store/pg"
)

func (a *API) handleHouseholds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if a.require(w, r, auth.AnyOf(auth.PermHouseholdView, auth.PermHouseholdManage)) == nil {
			return
		}
		filter := pg.HouseholdFilter{
			Keyword: r.URL.Query().Get("keyword"),
			Limit:   queryInt(r, "limit"),
			Offset:  queryInt(r, "offset"),
		}
		households, err := a.households.ListHouseholds(r.Context(), filter)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, households)

	case http.MethodPost:
		if a.require(w, r, auth.AnyOf(auth.PermHouseholdManage)) == nil {
			return
		}
		var patch registry.HouseholdPatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		created, err := a.households.CreateHousehold(r.Context(), patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "household.create",
			zap.Int64("household_id", created.ID),
			zap.String("household_no", created.HouseholdNo),
		)
		respondData(w, http.StatusCreated, created)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleHouseholdItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/v1/households/")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if a.require(w, r, auth.AnyOf(auth.PermHouseholdView, auth.PermHouseholdManage)) == nil {
			return
		}
		h, err := a.households.GetHousehold(r.Context(), id)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, h)

	case http.MethodPut:
		if a.require(w, r, auth.AnyOf(auth.PermHouseholdManage)) == nil {
			return
		}
		var patch registry.HouseholdPatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		updated, err := a.households.UpdateHousehold(r.Context(), id, patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "household.update", zap.Int64("household_id", id))
		respondData(w, http.StatusOK, updated)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}
