package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/audit"
	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/registry"
	"github.com/qinshuxiang/server/internal/store/pg"
)

func (a *API) handlePlaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if a.require(w, r, auth.AnyOf(auth.PermPlaceView, auth.PermPlaceManage)) == nil {
			return
		}
		filter := pg.PlaceFilter{
			Status:   r.URL.Query().Get("status"),
			Category: r.URL.Query().Get("category"),
			Keyword:  r.URL.Query().Get("keyword"),
			Limit:    queryInt(r, "limit"),
			Offset:   queryInt(r, "offset"),
		}
		places, err := a.places.ListPlaces(r.Context(), filter)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, places)

	case http.MethodPost:
		if a.require(w, r, auth.AnyOf(auth.PermPlaceManage)) == nil {
			return
		}
		var patch registry.PlacePatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		created, err := a.places.CreatePlace(r.Context(), patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "place.create",
			zap.Int64("place_id", created.ID),
			zap.String("place_no", created.PlaceNo),
		)
		respondData(w, http.StatusCreated, created)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePlaceItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/v1/places/")
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if a.require(w, r, auth.AnyOf(auth.PermPlaceView, auth.PermPlaceManage)) == nil {
			return
		}
		p, err := a.places.GetPlace(r.Context(), id)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, p)

	case http.MethodPut:
		if a.require(w, r, auth.AnyOf(auth.PermPlaceManage)) == nil {
			return
		}
		var patch registry.PlacePatch
		if err := decodeJSON(r, &patch); err != nil {
			a.respondError(w, r, err)
			return
		}
		updated, err := a.places.UpdatePlace(r.Context(), id, patch)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		audit.Log(r.Context(), a.log, "place.update", zap.Int64("place_id", id))
		respondData(w, http.StatusOK, updated)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}
