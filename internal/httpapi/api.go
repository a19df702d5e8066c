// Package httpapi is the HTTP surface of the service: one JSON envelope, a
// bearer-token authentication middleware, and a coarse permission gate in
// front of every handler.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/obs"
	"github.com/qinshuxiang/server/internal/registry"
	"github.com/qinshuxiang/server/internal/store/pg"
)

// CaseStore is the aggregate coordinator surface the case handlers use.
type CaseStore interface {
	CreateCase(ctx context.Context, actorID int64, p registry.CasePatch) (registry.Case, error)
	UpdateCase(ctx context.Context, actorID int64, all bool, id int64, p registry.CasePatch) (registry.Case, error)
	DeleteCase(ctx context.Context, actorID int64, all bool, id int64) error
	GetCase(ctx context.Context, actorID int64, all bool, id int64) (registry.Case, error)
	ListCases(ctx context.Context, actorID int64, all bool, f pg.CaseFilter) ([]registry.Case, error)
}

// OfficerStore is the account administration surface.
type OfficerStore interface {
	CreateOfficer(ctx context.Context, in registry.OfficerInput) (registry.Officer, error)
	UpdateOfficer(ctx context.Context, id int64, p registry.OfficerPatch) (registry.Officer, error)
	DeactivateOfficer(ctx context.Context, id int64) (registry.Officer, error)
	GetOfficer(ctx context.Context, id int64) (registry.Officer, error)
	ListOfficers(ctx context.Context, f pg.OfficerFilter) ([]registry.Officer, error)
	ListRoles(ctx context.Context) ([]auth.Role, error)
}

// HouseholdStore is the household registry surface.
type HouseholdStore interface {
	CreateHousehold(ctx context.Context, p registry.HouseholdPatch) (registry.Household, error)
	UpdateHousehold(ctx context.Context, id int64, p registry.HouseholdPatch) (registry.Household, error)
	GetHousehold(ctx context.Context, id int64) (registry.Household, error)
	ListHouseholds(ctx context.Context, f pg.HouseholdFilter) ([]registry.Household, error)
}

// PlaceStore is the small-venue registry surface.
type PlaceStore interface {
	CreatePlace(ctx context.Context, p registry.PlacePatch) (registry.Place, error)
	UpdatePlace(ctx context.Context, id int64, p registry.PlacePatch) (registry.Place, error)
	GetPlace(ctx context.Context, id int64) (registry.Place, error)
	ListPlaces(ctx context.Context, f pg.PlaceFilter) ([]registry.Place, error)
}

// DictStore serves the read-only reference dictionaries.
type DictStore interface {
	ListDictItems(ctx context.Context, dictType string) ([]registry.DictItem, error)
}

// ReadyProbe pings the backing database for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires handlers, stores and the auth service into one http.Handler.
type API struct {
	mux        *http.ServeMux
	log        *zap.Logger
	auth       *auth.Service
	cases      CaseStore
	officers   OfficerStore
	households HouseholdStore
	places     PlaceStore
	dicts      DictStore
	readyProbe ReadyProbe
	version    string
	rateBurst  int
	ratePerSec int
}

// Deps carries everything the API needs; fields left nil disable the
// corresponding routes, which keeps handler tests small.
type Deps struct {
	Log        *zap.Logger
	Auth       *auth.Service
	Cases      CaseStore
	Officers   OfficerStore
	Households HouseholdStore
	Places     PlaceStore
	Dicts      DictStore
	ReadyProbe ReadyProbe
	Version    string

	// Zero disables per-IP rate limiting, which handler tests rely on.
	RateBurst  int
	RatePerSec int
}

func New(d Deps) *API {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	a := &API{
		mux:        http.NewServeMux(),
		log:        log,
		auth:       d.Auth,
		cases:      d.Cases,
		officers:   d.Officers,
		households: d.Households,
		places:     d.Places,
		dicts:      d.Dicts,
		readyProbe: d.ReadyProbe,
		version:    d.Version,
		rateBurst:  d.RateBurst,
		ratePerSec: d.RatePerSec,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/password", a.handleChangePassword)

	a.mux.HandleFunc("/v1/cases", a.handleCases)
	a.mux.HandleFunc("/v1/cases/", a.handleCaseItem)
	a.mux.HandleFunc("/v1/officers", a.handleOfficers)
	a.mux.HandleFunc("/v1/officers/", a.handleOfficerItem)
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/households", a.handleHouseholds)
	a.mux.HandleFunc("/v1/households/", a.handleHouseholdItem)
	a.mux.HandleFunc("/v1/places", a.handlePlaces)
	a.mux.HandleFunc("/v1/places/", a.handlePlaceItem)
	a.mux.HandleFunc("/v1/dicts/", a.handleDicts)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{
			Success:   false,
			Message:   "resource not found",
			ErrorCode: "NOT_FOUND",
		})
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, 1<<20)
	if a.rateBurst > 0 && a.ratePerSec > 0 {
		h = RateLimit(h, a.rateBurst, a.ratePerSec)
	}
	h = Logging(a.log, h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "qinshuxiang-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
