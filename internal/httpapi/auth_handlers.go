package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/audit"
	"github.com/qinshuxiang/server/internal/auth"
)

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	DisplayName string    `json:"displayName"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	session, err := a.auth.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	audit.Log(r.Context(), a.log, "auth.login",
		zap.Int64("officer_id", session.Claims.PrincipalID),
		zap.String("handle", req.Handle),
	)
	respondData(w, http.StatusOK, loginResponse{
		Token:       session.Token,
		ExpiresAt:   session.ExpiresAt,
		DisplayName: session.Claims.DisplayName,
		Roles:       session.Claims.RoleCodes,
		Permissions: session.Claims.PermissionCodes,
	})
}

// handleMe echoes the claims snapshot baked into the presented token.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims := a.require(w, r, auth.AnyOf())
	if claims == nil {
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"id":          claims.PrincipalID,
		"displayName": claims.DisplayName,
		"roles":       claims.RoleCodes,
		"permissions": claims.PermissionCodes,
	})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	claims := a.require(w, r, auth.AnyOf())
	if claims == nil {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.auth.ChangePassword(r.Context(), claims.PrincipalID, req.OldPassword, req.NewPassword); err != nil {
		a.respondError(w, r, err)
		return
	}
	audit.Log(r.Context(), a.log, "auth.password.change")
	respondData(w, http.StatusOK, nil)
}
