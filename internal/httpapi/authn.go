package httpapi

import (
	"net/http"
	"strings"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth verifies the bearer token on every non-public request and attaches
// the claims snapshot to the context. Handlers downstream can assume claims
// are present.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		claims, err := a.auth.Authenticate(token)
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
	})
}

// require runs the permission gate and writes the failure response itself.
// Returns the claims on success, nil when the request has been answered.
func (a *API) require(w http.ResponseWriter, r *http.Request, req auth.Requirement) *auth.Claims {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := auth.Require(claims, req); err != nil {
		a.respondError(w, r, err)
		return nil
	}
	return claims
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", apperr.Unauthenticated("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", apperr.Unauthenticated("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", apperr.Unauthenticated("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
