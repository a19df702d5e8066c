package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/qinshuxiang/server/internal/apperr"
)

const defaultIssuer = "qinshuxiang"

// Claims is the decoded payload of a session token. The embedded role and
// permission snapshot is authoritative for the token's lifetime; it is frozen
// at login and never re-derived per request.
type Claims struct {
	PrincipalID     int64    `json:"pid"`
	DisplayName     string   `json:"name"`
	RoleCodes       []string `json:"roles"`
	PermissionCodes []string `json:"perms"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the snapshot contains the permission code.
func (c *Claims) HasPermission(code string) bool {
	for _, p := range c.PermissionCodes {
		if p == code {
			return true
		}
	}
	return false
}

// TokenService issues and verifies signed session tokens. Verification is a
// pure function of the token and the signing secret; no store access.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// NewTokenService constructs a TokenService signing with HS256.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, apperr.Internal(errMissingSecret)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token embedding the given identity and permission snapshot.
func (s *TokenService) Issue(principalID int64, displayName string, roleCodes, permCodes []string) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		PrincipalID:     principalID,
		DisplayName:     displayName,
		RoleCodes:       dedupe(roleCodes),
		PermissionCodes: dedupe(permCodes),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperr.Internal(err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, shape and expiry. Any failure is classified as
// Unauthenticated, distinct from permission denial.
func (s *TokenService) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Unauthenticated("missing bearer token")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, apperr.Unauthenticated("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apperr.Unauthenticated("invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.Issuer != s.issuer {
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.PrincipalID <= 0 {
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, apperr.Unauthenticated("invalid token")
	}
	return claims, nil
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
