package auth

import (
	"context"
	"strings"
	"time"

	"github.com/qinshuxiang/server/internal/apperr"
)

// Account statuses. Deactivation is modeled as LOCKED plus active=false;
// accounts are never hard-deleted so historical records keep valid references.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusLocked   = "LOCKED"
)

// Account is the credential-store view of an officer principal.
type Account struct {
	ID           int64
	Handle       string
	DisplayName  string
	PasswordHash string
	Status       string
	Active       bool
}

// AccountStore describes the persistence operations the auth service needs.
type AccountStore interface {
	FindAccountByHandle(ctx context.Context, handle string) (Account, error)
	FindAccountByID(ctx context.Context, id int64) (Account, error)
	RoleCodes(ctx context.Context, principalID int64) ([]string, error)
	PermissionCodes(ctx context.Context, principalID int64) ([]string, error)
	UpdatePasswordHash(ctx context.Context, principalID int64, hash string) error
}

// Service authenticates credentials and issues session tokens. The permission
// union is computed once at login and frozen into the token; role changes do
// not retroactively affect already-issued tokens.
type Service struct {
	store  AccountStore
	tokens *TokenService
}

// NewService constructs the auth service.
func NewService(store AccountStore, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens}
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Claims    *Claims   `json:"-"`
}

// Login verifies credentials, derives the caller's effective permission set
// and returns a signed session token. All credential failures collapse into
// a single Unauthenticated error to avoid handle probing.
func (s *Service) Login(ctx context.Context, handle, password string) (Session, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || password == "" {
		return Session{}, apperr.Unauthenticated("invalid credentials")
	}
	account, err := s.store.FindAccountByHandle(ctx, handle)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return Session{}, apperr.Unauthenticated("invalid credentials")
		}
		return Session{}, err
	}
	if account.Status != StatusActive || !account.Active {
		return Session{}, apperr.Unauthenticated("account is disabled")
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return Session{}, apperr.Unauthenticated("invalid credentials")
	}

	roles, err := s.store.RoleCodes(ctx, account.ID)
	if err != nil {
		return Session{}, err
	}
	perms, err := s.store.PermissionCodes(ctx, account.ID)
	if err != nil {
		return Session{}, err
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.DisplayName, roles, perms)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Claims: &Claims{
			PrincipalID:     account.ID,
			DisplayName:     account.DisplayName,
			RoleCodes:       dedupe(roles),
			PermissionCodes: dedupe(perms),
		},
	}, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, principalID int64, oldPassword, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < 8 {
		return apperr.Validationf("newPassword", "must be at least 8 characters")
	}
	account, err := s.store.FindAccountByID(ctx, principalID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(account.PasswordHash, oldPassword); err != nil {
		return apperr.Validationf("oldPassword", "current password is incorrect")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	return s.store.UpdatePasswordHash(ctx, principalID, hash)
}

// Authenticate verifies a bearer token and returns its claims snapshot.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.tokens.Parse(token)
}
