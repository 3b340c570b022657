// Package auth implements account registration, credential login and
// opaque bearer-token verification. Passwords are hashed with bcrypt and
// tokens are stored only as SHA-256 hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productapi/internal/models"
	"productapi/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// ServiceInterface defines the interface for authentication operations
type ServiceInterface interface {
	// Register creates a new account. The acting user, when present,
	// gates creation of privileged roles.
	Register(ctx context.Context, req *models.RegisterRequest, actor *models.User) (*models.User, error)

	// Login exchanges credentials for a new access token
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)

	// VerifyToken resolves a raw bearer token to its active user
	VerifyToken(ctx context.Context, rawToken string) (*models.User, error)

	// Logout revokes the token matching the raw bearer value
	Logout(ctx context.Context, rawToken string) error
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

// Service handles registration, login and token verification
type Service struct {
	storage  storage.Storage
	tokenTTL time.Duration
}

// NewService creates a new auth service. A zero tokenTTL issues
// non-expiring tokens.
func NewService(storage storage.Storage, tokenTTL time.Duration) *Service {
	return &Service{
		storage:  storage,
		tokenTTL: tokenTTL,
	}
}

// Register creates a new user account. Only admins may create accounts
// with the admin or manager role; everyone else gets the default role.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest, actor *models.User) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid registration", err)
	}
	req.Normalize()

	if req.Role != models.RoleUser {
		if actor == nil || actor.Role != models.RoleAdmin {
			return nil, NewForbiddenError(fmt.Sprintf("only admins may create %s accounts", req.Role))
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewInternalError("failed to hash password", err)
	}

	user := models.NewUser(req.Username, req.Email, string(hash), req.Role)
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, NewConflictError(fmt.Sprintf("username '%s' is taken", req.Username))
		}
		return nil, NewInternalError("failed to create user", err)
	}

	return user, nil
}

// Login verifies credentials and issues a fresh opaque token. Lookup
// failures and password mismatches produce the same error so callers
// cannot probe for valid usernames.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid login", err)
	}

	user, err := s.storage.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewInvalidCredentialsError()
		}
		return nil, NewInternalError("failed to look up user", err)
	}

	if !user.Active {
		return nil, NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewInvalidCredentialsError()
	}

	raw, err := models.GenerateToken()
	if err != nil {
		return nil, NewInternalError("failed to generate token", err)
	}

	token := models.NewToken(user.ID, raw, s.tokenTTL)
	if err := s.storage.CreateToken(ctx, token); err != nil {
		return nil, NewInternalError("failed to store token", err)
	}

	resp := &models.AuthResponse{
		Token:     raw,
		TokenType: "Bearer",
	}
	if !token.ExpiresAt.IsZero() {
		expires := token.ExpiresAt
		resp.ExpiresAt = &expires
	}
	resp.User.FromUser(user)

	return resp, nil
}

// VerifyToken resolves a raw bearer token to its user. Expired tokens are
// deleted on sight rather than waiting for the cleanup sweep.
func (s *Service) VerifyToken(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, NewInvalidTokenError()
	}

	token, err := s.storage.GetTokenByHash(ctx, models.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewInvalidTokenError()
		}
		return nil, NewInternalError("failed to look up token", err)
	}

	if token.Expired(time.Now().UTC()) {
		_ = s.storage.DeleteToken(ctx, token.ID)
		return nil, NewInvalidTokenError()
	}

	user, err := s.storage.GetUser(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewInvalidTokenError()
		}
		return nil, NewInternalError("failed to look up user", err)
	}

	if !user.Active {
		return nil, NewInvalidTokenError()
	}

	return user, nil
}

// Logout revokes the token matching the raw bearer value. Unknown tokens
// are not an error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	token, err := s.storage.GetTokenByHash(ctx, models.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return NewInternalError("failed to look up token", err)
	}

	if err := s.storage.DeleteToken(ctx, token.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return NewInternalError("failed to delete token", err)
	}
	return nil
}

// CleanupExpiredTokens removes tokens past their expiry and reports how
// many were removed. Intended for a periodic background task.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.storage.DeleteExpiredTokens(ctx, time.Now().UTC())
}
