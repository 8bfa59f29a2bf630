// Package services contains server-side business logic built on the
// repositories, the token authority and the OTP ledger.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/cryptox"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/auth"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/users"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
	"github.com/google/uuid"
)

// AuthService handles password login for both channels, refresh token
// rotation for the mobile app and logout.
type AuthService struct {
	users  users.Repository
	tokens *auth.Authority
	log    logging.Logger

	// compared against when the login is unknown so both paths cost one
	// argon2 derivation
	dummyHash string
}

func NewAuthService(u users.Repository, tokens *auth.Authority, log logging.Logger) *AuthService {
	return &AuthService{
		users:     u,
		tokens:    tokens,
		log:       log.With("module", "auth_service"),
		dummyHash: cryptox.HashPassword("bizdesk-dummy-password"),
	}
}

func internal(err error) error {
	if errors.Is(err, common.ErrorInternal) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

// authenticate returns the active user matching login and password. Every
// credential failure is ErrorUnauthorized.
func (s *AuthService) authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.users.FindActiveByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(s.dummyHash, password)
			return nil, common.ErrorUnauthorized
		}
		return nil, internal(err)
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		s.log.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, common.ErrorUnauthorized
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// Login verifies credentials and starts a new refresh token family.
func (s *AuthService) Login(ctx context.Context, login, password string) (*auth.TokenPair, error) {
	user, err := s.authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.NewPair(ctx, auth.SubjectFromUser(user))
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "mobile login", "user_id", user.ID)
	return pair, nil
}

// WebLogin verifies credentials and returns the identity to put in the
// session cookie.
func (s *AuthService) WebLogin(ctx context.Context, login, password string) (*session.Identity, error) {
	user, err := s.authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}

	id := session.IdentityFromUser(user)
	s.log.Info(ctx, "web login", "user_id", user.ID)
	return &id, nil
}

// loadSubject re-reads the account on refresh so role and profile changes
// reach the next access token and deactivated users are cut off.
func (s *AuthService) loadSubject(ctx context.Context, userID string) (auth.Subject, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Subject{}, common.ErrorUnauthorized
		}
		return auth.Subject{}, internal(err)
	}
	if !user.Active {
		return auth.Subject{}, common.ErrorUnauthorized
	}
	return auth.SubjectFromUser(user), nil
}

// Refresh rotates refreshToken. Replay of a spent token returns
// common.ErrReuseDetected and leaves the whole family revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return s.tokens.Refresh(ctx, refreshToken, s.loadSubject)
}

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// User returns the stored account by id.
func (s *AuthService) User(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internal(err)
	}
	return user, nil
}
