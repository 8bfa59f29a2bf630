package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/cryptox"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/refreshtokens"
)

// TokenPair is what a successful login or refresh hands to a mobile client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Authority persists refresh tokens and enforces the family rules:
// at most one live token per family, and presenting a dead one revokes
// the whole family.
type Authority struct {
	signer *Signer
	store  refreshtokens.Store
	log    logging.Logger
}

func NewAuthority(signer *Signer, store refreshtokens.Store, log logging.Logger) *Authority {
	return &Authority{signer: signer, store: store, log: log.With("module", "token_authority")}
}

func (a *Authority) Signer() *Signer {
	return a.signer
}

func internal(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

func record(token string, c *Claims) *models.RefreshToken {
	return &models.RefreshToken{
		TokenHash: cryptox.HashToken(token),
		UserID:    c.Subject,
		FamilyID:  c.FamilyID,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}
}

// Issue persists the first refresh token of a new family.
func (a *Authority) Issue(ctx context.Context, refreshToken string, claims *Claims) error {
	if err := a.store.Create(ctx, record(refreshToken, claims)); err != nil {
		return internal(err)
	}
	return nil
}

// NewPair signs an access token and a refresh token in a fresh family and
// persists the refresh record.
func (a *Authority) NewPair(ctx context.Context, sub Subject) (*TokenPair, error) {
	access, err := a.signer.SignAccess(sub)
	if err != nil {
		return nil, internal(err)
	}
	refresh, claims, err := a.signer.SignRefresh(sub, "")
	if err != nil {
		return nil, internal(err)
	}
	if err := a.Issue(ctx, refresh, claims); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: a.signer.now().Add(a.signer.accessTTL)}, nil
}

// reuse revokes familyID and reports ErrReuseDetected.
func (a *Authority) reuse(ctx context.Context, familyID, userID, reason string) error {
	n, err := a.store.RevokeFamily(ctx, familyID)
	if err != nil {
		return internal(err)
	}
	a.log.Warn(ctx, "refresh token reuse detected",
		"family_id", familyID, "user_id", userID, "reason", reason, "revoked", n)
	return common.ErrReuseDetected
}

// CheckActive returns the stored record of a presented refresh token if it
// is still live for userID. A revoked, unknown or foreign token triggers
// family revocation and ErrReuseDetected.
func (a *Authority) CheckActive(ctx context.Context, presented string, userID string) (*models.RefreshToken, error) {
	rec, err := a.store.Find(ctx, cryptox.HashToken(presented))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, internal(err)
		}
		// A validly signed token we never stored (or already purged) is
		// treated as replay of its family.
		familyID, ferr := a.signer.refreshFamily(presented)
		if ferr != nil {
			return nil, ferr
		}
		return nil, a.reuse(ctx, familyID, userID, "unknown token")
	}

	if rec.Revoked {
		return nil, a.reuse(ctx, rec.FamilyID, rec.UserID, "revoked token")
	}
	if rec.UserID != userID {
		return nil, a.reuse(ctx, rec.FamilyID, rec.UserID, "owner mismatch")
	}
	return rec, nil
}

// Rotate revokes presented and activates next in the same family as one
// atomic store operation. Only one of several concurrent rotations of the
// same token can win; the others see the token as reused.
func (a *Authority) Rotate(ctx context.Context, presented, next string, userID string) error {
	rec, err := a.CheckActive(ctx, presented, userID)
	if err != nil {
		return err
	}

	nextClaims, err := a.signer.VerifyRefresh(next)
	if err != nil {
		return internal(fmt.Errorf("successor token: %w", err))
	}
	if nextClaims.FamilyID != rec.FamilyID || nextClaims.Subject != rec.UserID {
		return internal(errors.New("successor token belongs to another family"))
	}

	err = a.store.Rotate(ctx, rec.TokenHash, record(next, nextClaims))
	if err != nil {
		if errors.Is(err, common.ErrAlreadyRevoked) {
			return a.reuse(ctx, rec.FamilyID, rec.UserID, "concurrent rotation")
		}
		return internal(err)
	}
	return nil
}

// Refresh verifies a presented refresh token, loads the current user via
// load and returns a rotated pair in the same family. load must fail for
// missing or deactivated users.
func (a *Authority) Refresh(ctx context.Context, presented string, load func(ctx context.Context, userID string) (Subject, error)) (*TokenPair, error) {
	claims, err := a.signer.VerifyRefresh(presented)
	if err != nil {
		return nil, err
	}

	if _, err := a.CheckActive(ctx, presented, claims.Subject); err != nil {
		return nil, err
	}

	sub, err := load(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	access, err := a.signer.SignAccess(sub)
	if err != nil {
		return nil, internal(err)
	}
	next, _, err := a.signer.SignRefresh(sub, claims.FamilyID)
	if err != nil {
		return nil, internal(err)
	}

	if err := a.Rotate(ctx, presented, next, claims.Subject); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: next, ExpiresAt: a.signer.now().Add(a.signer.accessTTL)}, nil
}

// RevokeAllForUser kills every refresh token of the user (logout everywhere).
func (a *Authority) RevokeAllForUser(ctx context.Context, userID string) error {
	n, err := a.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return internal(err)
	}
	a.log.Info(ctx, "refresh tokens revoked", "user_id", userID, "revoked", n)
	return nil
}
