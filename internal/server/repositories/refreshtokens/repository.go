// Package refreshtokens declares the server-side repository contract for
// managing refresh token records in persistent storage.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

// Repository holds refresh token records keyed by token hash.
type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	// Find returns the record for tokenHash or common.ErrorNotFound.
	Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// MarkRevoked revokes tokenHash only if it is still live and reports
	// whether it did.
	MarkRevoked(ctx context.Context, tokenHash string, replacedBy string) (bool, error)
	RevokeFamily(ctx context.Context, familyID string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// Store adds the atomic rotation step on top of Repository.
type Store interface {
	Repository
	// Rotate revokes presentedHash and inserts next as one atomic step.
	// If presentedHash is no longer live it returns common.ErrAlreadyRevoked
	// and inserts nothing.
	Rotate(ctx context.Context, presentedHash string, next *models.RefreshToken) error
}
