// Package otps declares the storage contract for one-time codes.
package otps

import (
	"context"

	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

type Repository interface {
	// DeleteUnverified drops every unverified code for (contact, purpose).
	DeleteUnverified(ctx context.Context, contact, purpose string) error
	Insert(ctx context.Context, otp *models.OTP) error
	// FindLatestUnverified returns the newest unverified code for
	// (contact, purpose) or common.ErrorNotFound.
	FindLatestUnverified(ctx context.Context, contact, purpose string) (*models.OTP, error)
	FindByID(ctx context.Context, id string) (*models.OTP, error)
	// MarkVerified is common.ErrorNotFound when the record is gone.
	MarkVerified(ctx context.Context, id string) error
	// DeleteVerified removes a verified record. It is common.ErrorNotFound
	// when no verified record with id exists, which is how a second spender
	// of the same proof loses.
	DeleteVerified(ctx context.Context, id string) error
}
