// Package users declares the server-side repository contract for reading
// user accounts and updating their credentials.
package users

import (
	"context"

	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

// Repository is the user store. Lookups that find nothing return
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindActiveByLogin matches login against the email or the login id
	// of an active user.
	FindActiveByLogin(ctx context.Context, login string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
