// Package downloads stores gated download metadata and the leads captured
// when someone requests one.
package downloads

import (
	"context"

	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

type Repository interface {
	// Find returns the download or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.Download, error)
	RecordLead(ctx context.Context, lead *models.Lead) error
}
