package downloads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/dbx"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Download, error) {
	query := `
		SELECT id, title, storage_key
		FROM downloads
		WHERE id = $1
	`
	d := &models.Download{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Title, &d.StorageKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) RecordLead(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (download_id, email, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, lead.DownloadID, lead.Email, lead.Name).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
