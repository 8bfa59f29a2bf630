package otps

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

func (r *PostgresRepository) DeleteUnverified(ctx context.Context, contact, purpose string) error {
	query := `
		DELETE FROM otps
		WHERE contact = $1 AND purpose = $2 AND verified = false
	`
	if _, err := r.db.ExecContext(ctx, query, contact, purpose); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, otp *models.OTP) error {
	query := `
		INSERT INTO otps (id, contact, purpose, code, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		otp.ID, otp.Contact, otp.Purpose, otp.Code, otp.ExpiresAt, otp.Verified, otp.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectOTP = `
		SELECT id, contact, purpose, code, expires_at, verified, created_at
		FROM otps`

func scanOTP(row *sql.Row) (*models.OTP, error) {
	o := &models.OTP{}
	err := row.Scan(&o.ID, &o.Contact, &o.Purpose, &o.Code, &o.ExpiresAt, &o.Verified, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) FindLatestUnverified(ctx context.Context, contact, purpose string) (*models.OTP, error) {
	query := selectOTP + `
		WHERE contact = $1 AND purpose = $2 AND verified = false
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanOTP(r.db.QueryRowContext(ctx, query, contact, purpose))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.OTP, error) {
	query := selectOTP + `
		WHERE id = $1
	`
	return scanOTP(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE otps SET verified = true
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if dbx.RowsAffected(res) == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteVerified(ctx context.Context, id string) error {
	query := `
		DELETE FROM otps
		WHERE id = $1 AND verified = true
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if dbx.RowsAffected(res) == 0 {
		return common.ErrorNotFound
	}
	return nil
}
