// Package refreshtokens provides a PostgreSQL-backed repository for managing
// refresh tokens used in the server's authentication flow.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/dbx"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

// PostgresRepository implements refresh token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh token record and fills in its ID.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token_hash, user_id, family_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		token.TokenHash, token.UserID, token.FamilyID, token.IssuedAt, token.ExpiresAt).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the refresh token row for the given token hash.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, token_hash, user_id, family_id, issued_at, expires_at, revoked, revoked_at, replaced_by
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	t := &models.RefreshToken{}
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&t.ID, &t.TokenHash, &t.UserID, &t.FamilyID, &t.IssuedAt, &t.ExpiresAt, &t.Revoked, &revokedAt, &t.ReplacedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return t, nil
}

// MarkRevoked revokes a live token. The WHERE clause makes it a
// compare-and-set: of two concurrent callers only one sees a row updated.
func (r *PostgresRepository) MarkRevoked(ctx context.Context, tokenHash string, replacedBy string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = true, revoked_at = now(), replaced_by = $2
		WHERE token_hash = $1 AND revoked = false
	`
	res, err := r.db.ExecContext(ctx, query, tokenHash, replacedBy)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return dbx.RowsAffected(res) == 1, nil
}

// RevokeFamily revokes every live token of a family.
func (r *PostgresRepository) RevokeFamily(ctx context.Context, familyID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = true, revoked_at = now()
		WHERE family_id = $1 AND revoked = false
	`
	res, err := r.db.ExecContext(ctx, query, familyID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return dbx.RowsAffected(res), nil
}

// RevokeAllForUser revokes every live token owned by userID.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = true, revoked_at = now()
		WHERE user_id = $1 AND revoked = false
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return dbx.RowsAffected(res), nil
}

// PostgresStore is a Store over a *sql.DB; Rotate runs in a transaction.
type PostgresStore struct {
	*PostgresRepository
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{PostgresRepository: NewPostgresRepository(db), db: db}
}

func (s *PostgresStore) Rotate(ctx context.Context, presentedHash string, next *models.RefreshToken) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)

		ok, err := repo.MarkRevoked(ctx, presentedHash, next.TokenHash)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrAlreadyRevoked
		}
		return repo.Create(ctx, next)
	})
}
