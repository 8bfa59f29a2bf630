package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/otps"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ users.Repository     = (*Users)(nil)
	_ refreshtokens.Store  = (*RefreshTokens)(nil)
	_ otps.Repository      = (*OTPs)(nil)
	_ downloads.Repository = (*Downloads)(nil)
)

func TestUsers_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewUsers()

	alice, err := s.Create(ctx, &models.User{Email: "Alice@Example.com", LoginID: "alice-m", Role: models.RoleStaff, Active: true})
	require.NoError(t, err)
	require.NotEmpty(t, alice.ID)

	_, err = s.Create(ctx, &models.User{Email: "alice@example.com"})
	require.Error(t, err, "emails are unique case-insensitively")

	got, err := s.FindActiveByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = s.FindActiveByLogin(ctx, "alice-m")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	s.SetActive(alice.ID, false)
	_, err = s.FindActiveByLogin(ctx, "alice-m")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err = s.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, s.UpdatePassword(ctx, alice.ID, "new-hash"))
	got, err = s.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "ghost", "x"), common.ErrorNotFound)
}

func newToken(hash, family string) *models.RefreshToken {
	now := time.Now()
	return &models.RefreshToken{TokenHash: hash, UserID: "u1", FamilyID: family, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
}

func TestRefreshTokens_RotateAndRevoke(t *testing.T) {
	ctx := context.Background()
	s := NewRefreshTokens()

	require.NoError(t, s.Create(ctx, newToken("h1", "f1")))
	require.NoError(t, s.Rotate(ctx, "h1", newToken("h2", "f1")))

	old, err := s.Find(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	assert.Equal(t, "h2", old.ReplacedBy)
	assert.NotNil(t, old.RevokedAt)
	assert.Equal(t, 1, s.LiveInFamily("f1"))

	err = s.Rotate(ctx, "h1", newToken("h3", "f1"))
	assert.ErrorIs(t, err, common.ErrAlreadyRevoked)
	_, err = s.Find(ctx, "h3")
	assert.ErrorIs(t, err, common.ErrorNotFound, "a failed rotation inserts nothing")

	n, err := s.RevokeFamily(ctx, "f1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 0, s.LiveInFamily("f1"))

	require.NoError(t, s.Create(ctx, newToken("h4", "f2")))
	require.NoError(t, s.Create(ctx, newToken("h5", "f3")))
	n, err = s.RevokeAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRefreshTokens_ConcurrentRotateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewRefreshTokens()
	require.NoError(t, s.Create(ctx, newToken("root", "fam")))

	const workers = 32
	var wins, lost atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Rotate(ctx, "root", newToken(fmt.Sprintf("next-%d", i), "fam"))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, common.ErrAlreadyRevoked):
				lost.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, workers-1, lost.Load())
	assert.Equal(t, 1, s.LiveInFamily("fam"))
}

func TestOTPs_LatestUnverified(t *testing.T) {
	ctx := context.Background()
	s := NewOTPs()
	now := time.Now()

	require.NoError(t, s.Insert(ctx, &models.OTP{ID: "a", Contact: "c", Purpose: "p", Code: "1", CreatedAt: now}))
	require.NoError(t, s.Insert(ctx, &models.OTP{ID: "b", Contact: "c", Purpose: "p", Code: "2", CreatedAt: now.Add(time.Second)}))

	got, err := s.FindLatestUnverified(ctx, "c", "p")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	require.NoError(t, s.MarkVerified(ctx, "b"))
	got, err = s.FindLatestUnverified(ctx, "c", "p")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	require.NoError(t, s.DeleteUnverified(ctx, "c", "p"))
	_, err = s.FindLatestUnverified(ctx, "c", "p")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 1, s.Len(), "verified record survives DeleteUnverified")

	require.NoError(t, s.Insert(ctx, &models.OTP{ID: "c", Contact: "c", Purpose: "p", Code: "3", CreatedAt: now}))
	assert.ErrorIs(t, s.DeleteVerified(ctx, "c"), common.ErrorNotFound, "unverified records are not spendable")

	require.NoError(t, s.DeleteVerified(ctx, "b"))
	assert.ErrorIs(t, s.DeleteVerified(ctx, "b"), common.ErrorNotFound)
	assert.ErrorIs(t, s.MarkVerified(ctx, "b"), common.ErrorNotFound)
}

func TestDownloads(t *testing.T) {
	ctx := context.Background()
	s := NewDownloads(models.Download{ID: "brochure", Title: "Brochure", StorageKey: "files/brochure.pdf"})

	d, err := s.Find(ctx, "brochure")
	require.NoError(t, err)
	assert.Equal(t, "files/brochure.pdf", d.StorageKey)

	_, err = s.Find(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	lead := &models.Lead{DownloadID: "brochure", Email: "lead@example.com"}
	require.NoError(t, s.RecordLead(ctx, lead))
	assert.NotEmpty(t, lead.ID)
	assert.Len(t, s.Leads(), 1)

	assert.ErrorIs(t, s.RecordLead(ctx, &models.Lead{DownloadID: "missing"}), common.ErrorNotFound)
}
