package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/cryptox"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(t *testing.T) (*Authority, *memory.RefreshTokens) {
	t.Helper()
	store := memory.NewRefreshTokens()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewAuthority(NewSigner([]byte("secret"), time.Minute, time.Hour), store, log), store
}

func login(t *testing.T, a *Authority) (string, *Claims) {
	t.Helper()
	pair, err := a.NewPair(context.Background(), alice)
	require.NoError(t, err)
	c, err := a.Signer().VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	return pair.RefreshToken, c
}

func TestNewPair_PersistsRefreshRecord(t *testing.T) {
	a, store := newTestAuthority(t)

	pair, err := a.NewPair(context.Background(), alice)
	require.NoError(t, err)

	_, err = a.Signer().VerifyAccess(pair.AccessToken)
	require.NoError(t, err)

	rec, err := store.Find(context.Background(), cryptox.HashToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, rec.UserID)
	assert.False(t, rec.Revoked)
	assert.NotEqual(t, pair.RefreshToken, rec.TokenHash, "only the hash is stored")
}

func TestRotate_SingleUse(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	r1, c1 := login(t, a)

	r2, _, err := a.Signer().SignRefresh(alice, c1.FamilyID)
	require.NoError(t, err)
	require.NoError(t, a.Rotate(ctx, r1, r2, alice.UserID))

	r3, _, err := a.Signer().SignRefresh(alice, c1.FamilyID)
	require.NoError(t, err)
	err = a.Rotate(ctx, r1, r3, alice.UserID)
	require.ErrorIs(t, err, common.ErrReuseDetected)

	assert.Equal(t, 0, store.LiveInFamily(c1.FamilyID), "reuse revokes the whole family")
}

func TestRotate_ReplayScenario(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthority(t)
	load := func(context.Context, string) (Subject, error) { return alice, nil }

	r1, _ := login(t, a)

	pair2, err := a.Refresh(ctx, r1, load)
	require.NoError(t, err)
	r2 := pair2.RefreshToken

	// attacker replays R1
	_, err = a.Refresh(ctx, r1, load)
	require.ErrorIs(t, err, common.ErrReuseDetected)

	// the legitimate client is now forced to log in again
	_, err = a.Refresh(ctx, r2, load)
	require.ErrorIs(t, err, common.ErrReuseDetected)

	_, err = a.CheckActive(ctx, r2, alice.UserID)
	require.ErrorIs(t, err, common.ErrReuseDetected)
}

func TestRotate_UnknownButValidlySignedTokenRevokesFamily(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	_, c1 := login(t, a)

	forged, _, err := a.Signer().SignRefresh(alice, c1.FamilyID)
	require.NoError(t, err)
	next, _, err := a.Signer().SignRefresh(alice, c1.FamilyID)
	require.NoError(t, err)

	err = a.Rotate(ctx, forged, next, alice.UserID)
	require.ErrorIs(t, err, common.ErrReuseDetected)
	assert.Equal(t, 0, store.LiveInFamily(c1.FamilyID))
}

func TestRotate_UnknownBadlySignedToken(t *testing.T) {
	a, _ := newTestAuthority(t)

	err := a.Rotate(context.Background(), "garbage.token.value", "next", alice.UserID)
	require.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestRotate_OwnerMismatch(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	r1, c1 := login(t, a)

	r2, _, err := a.Signer().SignRefresh(alice, c1.FamilyID)
	require.NoError(t, err)

	err = a.Rotate(ctx, r1, r2, "someone-else")
	require.ErrorIs(t, err, common.ErrReuseDetected)
	assert.Equal(t, 0, store.LiveInFamily(c1.FamilyID))
}

func TestRotate_SuccessorFromAnotherFamily(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	r1, c1 := login(t, a)

	other, _, err := a.Signer().SignRefresh(alice, "")
	require.NoError(t, err)

	err = a.Rotate(ctx, r1, other, alice.UserID)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, 1, store.LiveInFamily(c1.FamilyID), "presented token stays live")
}

func TestRefresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	r1, c1 := login(t, a)
	load := func(context.Context, string) (Subject, error) { return alice, nil }

	const workers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		reuse int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := a.Refresh(ctx, r1, load)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, common.ErrReuseDetected):
				reuse++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "a refresh token can be spent exactly once")
	assert.Equal(t, workers-1, reuse)
	assert.Equal(t, 0, store.LiveInFamily(c1.FamilyID))
}

func TestRefresh_LoaderRejectsUser(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	r1, c1 := login(t, a)

	_, err := a.Refresh(ctx, r1, func(context.Context, string) (Subject, error) {
		return Subject{}, common.ErrorUnauthorized
	})
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, 1, store.LiveInFamily(c1.FamilyID), "no rotation happened")
}

func TestRefresh_CarriesUpdatedIdentity(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAuthority(t)
	r1, _ := login(t, a)

	promoted := alice
	promoted.Role = models.RoleAdmin
	pair, err := a.Refresh(ctx, r1, func(context.Context, string) (Subject, error) { return promoted, nil })
	require.NoError(t, err)

	c, err := a.Signer().VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, c.Role)
}

func TestRevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAuthority(t)
	r1, c1 := login(t, a)
	_, c2 := login(t, a)

	require.NoError(t, a.RevokeAllForUser(ctx, alice.UserID))
	assert.Equal(t, 0, store.LiveInFamily(c1.FamilyID))
	assert.Equal(t, 0, store.LiveInFamily(c2.FamilyID))

	_, err := a.Refresh(ctx, r1, func(context.Context, string) (Subject, error) { return alice, nil })
	require.ErrorIs(t, err, common.ErrReuseDetected)
}

type failingStore struct {
	*memory.RefreshTokens
}

func (failingStore) Create(context.Context, *models.RefreshToken) error {
	return errors.New("connection reset")
}

func TestIssue_StorageFailureIsInternal(t *testing.T) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	a := NewAuthority(NewSigner([]byte("s"), time.Minute, time.Hour), failingStore{memory.NewRefreshTokens()}, log)

	_, err := a.NewPair(context.Background(), alice)
	require.ErrorIs(t, err, common.ErrorInternal)
}
