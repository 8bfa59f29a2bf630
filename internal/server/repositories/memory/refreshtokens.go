package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/google/uuid"
)

// RefreshTokens is a refreshtokens.Store guarded by a single mutex, which
// makes Rotate atomic with respect to every other call.
type RefreshTokens struct {
	mu     sync.Mutex
	byHash map[string]*models.RefreshToken
	now    func() time.Time
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byHash: make(map[string]*models.RefreshToken), now: time.Now}
}

func (s *RefreshTokens) create(token *models.RefreshToken) error {
	if _, exists := s.byHash[token.TokenHash]; exists {
		return common.ErrorInternal
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	cp := *token
	s.byHash[token.TokenHash] = &cp
	return nil
}

func (s *RefreshTokens) Create(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(token)
}

func (s *RefreshTokens) Find(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byHash[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *RefreshTokens) revoke(t *models.RefreshToken) {
	now := s.now()
	t.Revoked = true
	t.RevokedAt = &now
}

func (s *RefreshTokens) markRevoked(tokenHash, replacedBy string) bool {
	t, ok := s.byHash[tokenHash]
	if !ok || t.Revoked {
		return false
	}
	s.revoke(t)
	t.ReplacedBy = replacedBy
	return true
}

func (s *RefreshTokens) MarkRevoked(_ context.Context, tokenHash string, replacedBy string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRevoked(tokenHash, replacedBy), nil
}

func (s *RefreshTokens) RevokeFamily(_ context.Context, familyID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.byHash {
		if t.FamilyID == familyID && !t.Revoked {
			s.revoke(t)
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokens) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.byHash {
		if t.UserID == userID && !t.Revoked {
			s.revoke(t)
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokens) Rotate(_ context.Context, presentedHash string, next *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[next.TokenHash]; exists {
		return common.ErrorInternal
	}
	if !s.markRevoked(presentedHash, next.TokenHash) {
		return common.ErrAlreadyRevoked
	}
	return s.create(next)
}

// LiveInFamily counts unrevoked tokens of a family.
func (s *RefreshTokens) LiveInFamily(familyID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.byHash {
		if t.FamilyID == familyID && !t.Revoked {
			n++
		}
	}
	return n
}
