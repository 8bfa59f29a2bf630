// Package memory holds process-local implementations of the repository
// contracts. The server uses them when no database DSN is configured.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/google/uuid"
)

type Users struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[string]models.User)}
}

func (s *Users) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, common.ErrorInternal
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = *user
	return user, nil
}

func (s *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (s *Users) FindActiveByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if !u.Active {
			continue
		}
		if strings.EqualFold(u.Email, login) || (u.LoginID != "" && u.LoginID == login) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Users) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

// SetActive flips the active flag; account management lives outside the
// server, this exists for seeding and tests.
func (s *Users) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.Active = active
		s.users[id] = u
	}
}
