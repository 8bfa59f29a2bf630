package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

type OTPs struct {
	mu   sync.Mutex
	byID map[string]*models.OTP
}

func NewOTPs() *OTPs {
	return &OTPs{byID: make(map[string]*models.OTP)}
}

func (s *OTPs) DeleteUnverified(_ context.Context, contact, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.byID {
		if o.Contact == contact && o.Purpose == purpose && !o.Verified {
			delete(s.byID, id)
		}
	}
	return nil
}

func (s *OTPs) Insert(_ context.Context, otp *models.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *otp
	s.byID[otp.ID] = &cp
	return nil
}

func (s *OTPs) FindLatestUnverified(_ context.Context, contact, purpose string) (*models.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.OTP
	for _, o := range s.byID {
		if o.Contact != contact || o.Purpose != purpose || o.Verified {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *OTPs) FindByID(_ context.Context, id string) (*models.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *OTPs) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	o.Verified = true
	return nil
}

func (s *OTPs) DeleteVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byID[id]
	if !ok || !o.Verified {
		return common.ErrorNotFound
	}
	delete(s.byID, id)
	return nil
}

// Len reports how many records are stored.
func (s *OTPs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
