package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/google/uuid"
)

type Downloads struct {
	mu        sync.Mutex
	downloads map[string]models.Download
	leads     []models.Lead
}

func NewDownloads(items ...models.Download) *Downloads {
	d := &Downloads{downloads: make(map[string]models.Download, len(items))}
	for _, it := range items {
		d.downloads[it.ID] = it
	}
	return d
}

func (s *Downloads) Find(_ context.Context, id string) (*models.Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downloads[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}

func (s *Downloads) RecordLead(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.downloads[lead.DownloadID]; !ok {
		return common.ErrorNotFound
	}
	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now()
	s.leads = append(s.leads, *lead)
	return nil
}

// Leads returns a copy of the captured leads.
func (s *Downloads) Leads() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Lead(nil), s.leads...)
}
