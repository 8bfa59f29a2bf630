package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/mailer"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/otp"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/bizdesk/internal/server/storage"
	"github.com/dmitrijs2005/bizdesk/internal/validation"
	"github.com/google/uuid"
)

// DownloadPurpose is the OTP purpose guarding one file.
func DownloadPurpose(fileID string) string {
	return common.PurposeDownload + ":" + fileID
}

// DownloadService gates file downloads behind an e-mailed code and records
// who asked.
type DownloadService struct {
	repo    downloads.Repository
	ledger  *otp.Ledger
	mail    mailer.Sender
	storage storage.Presigner
	log     logging.Logger
}

func NewDownloadService(repo downloads.Repository, ledger *otp.Ledger, mail mailer.Sender, p storage.Presigner, log logging.Logger) *DownloadService {
	return &DownloadService{repo: repo, ledger: ledger, mail: mail, storage: p, log: log.With("module", "download_service")}
}

func (s *DownloadService) find(ctx context.Context, fileID string) (*models.Download, error) {
	d, err := s.repo.Find(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internal(err)
	}
	return d, nil
}

// Request records a lead for fileID and mails a code to email. It returns
// the id of the issued code, which Complete expects back.
func (s *DownloadService) Request(ctx context.Context, fileID, email, name string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Var(email, "required,email"); err != nil {
		return "", err
	}

	d, err := s.find(ctx, fileID)
	if err != nil {
		return "", err
	}

	lead := &models.Lead{
		ID:         uuid.NewString(),
		DownloadID: d.ID,
		Email:      email,
		Name:       strings.TrimSpace(name),
		CreatedAt:  time.Now(),
	}
	if err := s.repo.RecordLead(ctx, lead); err != nil {
		return "", internal(err)
	}

	purpose := DownloadPurpose(d.ID)
	o, err := s.ledger.Issue(ctx, lead.Email, purpose)
	if err != nil {
		return "", err
	}
	msg := mailer.CodeMessage(o.Contact, "download", o.Code)
	msg.Subject = "Your download code for " + d.Title
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Error(ctx, "download code mail failed", "download_id", d.ID, "error", err)
		return "", internal(err)
	}

	s.log.Info(ctx, "download requested", "download_id", d.ID, "lead_id", lead.ID)
	return o.ID, nil
}

// Complete checks the code, spends it and returns a short-lived link to
// the file.
func (s *DownloadService) Complete(ctx context.Context, fileID, otpID, code string) (string, error) {
	d, err := s.find(ctx, fileID)
	if err != nil {
		return "", err
	}

	purpose := DownloadPurpose(d.ID)
	if err := s.ledger.VerifyByID(ctx, otpID, purpose, code); err != nil {
		return "", err
	}
	if err := s.ledger.Consume(ctx, otpID, purpose); err != nil {
		return "", err
	}

	link, err := s.storage.PresignGet(ctx, d.StorageKey)
	if err != nil {
		s.log.Error(ctx, "presign failed", "download_id", d.ID, "error", err)
		return "", internal(err)
	}
	return link, nil
}
