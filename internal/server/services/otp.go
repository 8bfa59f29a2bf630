package services

import (
	"context"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/mailer"
	"github.com/dmitrijs2005/bizdesk/internal/server/otp"
	"github.com/dmitrijs2005/bizdesk/internal/validation"
)

// OTPService sends and checks codes for the purposes callers may request
// directly. Download and password reset codes go through their own
// services.
type OTPService struct {
	ledger   *otp.Ledger
	mail     mailer.Sender
	log      logging.Logger
	purposes map[string]struct{}
}

func NewOTPService(ledger *otp.Ledger, mail mailer.Sender, log logging.Logger, purposes ...string) *OTPService {
	if len(purposes) == 0 {
		purposes = []string{common.PurposeContact}
	}
	set := make(map[string]struct{}, len(purposes))
	for _, p := range purposes {
		set[p] = struct{}{}
	}
	return &OTPService{ledger: ledger, mail: mail, log: log.With("module", "otp_service"), purposes: set}
}

func (s *OTPService) validate(contact, purpose string) error {
	if err := validation.Var(contact, "required,notblank"); err != nil {
		return err
	}
	if _, ok := s.purposes[purpose]; !ok {
		return common.ErrInvalidInput
	}
	return nil
}

// Send issues a fresh code for (contact, purpose) and mails it. The
// returned id addresses the code for VerifyByID style checks.
func (s *OTPService) Send(ctx context.Context, contact, purpose string) (string, error) {
	if err := s.validate(contact, purpose); err != nil {
		return "", err
	}

	o, err := s.ledger.Issue(ctx, contact, purpose)
	if err != nil {
		return "", err
	}
	if err := s.mail.Send(ctx, mailer.CodeMessage(o.Contact, purpose, o.Code)); err != nil {
		s.log.Error(ctx, "otp mail failed", "purpose", purpose, "error", err)
		return "", internal(err)
	}
	return o.ID, nil
}

// Check verifies code for (contact, purpose).
func (s *OTPService) Check(ctx context.Context, contact, purpose, code string) error {
	if err := s.validate(contact, purpose); err != nil {
		return err
	}
	return s.ledger.Verify(ctx, contact, purpose, code)
}
