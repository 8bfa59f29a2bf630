package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/cryptox"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/auth"
	"github.com/dmitrijs2005/bizdesk/internal/server/mailer"
	"github.com/dmitrijs2005/bizdesk/internal/server/otp"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/users"
	"github.com/dmitrijs2005/bizdesk/internal/validation"
)

const MinPasswordLength = 8

// PasswordResetService resets passwords with an e-mailed code. Request
// behaves the same whether or not the address belongs to an account.
type PasswordResetService struct {
	users  users.Repository
	ledger *otp.Ledger
	mail   mailer.Sender
	tokens *auth.Authority
	log    logging.Logger
}

func NewPasswordResetService(u users.Repository, ledger *otp.Ledger, mail mailer.Sender, tokens *auth.Authority, log logging.Logger) *PasswordResetService {
	return &PasswordResetService{users: u, ledger: ledger, mail: mail, tokens: tokens, log: log.With("module", "password_reset")}
}

// Request mails a reset code if email belongs to an active account. Only a
// malformed address or a failed user lookup is reported; unknown addresses
// and delivery problems return nil like a successful send.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validation.Var(email, "required,email"); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Debug(ctx, "password reset for unknown address")
			return nil
		}
		return internal(err)
	}
	if !user.Active {
		return nil
	}

	o, err := s.ledger.Issue(ctx, user.Email, common.PurposePasswordReset)
	if err != nil {
		s.log.Error(ctx, "reset code not issued", "user_id", user.ID, "error", err)
		return nil
	}
	if err := s.mail.Send(ctx, mailer.CodeMessage(o.Contact, "password reset", o.Code)); err != nil {
		s.log.Error(ctx, "reset mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// Confirm checks code and replaces the password. Existing refresh tokens of
// the account are revoked.
func (s *PasswordResetService) Confirm(ctx context.Context, email, code, newPassword string) error {
	if err := validation.Var(newPassword, fmt.Sprintf("min=%d", MinPasswordLength)); err != nil {
		return err
	}

	if err := s.ledger.Verify(ctx, email, common.PurposePasswordReset, code); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internal(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, cryptox.HashPassword(newPassword)); err != nil {
		return internal(err)
	}
	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return err
	}

	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}
