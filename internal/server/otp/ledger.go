// Package otp is the one-time code ledger. A code proves control of a
// contact address for one purpose; only the newest unverified code of a
// (contact, purpose) pair is accepted.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/otps"
	"github.com/google/uuid"
)

const (
	DefaultTTL    = 10 * time.Minute
	DefaultLength = 6
)

type Ledger struct {
	repo   otps.Repository
	ttl    time.Duration
	length int
	now    func() time.Time
}

// NewLedger returns a ledger issuing codes of length digits valid for ttl.
// Zero values fall back to DefaultLength and DefaultTTL.
func NewLedger(repo otps.Repository, ttl time.Duration, length int) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if length <= 0 {
		length = DefaultLength
	}
	return &Ledger{repo: repo, ttl: ttl, length: length, now: time.Now}
}

func normalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

func internal(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

// Issue replaces any pending code for (contact, purpose) with a fresh one
// and returns the stored record. The caller delivers Code out of band.
func (l *Ledger) Issue(ctx context.Context, contact, purpose string) (*models.OTP, error) {
	contact = normalizeContact(contact)
	now := l.now()

	code, err := common.GenerateRandDigits(l.length)
	if err != nil {
		return nil, internal(err)
	}

	o := &models.OTP{
		ID:        uuid.NewString(),
		Contact:   contact,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}

	if err := l.repo.DeleteUnverified(ctx, contact, purpose); err != nil {
		return nil, internal(err)
	}
	if err := l.repo.Insert(ctx, o); err != nil {
		return nil, internal(err)
	}
	return o, nil
}

func codesEqual(stored, presented string) bool {
	presented = strings.TrimSpace(presented)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// check applies expiry and code comparison; expiry wins over a matching code.
func (l *Ledger) check(o *models.OTP, code string) error {
	if l.now().After(o.ExpiresAt) {
		return common.ErrCodeExpired
	}
	if !codesEqual(o.Code, code) {
		return common.ErrCodeMismatch
	}
	return nil
}

func (l *Ledger) markVerified(ctx context.Context, o *models.OTP) error {
	if err := l.repo.MarkVerified(ctx, o.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// superseded between lookup and update
			return common.ErrorNotFound
		}
		return internal(err)
	}
	return nil
}

// Verify checks code against the newest unverified record for
// (contact, purpose) and marks it verified on success. A code superseded by
// a newer Issue is compared against the newer record and so fails with
// ErrCodeMismatch; VerifyByID reports the same case as ErrorNotFound.
func (l *Ledger) Verify(ctx context.Context, contact, purpose, code string) error {
	o, err := l.repo.FindLatestUnverified(ctx, normalizeContact(contact), purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internal(err)
	}

	if err := l.check(o, code); err != nil {
		return err
	}
	return l.markVerified(ctx, o)
}

// VerifyByID is Verify addressed by record id. Re-checking an already
// verified record with the same code succeeds again; a record replaced by
// a newer Issue is gone and yields ErrorNotFound.
func (l *Ledger) VerifyByID(ctx context.Context, id, purpose, code string) error {
	o, err := l.find(ctx, id, purpose)
	if err != nil {
		return err
	}

	if err := l.check(o, code); err != nil {
		return err
	}
	if o.Verified {
		return nil
	}
	return l.markVerified(ctx, o)
}

func (l *Ledger) find(ctx context.Context, id, purpose string) (*models.OTP, error) {
	// ids are issued as UUIDs; anything else cannot name a record
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	o, err := l.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internal(err)
	}
	if o.Purpose != purpose {
		return nil, common.ErrorNotFound
	}
	return o, nil
}

// Consume spends a verified proof. The record is removed with a delete
// conditioned on it still being verified, so of several concurrent callers
// holding the same proof exactly one succeeds; the rest get ErrorNotFound.
func (l *Ledger) Consume(ctx context.Context, id, purpose string) error {
	o, err := l.find(ctx, id, purpose)
	if err != nil {
		return err
	}
	if !o.Verified {
		return common.ErrorNotFound
	}
	if l.now().After(o.ExpiresAt) {
		return common.ErrCodeExpired
	}
	if err := l.repo.DeleteVerified(ctx, o.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internal(err)
	}
	return nil
}
