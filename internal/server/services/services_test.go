package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/cryptox"
	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/auth"
	"github.com/dmitrijs2005/bizdesk/internal/server/mailer"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/otp"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/memory"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (o *outbox) Send(_ context.Context, m mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, m)
	return nil
}

var codeRe = regexp.MustCompile(`code is (\d+)`)

// lastCode extracts the code from the newest mail.
func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	m := codeRe.FindStringSubmatch(o.sent[len(o.sent)-1].Body)
	require.Len(t, m, 2)
	return m[1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type fakePresigner struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://files.example/" + key + "?sig=1", nil
}

func (f *fakePresigner) presigned() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type env struct {
	users   *memory.Users
	tokens  *memory.RefreshTokens
	otps    *memory.OTPs
	dl      *memory.Downloads
	mail    *outbox
	storage *fakePresigner

	authority *auth.Authority
	ledger    *otp.Ledger
	log       logging.Logger
}

const testPassword = "correct horse"

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := &env{
		users:   memory.NewUsers(),
		tokens:  memory.NewRefreshTokens(),
		otps:    memory.NewOTPs(),
		dl:      memory.NewDownloads(models.Download{ID: "brochure", Title: "Brochure", StorageKey: "files/brochure.pdf"}),
		mail:    &outbox{},
		storage: &fakePresigner{},
		log:     log,
	}
	e.authority = auth.NewAuthority(auth.NewSigner([]byte("secret"), time.Minute, time.Hour), e.tokens, log)
	e.ledger = otp.NewLedger(e.otps, 0, 0)
	return e
}

func (e *env) addUser(t *testing.T, email string, role models.Role, active bool) *models.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), &models.User{
		Email:        email,
		LoginID:      "",
		Name:         "Test " + string(role),
		Role:         role,
		Active:       active,
		PasswordHash: cryptox.HashPassword(testPassword),
	})
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")
