// Package session resolves an inbound request to the caller's identity
// from either a bearer access token or the browser session cookie.
package session

import (
	"context"

	"github.com/dmitrijs2005/bizdesk/internal/server/models"
)

// Via tells which credential produced a Session.
type Via int

const (
	ViaCookie Via = iota + 1
	ViaBearer
)

func (v Via) String() string {
	switch v {
	case ViaCookie:
		return "cookie"
	case ViaBearer:
		return "bearer"
	}
	return "unknown"
}

// Identity is the normalized view of the caller, the same for both
// credential kinds.
type Identity struct {
	ID     string      `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	Active bool        `json:"active"`
}

// IdentityFromUser snapshots a stored user.
func IdentityFromUser(u *models.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Active: u.Active}
}

// Session is a resolved credential.
type Session struct {
	Via      Via
	Identity Identity
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by NewContext, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
