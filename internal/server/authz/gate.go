// Package authz decides whether a resolved caller may proceed.
package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
)

// RoleSet is the set of roles allowed through. A nil set admits any
// authenticated caller.
type RoleSet map[models.Role]struct{}

func Roles(roles ...models.Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

var (
	Admin         = Roles(models.RoleAdmin)
	Staff         = Roles(models.RoleAdmin, models.RoleStaff)
	Authenticated RoleSet
)

func (s RoleSet) allows(r models.Role) bool {
	if s == nil {
		return true
	}
	_, ok := s[r]
	return ok
}

// SessionResolver is satisfied by *session.Resolver.
type SessionResolver interface {
	Resolve(r *http.Request) (*session.Session, error)
}

// UserFinder re-reads accounts for flows that must see deactivation
// immediately.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Gate struct {
	sessions SessionResolver
	users    UserFinder
}

func NewGate(sessions SessionResolver, users UserFinder) *Gate {
	return &Gate{sessions: sessions, users: users}
}

// Check applies roles to an already resolved session.
func Check(s *session.Session, roles RoleSet) (*session.Identity, error) {
	if s == nil || s.Identity.Email == "" {
		return nil, common.ErrorUnauthorized
	}
	if !roles.allows(s.Identity.Role) {
		return nil, common.ErrorForbidden
	}
	id := s.Identity
	return &id, nil
}

// RequireRole resolves the caller and checks it against roles.
// Credential failures of any kind are reported as ErrorUnauthorized.
func (g *Gate) RequireRole(r *http.Request, roles RoleSet) (*session.Identity, error) {
	s, err := g.resolve(r)
	if err != nil {
		return nil, err
	}
	return Check(s, roles)
}

func (g *Gate) resolve(r *http.Request) (*session.Session, error) {
	if s := session.FromContext(r.Context()); s != nil {
		return s, nil
	}
	s, err := g.sessions.Resolve(r)
	if err != nil {
		if errors.Is(err, common.ErrorInternal) {
			return nil, err
		}
		return nil, common.ErrorUnauthorized
	}
	return s, nil
}

// RequireActive is RequireRole plus a fresh read of the account: a user
// deactivated after the token was issued is rejected.
func (g *Gate) RequireActive(r *http.Request, roles RoleSet) (*session.Identity, error) {
	id, err := g.RequireRole(r, roles)
	if err != nil {
		return nil, err
	}
	return g.fresh(r.Context(), id, roles)
}

func (g *Gate) fresh(ctx context.Context, id *session.Identity, roles RoleSet) (*session.Identity, error) {
	u, err := g.users.FindByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !u.Active {
		return nil, common.ErrorUnauthorized
	}
	if !roles.allows(u.Role) {
		return nil, common.ErrorForbidden
	}

	fresh := session.IdentityFromUser(u)
	return &fresh, nil
}

// ErrorWriter renders gate failures; the HTTP layer supplies its JSON writer.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware admits requests whose caller holds one of roles and passes
// the resolved session down in the request context.
func (g *Gate) Middleware(roles RoleSet, active bool, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := g.resolve(r)
			if err != nil {
				fail(w, r, err)
				return
			}

			id, err := Check(s, roles)
			if err == nil && active {
				id, err = g.fresh(r.Context(), id, roles)
			}
			if err != nil {
				fail(w, r, err)
				return
			}

			ctx := session.NewContext(r.Context(), &session.Session{Via: s.Via, Identity: *id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
