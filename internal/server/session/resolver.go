package session

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/auth"
)

// AccessVerifier checks access tokens; *auth.Signer implements it.
type AccessVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// CookieSessions loads the browser session; *CookieStore implements it.
type CookieSessions interface {
	Load(r *http.Request) (*Identity, error)
}

type Resolver struct {
	tokens  AccessVerifier
	cookies CookieSessions
}

func NewResolver(tokens AccessVerifier, cookies CookieSessions) *Resolver {
	return &Resolver{tokens: tokens, cookies: cookies}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header value. ok is false for any other scheme or an empty header; a
// bare "Bearer" gives ok with an empty token.
func BearerToken(header string) (token string, ok bool) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// IdentityFromClaims builds the identity carried by an access token.
// Tokens are only issued to active users.
func IdentityFromClaims(c *auth.Claims) Identity {
	return Identity{ID: c.UserID(), Email: c.Email, Name: c.Name, Role: c.Role, Active: true}
}

// Resolve returns the caller's session. A bearer header is authoritative:
// when present only the token is checked, and a bad token is an error
// with no fallback to the cookie. Without a bearer header the cookie
// decides. No credential at all gives (nil, nil).
func (r *Resolver) Resolve(req *http.Request) (*Session, error) {
	if token, ok := BearerToken(req.Header.Get(common.AuthorizationHeaderName)); ok {
		if token == "" {
			return nil, common.ErrInvalidSignature
		}
		claims, err := r.tokens.VerifyAccess(token)
		if err != nil {
			return nil, err
		}
		return &Session{Via: ViaBearer, Identity: IdentityFromClaims(claims)}, nil
	}

	if r.cookies == nil {
		return nil, nil
	}
	id, err := r.cookies.Load(req)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}
	return &Session{Via: ViaCookie, Identity: *id}, nil
}
