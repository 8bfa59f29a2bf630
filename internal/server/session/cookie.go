package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const CookieName = "bizdesk_session"

// cookieValue is what the browser holds, authenticated and encrypted.
type cookieValue struct {
	Identity Identity
	IssuedAt int64
}

// CookieStore is the browser session mechanism. The identity travels in an
// HMAC-signed, AES-encrypted cookie; nothing is kept server-side.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

// NewCookieStore builds a store from a 32 or 64 byte hash key and an
// optional 16, 24 or 32 byte block key.
func NewCookieStore(hashKey, blockKey []byte, maxAge time.Duration, secure bool) (*CookieStore, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("cookie hash key must be at least 32 bytes, got %d", len(hashKey))
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &CookieStore{codec: codec, maxAge: maxAge, secure: secure}, nil
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Save writes the session cookie for id.
func (s *CookieStore) Save(w http.ResponseWriter, id Identity) error {
	encoded, err := s.codec.Encode(CookieName, cookieValue{Identity: id, IssuedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, s.cookie(encoded, int(s.maxAge.Seconds())))
	return nil
}

// Load returns the identity in the request cookie. A missing, expired or
// tampered cookie yields (nil, nil): the caller is simply anonymous.
func (s *CookieStore) Load(r *http.Request) (*Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	var v cookieValue
	if err := s.codec.Decode(CookieName, c.Value, &v); err != nil {
		return nil, nil
	}
	if v.Identity.Email == "" {
		return nil, nil
	}
	return &v.Identity, nil
}

// Clear expires the session cookie.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))
}
