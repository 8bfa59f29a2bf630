// Package auth is the token authority: it signs and verifies access and
// refresh JWTs and keeps refresh token families consistent in storage.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims carries the identity snapshot embedded in both token kinds.
// Refresh tokens also carry the family id and a unique jti.
type Claims struct {
	jwt.RegisteredClaims
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Type     string      `json:"typ"`
	FamilyID string      `json:"fid,omitempty"`
}

// UserID returns the subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Subject is the identity a token pair is issued for.
type Subject struct {
	UserID string
	Email  string
	Name   string
	Role   models.Role
}

// SubjectFromUser snapshots the token-relevant fields of a user.
func SubjectFromUser(u *models.User) Subject {
	return Subject{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Signer issues and verifies HS256 tokens with one server secret.
type Signer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSigner(secret []byte, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

func (s *Signer) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Signer) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Signer) claims(sub Subject, typ string, ttl time.Duration) *Claims {
	now := s.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: sub.Email,
		Name:  sub.Name,
		Role:  sub.Role,
		Type:  typ,
	}
}

func (s *Signer) sign(c *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// SignAccess returns a short-lived access token for sub.
func (s *Signer) SignAccess(sub Subject) (string, error) {
	return s.sign(s.claims(sub, TypeAccess, s.accessTTL))
}

// SignRefresh returns a refresh token in familyID together with its claims.
// An empty familyID starts a new family.
func (s *Signer) SignRefresh(sub Subject, familyID string) (string, *Claims, error) {
	if familyID == "" {
		familyID = uuid.NewString()
	}
	c := s.claims(sub, TypeRefresh, s.refreshTTL)
	c.FamilyID = familyID
	c.ID = uuid.NewString()

	token, err := s.sign(c)
	if err != nil {
		return "", nil, err
	}
	return token, c, nil
}

func (s *Signer) parse(tokenString, typ string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidSignature
	}

	if !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, common.ErrInvalidSignature
	}
	if typ == TypeRefresh && claims.FamilyID == "" {
		return nil, common.ErrInvalidSignature
	}

	return claims, nil
}

// VerifyAccess checks signature, expiry and type of an access token.
func (s *Signer) VerifyAccess(token string) (*Claims, error) {
	return s.parse(token, TypeAccess)
}

// VerifyRefresh checks signature, expiry and type of a refresh token.
func (s *Signer) VerifyRefresh(token string) (*Claims, error) {
	return s.parse(token, TypeRefresh)
}

// refreshFamily reads the family of a correctly signed refresh token even
// when it has expired.
func (s *Signer) refreshFamily(token string) (string, error) {
	c, err := s.parse(token, TypeRefresh, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	return c.FamilyID, nil
}
