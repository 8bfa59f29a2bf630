package models

import "time"

// RefreshToken is the persisted side of a refresh JWT. Only the sha256
// hash of the compact token is stored.
type RefreshToken struct {
	ID         string
	TokenHash  string
	UserID     string
	FamilyID   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
	ReplacedBy string // hash of the successor, empty until rotated
}
