// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the authorization role carried by a user and by its tokens.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleStaff  Role = "STAFF"
	RoleClient Role = "CLIENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient:
		return true
	}
	return false
}

// User is the only principal type. Role and Active are managed outside
// the authentication core and only read here.
type User struct {
	ID           string
	Email        string
	LoginID      string // optional mobile login id, empty when unset
	Name         string
	Role         Role
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
}
