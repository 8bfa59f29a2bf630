package models

import "time"

// OTP is a one-time code bound to a contact and a purpose
// (e.g. "contact", "download:<file id>", "password-reset").
type OTP struct {
	ID        string
	Contact   string
	Purpose   string
	Code      string
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}
