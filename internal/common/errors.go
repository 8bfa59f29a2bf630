// Package common defines shared constants and sentinel errors used across
// the server layers of bizdesk. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrAlreadyRevoked = errors.New("already revoked")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrRateLimited    = errors.New("too many requests")
	ErrInvalidInput   = errors.New("invalid input")

	// Auth errors (invalid or malformed token).
	ErrInvalidSignature = errors.New("invalid signature")

	// Token lifecycle errors.
	ErrTokenExpired  = errors.New("token expired")
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// OTP errors.
	ErrCodeExpired  = errors.New("code expired")
	ErrCodeMismatch = errors.New("code mismatch")
)
