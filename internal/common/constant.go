// Package common contains shared constants and sentinel errors used across
// bizdesk components.
package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key carrying
// bearer credentials of mobile clients.
const AuthorizationHeaderName = "authorization"

// BearerScheme prefixes the access token inside the Authorization header.
const BearerScheme = "Bearer"

// OTP purposes used by the built-in flows.
const (
	PurposeContact       = "contact"
	PurposeDownload      = "download"
	PurposePasswordReset = "password-reset"
)
