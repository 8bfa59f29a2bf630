package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTP_SendAndVerify(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, call{method: http.MethodPost, path: "/api/otp/send", body: otpSendRequest{Contact: "lead@example.com", Purpose: "contact"}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, decodeBody[map[string]string](t, rec)["id"])
	code := f.mail.lastCode(t)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/otp/verify", body: otpVerifyRequest{Contact: "lead@example.com", Purpose: "contact", Code: "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "incorrect code", errorOf(t, rec))

	rec = f.do(t, call{method: http.MethodPost, path: "/api/otp/verify", body: otpVerifyRequest{Contact: "lead@example.com", Purpose: "contact", Code: code}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[map[string]bool](t, rec)["verified"])

	rec = f.do(t, call{method: http.MethodPost, path: "/api/otp/verify", body: otpVerifyRequest{Contact: "lead@example.com", Purpose: "contact", Code: code}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no pending code, request a new one", errorOf(t, rec))

	rec = f.do(t, call{method: http.MethodPost, path: "/api/otp/send", body: otpSendRequest{Contact: "lead@example.com", Purpose: "password-reset"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOTP_SendRateLimited(t *testing.T) {
	f := newFixture(t, limits(2))
	body := otpSendRequest{Contact: "lead@example.com", Purpose: "contact"}

	for i := 0; i < 2; i++ {
		rec := f.do(t, call{method: http.MethodPost, path: "/api/otp/send", body: body})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := f.do(t, call{method: http.MethodPost, path: "/api/otp/send", body: body})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Len(t, f.mail.sent, 2)
}

func TestDownload_Flow(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, call{method: http.MethodPost, path: "/api/downloads/missing/request", body: downloadRequestBody{Email: "lead@example.com"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/downloads/brochure/request", body: downloadRequestBody{Email: "bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/downloads/brochure/request", body: downloadRequestBody{Email: "lead@example.com", Name: "Lee"}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	otpID := decodeBody[map[string]string](t, rec)["otp_id"]
	code := f.mail.lastCode(t)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/downloads/brochure/complete", body: downloadCompleteBody{OTPID: otpID, Code: code}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://files.example/files/brochure.pdf", decodeBody[map[string]string](t, rec)["url"])

	rec = f.do(t, call{method: http.MethodPost, path: "/api/downloads/brochure/complete", body: downloadCompleteBody{OTPID: otpID, Code: code}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordReset_SameAnswerForEveryAddress(t *testing.T) {
	f := newFixture(t, nil)

	known := f.do(t, call{method: http.MethodPost, path: "/api/password-reset/request", body: resetRequestBody{Email: "staff@example.com"}})
	unknown := f.do(t, call{method: http.MethodPost, path: "/api/password-reset/request", body: resetRequestBody{Email: "nobody@example.com"}})

	assert.Equal(t, http.StatusAccepted, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	require.Len(t, f.mail.sent, 1)

	code := f.mail.lastCode(t)
	rec := f.do(t, call{method: http.MethodPost, path: "/api/password-reset/confirm", body: resetConfirmBody{Email: "staff@example.com", Code: code, Password: "brand new secret"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, call{method: http.MethodPost, path: "/api/mobile/login", body: loginRequest{Login: "staff@example.com", Password: "brand new secret"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name    string
		path    string
		body    any
		message string
	}{
		{"malformed otp id", "/api/downloads/brochure/complete", downloadCompleteBody{OTPID: "abc", Code: "123456"}, "otp_id must be a valid UUID"},
		{"missing code", "/api/downloads/brochure/complete", downloadCompleteBody{OTPID: "3f1c1a4e-5b7d-4c3a-9a35-0d8f4a4e2b10"}, "code is required"},
		{"bad lead address", "/api/downloads/brochure/request", downloadRequestBody{Email: "bogus"}, "email must be a valid email address"},
		{"blank contact", "/api/otp/send", otpSendRequest{Contact: "  ", Purpose: "contact"}, "contact is required"},
		{"short new password", "/api/password-reset/confirm", resetConfirmBody{Email: "staff@example.com", Code: "123456", Password: "short"}, "password must be at least 8 characters long"},
		{"refresh token not a jwt", "/api/mobile/refresh", refreshRequest{RefreshToken: "opaque"}, "refresh_token must be a token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, call{method: http.MethodPost, path: tt.path, body: tt.body})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, errorOf(t, rec))
		})
	}
	assert.Empty(t, f.mail.sent)
}

func TestDownload_UnknownOTPIDMatchesSpentCode(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, call{method: http.MethodPost, path: "/api/downloads/brochure/complete", body: downloadCompleteBody{OTPID: "3f1c1a4e-5b7d-4c3a-9a35-0d8f4a4e2b10", Code: "123456"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no pending code, request a new one", errorOf(t, rec))
}
