package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/validation"
)

const maxBodyBytes = 1 << 16

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decode reads a JSON body into v and checks its validate tags. Unknown
// fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.ErrInvalidInput
	}
	return validation.Struct(v)
}

// status maps a sentinel to the response status and public message.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrReuseDetected):
		return http.StatusUnauthorized, "log in again"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidSignature),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := status(err)
	if code == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		msg = verr.Error()
	}
	writeJSON(w, code, errorBody{Error: msg})
}

// writeCodeError reports one-time code failures. Messages say what to do
// next without telling which contacts exist.
func (h *handler) writeCodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrCodeExpired):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "code expired, request a new one"})
	case errors.Is(err, common.ErrCodeMismatch):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "incorrect code"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no pending code, request a new one"})
	default:
		h.writeError(w, r, err)
	}
}

// writeRateLimited answers ErrRateLimited with the wait in Retry-After.
func (h *handler) writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	h.writeError(w, r, common.ErrRateLimited)
}
