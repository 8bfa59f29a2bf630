package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/ratelimit"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := logging.ContextWith(r.Context(), "request_id", requestID)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Info(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String())
	})
}

// limit counts the request against channel for the calling client before
// running next. A channel without a configured limit is not counted.
func (h *handler) limit(channel string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l, ok := h.Limits[channel]
		if !ok || l.Max <= 0 || h.Limiter == nil {
			next(w, r)
			return
		}

		key := ratelimit.ClientKey(channel, r)
		res, err := h.Limiter.Check(r.Context(), key, l.Max, l.Window)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !res.Allowed {
			h.log.Warn(r.Context(), "rate limited", "channel", channel, "key", key)
			h.writeRateLimited(w, r, int(res.RetryAfter(h.now())/time.Second))
			return
		}
		next(w, r)
	})
}
