// Package ratelimit implements fixed-window request counting per key.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to a
// whole second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return d.Truncate(time.Second) + time.Second
}

// Limiter counts calls per key. The first call for a key, or the first
// call after its window elapsed, opens a new window; a call is allowed
// while the window count stays within max.
type Limiter interface {
	Check(ctx context.Context, key string, max int, window time.Duration) (Result, error)
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}

// ClientKey builds "<channel>:<client>" where client is the first
// X-Forwarded-For entry, else the peer host, else "unknown".
func ClientKey(channel string, r *http.Request) string {
	return channel + ":" + clientID(r)
}

func clientID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
