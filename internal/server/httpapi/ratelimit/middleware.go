package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi/response"
)

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// Policy applies a Limiter to HTTP requests keyed by client address.
type Policy struct {
	Limiter Limiter
	Limit   int
	Window  time.Duration
	Mode    FailureMode
	Scope   string
	Logger  logging.Logger
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Backend failures either pass the request through (FailOpen) or
// reject it (FailClosed).
func (p Policy) Middleware(next http.Handler) http.Handler {
	if p.Limit <= 0 || p.Limiter == nil {
		return next
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := p.Scope + ":" + ClientIP(r)

		allowed, retryAfter, err := p.Limiter.Allow(r.Context(), key, p.Limit, p.Window)
		if err != nil {
			if p.Mode == FailOpen {
				logger.Warn(r.Context(), "rate limiter unavailable, allowing request", "scope", p.Scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			logger.Error(r.Context(), "rate limiter unavailable", "scope", p.Scope, "error", err)
			retryAfter = p.Window
			allowed = false
		}
		if !allowed {
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of r.RemoteAddr. chi's RealIP middleware
// runs earlier and rewrites RemoteAddr from proxy headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func retryAfterSeconds(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
