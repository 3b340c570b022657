package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"productapi/internal/models"
)

// Middleware returns HTTP middleware that enforces the limiter's admission
// policy. Requests carrying an authenticated user (the "user" context value
// set by the auth middleware) are checked against the user table; all other
// requests are checked against the IP table. The stats sink may be nil.
func Middleware(limiter *Limiter, stats DecisionStats) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, source, allowed, info := resolveAndCheck(limiter, r)

			if stats != nil {
				// Best-effort: a failing sink never affects the decision.
				_ = stats.Record(r.Context(), Decision{
					Key:     key,
					Source:  source,
					Allowed: allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			resetAt := info.ResetAt
			if resetAt.IsZero() {
				resetAt = time.Now()
			}
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))

			if !allowed {
				retryAfterSecs := int(info.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimited)
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"source", source,
					"key", key,
					"limit", info.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveAndCheck picks the key space for the request and runs the check.
// Authenticated requests are limited per user ID only; anonymous requests
// fall back to the client IP.
func resolveAndCheck(limiter *Limiter, r *http.Request) (key, source string, allowed bool, info Info) {
	if user, ok := r.Context().Value("user").(*models.User); ok && user != nil {
		allowed, info = limiter.CheckUser(user.ID)
		return user.ID, "user", allowed, info
	}
	ip := ClientIP(r)
	allowed, info = limiter.CheckIP(ip)
	return ip, "ip", allowed, info
}

// ClientIP extracts the client IP from the request, checking proxy headers.
// How trustworthy these headers are is a deployment concern; the limiter
// treats whatever comes out of here as an opaque key.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
