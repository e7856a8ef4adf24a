package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/handidevproject/pos-dashboard/internal/pkg/errors"
	"github.com/handidevproject/pos-dashboard/internal/pkg/response"
)

// Counter counts hits in a fixed window. database.Redis implements it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// DefaultRateLimitConfig returns the limits for form submissions.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         10,
	}
}

// RateLimit limits state-changing requests (anything but GET, HEAD and
// OPTIONS) per client. A nil counter disables limiting. Counter failures let
// the request through.
func RateLimit(counter Counter, cfg RateLimitConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s", getClientID(r))
			window := time.Minute

			count, ttl, err := counter.IncrWithExpire(r.Context(), key, window)
			if err != nil {
				logger.Warn("rate limit counter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if int(count) > limit+cfg.BurstSize {
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
				rateLimitedTotal.Inc()
				response.Error(w, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientID identifies the client: the signed-in user when the guard ran,
// otherwise the address chi's RealIP middleware resolved.
func getClientID(r *http.Request) string {
	if user := UserFromContext(r.Context()); user != nil {
		return "user:" + user.ID
	}

	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return "ip:" + strings.TrimSpace(addr)
}
