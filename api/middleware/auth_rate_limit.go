package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopsense/storefront-backend/api/responses"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

const (
	rateLimitLimitHeader     = "X-RateLimit-Limit"
	rateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// RateLimiter counts attempts in fixed windows.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// rateRule throttles one dimension of a request. key returns "" when the
// request carries nothing to count on that dimension.
type rateRule struct {
	kind  string
	limit int
	key   func(r *http.Request, body []byte) string
}

// AuthRateLimitPolicy throttles signup or login per client IP and per email.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []rateRule
}

// NewAuthRateLimitPolicy builds a policy. A zero limit disables that
// dimension; a zero window disables the policy.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	p := AuthRateLimitPolicy{name: strings.ToLower(strings.TrimSpace(name)), window: window}
	if p.name == "" {
		p.name = "auth"
	}
	if ipLimit > 0 {
		p.rules = append(p.rules, rateRule{kind: "ip", limit: ipLimit, key: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		}})
	}
	if emailLimit > 0 {
		p.rules = append(p.rules, rateRule{kind: "email", limit: emailLimit, key: func(_ *http.Request, body []byte) string {
			if email := emailFromBody(body); email != "" {
				return hashValue(email)
			}
			return ""
		}})
	}
	return p
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.rules) > 0
}

func (p AuthRateLimitPolicy) scope(kind, value string) string {
	return p.name + ":" + kind + ":" + value
}

// AuthRateLimit rejects the request with RATE_LIMIT_EXCEEDED once any rule's
// window is exhausted. The body is restored for the handler.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			body, err := peekBody(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			remaining := -1
			for _, rule := range policy.rules {
				value := rule.key(r, body)
				if value == "" {
					continue
				}
				allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(rule.kind, value), int64(rule.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					logBlocked(ctx, logg, policy, rule, value, count)
					w.Header().Set(rateLimitLimitHeader, strconv.Itoa(rule.limit))
					w.Header().Set(rateLimitRemainingHeader, "0")
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
				if left := rule.limit - int(count); remaining < 0 || left < remaining {
					remaining = left
					w.Header().Set(rateLimitLimitHeader, strconv.Itoa(rule.limit))
				}
			}
			if remaining >= 0 {
				w.Header().Set(rateLimitRemainingHeader, strconv.Itoa(remaining))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func logBlocked(ctx context.Context, logg *logger.Logger, policy AuthRateLimitPolicy, rule rateRule, value string, count int64) {
	if logg == nil {
		return
	}
	logg.Warn(logg.WithFields(ctx, map[string]any{
		"policy":         policy.name,
		"scope":          rule.kind,
		"key":            value,
		"attempts":       count,
		"limit":          rule.limit,
		"window_seconds": int(policy.window.Seconds()),
	}), "auth.rate_limit.blocked")
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

// hashValue keeps raw emails out of Redis keys and logs.
func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
