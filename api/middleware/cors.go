package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/shopsense/storefront-backend/pkg/config"
)

// CORS applies the configured origin policy. Browsers refuse credentialed
// responses for a "*" origin, so credentials are only allowed for an
// explicit origin list.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*")
	origins := cfg.AllowedOrigins
	if wildcard {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-Requested-With",
			requestIDHeader, SessionHeader, GuestHeader, IdempotencyHeader,
		},
		ExposedHeaders: []string{
			requestIDHeader, ReplayedHeader, "Retry-After",
			rateLimitLimitHeader, rateLimitRemainingHeader,
		},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
