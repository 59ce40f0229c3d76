package middleware

import (
	"net/http"
	"strings"

	"github.com/shopsense/storefront-backend/api/responses"
	pkgAuth "github.com/shopsense/storefront-backend/pkg/auth"
	"github.com/shopsense/storefront-backend/pkg/auth/session"
	"github.com/shopsense/storefront-backend/pkg/config"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// Auth requires a valid bearer token whose session is still open and puts the
// user id on the context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearerAuth(cfg, sessions, logg, true)
}

// OptionalAuth lets requests without an Authorization header through
// anonymously. A header that is present must still be valid.
func OptionalAuth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearerAuth(cfg, sessions, logg, false)
}

func bearerAuth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required && strings.TrimSpace(r.Header.Get("Authorization")) == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifyBearer(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			userID := claims.UserID.String()
			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// verifyBearer returns UNAUTHORIZED for anything wrong with the token and
// DEPENDENCY_ERROR when the session store cannot be asked.
func verifyBearer(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	sid := claims.SessionID()
	if sid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}

	open, err := sessions.HasSession(r.Context(), sid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !open {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// BearerToken reads Authorization, accepting the scheme in any case or a
// bare token.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
