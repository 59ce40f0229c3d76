package controllers

import (
	"net/http"

	"github.com/shopsense/storefront-backend/api/middleware"
	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/auth"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// jsonAction decodes and validates a Req body, runs call and writes its
// result with status.
func jsonAction[Req, Resp any](logg *logger.Logger, status int, call func(r *http.Request, req Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := call(r, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

func authUnavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { unavailable(w, r, logg, "auth") }
}

// AuthSignup handles POST /api/auth/signup and answers 201 with a token pair.
func AuthSignup(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return authUnavailable(logg)
	}
	return jsonAction(logg, http.StatusCreated, func(r *http.Request, req auth.SignupRequest) (*auth.AuthResponse, error) {
		return svc.Signup(r.Context(), req)
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return authUnavailable(logg)
	}
	return jsonAction(logg, http.StatusOK, func(r *http.Request, req auth.LoginRequest) (*auth.AuthResponse, error) {
		return svc.Login(r.Context(), req)
	})
}

// AuthRefresh rotates the refresh session. The access token, possibly
// expired, travels in the Authorization header.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return authUnavailable(logg)
	}
	return jsonAction(logg, http.StatusOK, func(r *http.Request, req auth.RefreshRequest) (*auth.TokenPair, error) {
		return svc.Refresh(r.Context(), middleware.BearerToken(r), req.RefreshToken)
	})
}

// AuthLogout revokes the session behind the bearer token and answers 204.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return authUnavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
