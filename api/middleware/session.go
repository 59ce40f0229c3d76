package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/identity"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

const (
	SessionHeader = "X-Session-Id"
	GuestHeader   = "X-Guest-Id"
)

// Session resolves the shopper identity for the request and stores it on the
// context. It must run after route matching so {user_id} is visible.
func Session(policy identity.Policy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			src, err := gatherSources(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			id, err := identity.Resolve(src, policy)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, id.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func gatherSources(r *http.Request) (identity.Sources, error) {
	src := identity.Sources{
		AuthUserID: UserIDFromContext(r.Context()),
		Header:     firstNonEmpty(r.Header.Get(SessionHeader), r.Header.Get(GuestHeader)),
		Query:      r.URL.Query().Get("session_id"),
		Path:       chi.URLParam(r, "user_id"),
	}

	body, err := peekBody(r)
	if err != nil {
		return src, err
	}
	src.Body = bodyIdentity(body)
	return src, nil
}

// peekBody reads a JSON body and puts it back for the handler. Bodies above
// validators.MaxBodyBytes are rejected rather than truncated.
func peekBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func bodyIdentity(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload struct {
		SessionID any `json:"session_id"`
		UserID    any `json:"user_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return firstNonEmpty(scalar(payload.SessionID), scalar(payload.UserID))
}

// scalar accepts string and numeric ids; anything else is ignored.
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
