package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/shopsense/storefront-backend/api/middleware"
	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/internal/identity"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// identityFields lets strict body decoding accept the identity fields that the
// Session middleware already consumed.
type identityFields struct {
	SessionID json.RawMessage `json:"session_id,omitempty" validate:"-"`
	UserID    json.RawMessage `json:"user_id,omitempty" validate:"-"`
}

func sessionIdentity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (identity.Identity, bool) {
	id := middleware.IdentityFromContext(r.Context())
	if id == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session not established"))
		return "", false
	}
	return id, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
