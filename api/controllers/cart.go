package controllers

import (
	"net/http"
	"strings"

	"github.com/shopsense/storefront-backend/api/middleware"
	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/cart"
	"github.com/shopsense/storefront-backend/internal/identity"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

type cartAddRequest struct {
	identityFields
	ProductID string `json:"product_id" validate:"required,max=128"`
	// lte mirrors cart.MaxLineQuantity.
	Quantity  *int   `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=10000"`
}

type cartRemoveRequest struct {
	identityFields
	ProductID string `json:"product_id" validate:"required,max=128"`
}

type cartMergeRequest struct {
	GuestID string `json:"guest_id,omitempty" validate:"omitempty,max=160"`
}

// CartGet returns the session's cart, creating an empty one on first use.
func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartAdd adds quantity (default 1) of a product to the session's cart.
func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}

		dto, err := svc.AddLine(r.Context(), id, payload.ProductID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartRemove drops a product line from the session's cart.
func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		var payload cartRemoveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.RemoveLine(r.Context(), id, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartClear empties the session's cart. Clearing twice is not an error.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		dto, err := svc.Clear(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartMerge folds a guest cart into the authenticated user's cart. The guest
// id comes from the body or the X-Guest-Id header.
func CartMerge(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "cart")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		var payload cartMergeRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		guest, err := guestIdentity(r, payload.GuestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if guest == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "guest_id is required"))
			return
		}

		result, err := svc.Merge(r.Context(), id, guest)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// guestIdentity reads the guest cart owner from the body value or the
// X-Guest-Id header. Absent values return "".
func guestIdentity(r *http.Request, bodyValue string) (identity.Identity, error) {
	raw := strings.TrimSpace(bodyValue)
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get(middleware.GuestHeader))
	}
	if raw == "" {
		return "", nil
	}
	return identity.Guest(raw)
}
