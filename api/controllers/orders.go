package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/checkout"
	"github.com/shopsense/storefront-backend/internal/orders"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/types"
)

type placeOrderRequest struct {
	identityFields
	GuestID     string                `json:"guest_id,omitempty" validate:"omitempty,max=160"`
	Address     types.ShippingAddress `json:"address" validate:"-"`
	PaymentMode string                `json:"payment_mode,omitempty" validate:"omitempty,max=32"`
}

// OrderPlace turns the session's cart into an order. Logged-in shoppers may
// pass guest_id (or X-Guest-Id) to fold their pre-login cart in first.
func OrderPlace(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "checkout")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.PlaceOrderInput{
			Address:     payload.Address,
			PaymentMode: payload.PaymentMode,
		}
		if id.IsUser() {
			guest, err := guestIdentity(r, payload.GuestID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.GuestID = guest
		}

		result, err := svc.PlaceOrder(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrderList returns the session's order history, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OrderDetail returns one order owned by the session.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), id, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
