package controllers

import (
	"net/http"
	"strings"

	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/explain"
	"github.com/shopsense/storefront-backend/internal/recommend"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// Recommend handles GET /api/recommend?k. It never fails because the
// recommender is down; the payload is marked degraded instead.
func Recommend(svc recommend.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "recommendation")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		k, err := validators.ParseQueryInt(r, "k", recommend.DefaultK, 1, recommend.MaxK)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Recommend(r.Context(), id, k)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Explain handles GET /api/explain?product_id&filter_category&min_price&max_price.
func Explain(svc explain.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "explanation")
			return
		}
		id, ok := sessionIdentity(w, r, logg)
		if !ok {
			return
		}

		minPrice, err := validators.ParseQueryPrice(r, "min_price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		maxPrice, err := validators.ParseQueryPrice(r, "max_price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.Explain(r.Context(), id, query.Get("product_id"), explain.Filters{
			Category: strings.TrimSpace(query.Get("filter_category")),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
