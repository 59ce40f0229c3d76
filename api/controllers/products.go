package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopsense/storefront-backend/api/responses"
	"github.com/shopsense/storefront-backend/api/validators"
	"github.com/shopsense/storefront-backend/internal/products"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// ProductList handles GET /api/products?category&page&limit.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), products.ListProductsInput{
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductDetail handles GET /api/products/{product_id}.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}

		product, err := svc.GetProduct(r.Context(), chi.URLParam(r, "product_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
