package products

import "github.com/shopsense/storefront-backend/pkg/pagination"

// ListProductsInput captures the browse filters.
type ListProductsInput struct {
	Category   string
	Pagination pagination.Params
}

// ProductListResult is one page of the catalog.
type ProductListResult struct {
	Products []ProductDTO `json:"products"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	Total    int64        `json:"total"`
}
