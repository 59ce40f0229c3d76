package products

import (
	"github.com/shopspring/decimal"

	"github.com/shopsense/storefront-backend/pkg/db/models"
)

// ProductDTO is the catalog shape returned to clients.
type ProductDTO struct {
	ProductID             string          `json:"product_id"`
	Title                 string          `json:"title"`
	Description           *string         `json:"description,omitempty"`
	FullCategoryPath      *string         `json:"full_category_path,omitempty"`
	TopCategory           *string         `json:"top_category,omitempty"`
	NormalizedTopCategory *string         `json:"normalized_top_category,omitempty"`
	Brand                 *string         `json:"brand,omitempty"`
	Price                 decimal.Decimal `json:"price"`
	ImageURL              *string         `json:"image_url,omitempty"`
}

// NewProductDTO maps a catalog row.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ProductID:             p.ProductID,
		Title:                 p.Title,
		Description:           p.Description,
		FullCategoryPath:      p.FullCategoryPath,
		TopCategory:           p.TopCategory,
		NormalizedTopCategory: p.NormalizedTopCategory,
		Brand:                 p.Brand,
		Price:                 p.Price,
		ImageURL:              p.ImageURL,
	}
}
