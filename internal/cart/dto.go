package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopsense/storefront-backend/internal/products"
	"github.com/shopsense/storefront-backend/pkg/db/models"
)

// CartDTO is the cart shape returned to clients.
type CartDTO struct {
	Identity  string        `json:"identity"`
	Items     []CartLineDTO `json:"items"`
	Subtotal  string        `json:"subtotal"`
	Version   int64         `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CartLineDTO is one line, enriched with catalog data when available.
type CartLineDTO struct {
	ProductID string               `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	Product   *products.ProductDTO `json:"product,omitempty"`
}

// MergeResult reports the outcome of folding a guest cart into a user cart.
type MergeResult struct {
	Cart        *CartDTO `json:"cart"`
	MergedLines int      `json:"merged_lines"`
}

func newCartDTO(cart *models.Cart, catalog map[string]products.ProductDTO) *CartDTO {
	out := &CartDTO{
		Identity:  cart.Identity,
		Items:     make([]CartLineDTO, 0, len(cart.Items)),
		Version:   cart.Version,
		UpdatedAt: cart.UpdatedAt,
	}
	subtotal := decimal.Zero
	for _, line := range cart.Items {
		item := CartLineDTO{ProductID: line.ProductID, Quantity: line.Quantity}
		if p, ok := catalog[line.ProductID]; ok {
			p := p
			item.Product = &p
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		out.Items = append(out.Items, item)
	}
	out.Subtotal = subtotal.StringFixed(2)
	return out
}
