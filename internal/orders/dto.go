package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/enums"
	"github.com/shopsense/storefront-backend/pkg/types"
)

// OrderDTO is the order shape returned to clients.
type OrderDTO struct {
	ID          uuid.UUID             `json:"id"`
	Identity    string                `json:"identity"`
	Items       []OrderItemDTO        `json:"items"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	Status      enums.OrderStatus     `json:"status"`
	PaymentMode enums.PaymentMode     `json:"payment_mode"`
	Address     types.ShippingAddress `json:"address"`
	CreatedAt   time.Time             `json:"created_at"`
}

// OrderItemDTO is one priced line.
type OrderItemDTO struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderListResult is one page of order history.
type OrderListResult struct {
	Orders []OrderDTO `json:"orders"`
	Page   int        `json:"page"`
	Limit  int        `json:"limit"`
	Total  int64      `json:"total"`
}

// FromModel maps an order row and its items.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return &OrderDTO{
		ID:          o.ID,
		Identity:    o.Identity,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		PaymentMode: o.PaymentMode,
		Address:     o.Address,
		CreatedAt:   o.CreatedAt,
	}
}
