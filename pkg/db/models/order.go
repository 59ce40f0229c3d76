package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsense/storefront-backend/pkg/enums"
	"github.com/shopsense/storefront-backend/pkg/types"
)

// Order is an immutable priced snapshot of a cart at checkout.
type Order struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Identity    string                `gorm:"column:identity;not null;index"`
	TotalAmount decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      enums.OrderStatus     `gorm:"column:status;not null;default:'confirmed'"`
	PaymentMode enums.PaymentMode     `gorm:"column:payment_mode;not null;default:'COD'"`
	Address     types.ShippingAddress `gorm:"column:address;type:jsonb;not null"`
	Items       []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// OrderItem is one priced line of an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID string          `gorm:"column:product_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
}
