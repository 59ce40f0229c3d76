package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. ProductID is the public catalog key shared
// with the recommender; ID is internal.
type Product struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID             string          `gorm:"column:product_id;not null;uniqueIndex"`
	Title                 string          `gorm:"column:title;not null"`
	Description           *string         `gorm:"column:description"`
	FullCategoryPath      *string         `gorm:"column:full_category_path"`
	TopCategory           *string         `gorm:"column:top_category"`
	NormalizedTopCategory *string         `gorm:"column:normalized_top_category;index"`
	Brand                 *string         `gorm:"column:brand"`
	Price                 decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	ImageURL              *string         `gorm:"column:image_url"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
