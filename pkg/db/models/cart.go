package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsense/storefront-backend/pkg/types"
)

// Cart is the mutable pre-purchase document owned by one identity. Version is
// bumped on every write and guards conditional updates.
type Cart struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Identity  string          `gorm:"column:identity;not null;uniqueIndex"`
	Items     types.CartLines `gorm:"column:items;type:jsonb;not null"`
	Version   int64           `gorm:"column:version;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
