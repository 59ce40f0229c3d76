package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsense/storefront-backend/pkg/enums"
)

// Event is one shopper behaviour signal in the SQL event log.
type Event struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Identity  string          `gorm:"column:identity;not null;index:idx_events_identity_created,priority:1"`
	EventType enums.EventType `gorm:"column:event_type;not null"`
	ProductID string          `gorm:"column:product_id;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;index:idx_events_identity_created,priority:2"`
}
