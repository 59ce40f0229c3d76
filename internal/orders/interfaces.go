package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/pkg/db/models"
)

// Repository persists immutable order snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByIdentity(ctx context.Context, identity string, limit, offset int) ([]models.Order, int64, error)
	FindForIdentity(ctx context.Context, identity string, id uuid.UUID) (*models.Order, error)
}
