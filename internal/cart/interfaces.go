package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/internal/products"
	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/enums"
	"github.com/shopsense/storefront-backend/pkg/types"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Find(ctx context.Context, identity string) (*models.Cart, error)
	Ensure(ctx context.Context, identity string) (*models.Cart, error)
	CompareAndSwap(ctx context.Context, identity string, version int64, items types.CartLines) (bool, error)
}

type productCatalog interface {
	EnsureExists(ctx context.Context, productID string) error
	Lookup(ctx context.Context, productIDs []string) (map[string]products.ProductDTO, error)
}

type eventRecorder interface {
	Record(ctx context.Context, id identity.Identity, eventType enums.EventType, productID string) error
}

type conflictCounter interface {
	IncCartConflict()
}
