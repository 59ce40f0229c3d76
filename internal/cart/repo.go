package cart

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/types"
)

// Repository persists one cart document per identity.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Find loads the cart owned by identity.
func (r *Repository) Find(ctx context.Context, identity string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("identity = ?", identity).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Ensure returns the cart for identity, creating an empty one if absent.
// Concurrent callers race on the unique identity index; losers read the
// winner's row.
func (r *Repository) Ensure(ctx context.Context, identity string) (*models.Cart, error) {
	cart := &models.Cart{Identity: identity, Items: types.CartLines{}}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "identity"}}, DoNothing: true}).
		Create(cart).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, identity)
}

// CompareAndSwap replaces the item list only if the stored version still
// matches, bumping the version. It reports whether the row was updated.
func (r *Repository) CompareAndSwap(ctx context.Context, identity string, version int64, items types.CartLines) (bool, error) {
	if items == nil {
		items = types.CartLines{}
	}
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("identity = ? AND version = ?", identity, version).
		Updates(map[string]any{
			"items":      items,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
