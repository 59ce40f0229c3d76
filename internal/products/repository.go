package products

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopsense/storefront-backend/pkg/db/models"
)

// Repository exposes catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Upsert inserts a product or refreshes an existing one by product_id.
func (r *Repository) Upsert(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "full_category_path", "top_category",
				"normalized_top_category", "brand", "price", "image_url", "updated_at",
			}),
		}).
		Create(product).Error
}

// FindByProductID loads a product by its public catalog id.
func (r *Repository) FindByProductID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByProductIDs loads the products matching ids.
func (r *Repository) FindByProductIDs(ctx context.Context, productIDs []string) ([]models.Product, error) {
	var rows []models.Product
	if len(productIDs) == 0 {
		return rows, nil
	}
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Exists reports whether productID is in the catalog.
func (r *Repository) Exists(ctx context.Context, productID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count > 0, err
}

// FindPrices returns the current unit price for each known product id.
// Unknown ids are absent from the result.
func (r *Repository) FindPrices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return prices, nil
	}

	var rows []struct {
		ProductID string
		Price     decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("product_id", "price").
		Where("product_id IN ?", productIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		prices[row.ProductID] = row.Price
	}
	return prices, nil
}

// List returns one page of products, optionally filtered by normalized top
// category, along with the total match count.
func (r *Repository) List(ctx context.Context, category string, limit, offset int) ([]models.Product, int64, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Product{})
		if c != "" {
			query = query.Where("LOWER(normalized_top_category) = ?", c)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := scoped().
		Order("title ASC").
		Order("product_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
