package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/pkg/db/models"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
)

const productNotFoundMessage = "product not found"

// Service exposes the catalog to controllers and to other domains.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, productID string) (*ProductDTO, error)
	EnsureExists(ctx context.Context, productID string) error
	FindPrices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)
	Lookup(ctx context.Context, productIDs []string) (map[string]ProductDTO, error)
}

type productRepository interface {
	FindByProductID(ctx context.Context, productID string) (*models.Product, error)
	FindByProductIDs(ctx context.Context, productIDs []string) ([]models.Product, error)
	Exists(ctx context.Context, productID string) (bool, error)
	FindPrices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)
	List(ctx context.Context, category string, limit, offset int) ([]models.Product, int64, error)
}

type service struct {
	repo productRepository
}

// NewService constructs the catalog service.
func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	params := input.Pagination.Normalize()
	rows, total, err := s.repo.List(ctx, input.Category, params.Limit, params.Offset())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewProductDTO(&rows[i]))
	}
	return &ProductListResult{
		Products: items,
		Page:     params.Page,
		Limit:    params.Limit,
		Total:    total,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, productID string) (*ProductDTO, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	product, err := s.repo.FindByProductID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return NewProductDTO(product), nil
}

// EnsureExists returns NOT_FOUND when productID is not in the catalog.
func (s *service) EnsureExists(ctx context.Context, productID string) error {
	ok, err := s.repo.Exists(ctx, strings.TrimSpace(productID))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	return nil
}

// FindPrices returns current unit prices keyed by product id. Unknown ids are
// left out; callers decide how to price them.
func (s *service) FindPrices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	ids := dedupe(productIDs)
	prices, err := s.repo.FindPrices(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find prices")
	}
	return prices, nil
}

// Lookup returns catalog entries keyed by product id for display enrichment.
func (s *service) Lookup(ctx context.Context, productIDs []string) (map[string]ProductDTO, error) {
	rows, err := s.repo.FindByProductIDs(ctx, dedupe(productIDs))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup products")
	}
	out := make(map[string]ProductDTO, len(rows))
	for i := range rows {
		out[rows[i].ProductID] = *NewProductDTO(&rows[i])
	}
	return out, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
