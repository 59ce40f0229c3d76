package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/internal/identity"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/pagination"
)

// Service exposes order history reads. Orders are written only by checkout.
type Service interface {
	List(ctx context.Context, id identity.Identity, params pagination.Params) (*OrderListResult, error)
	Get(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

// NewService constructs the order history service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, id identity.Identity, params pagination.Params) (*OrderListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.FindByIdentity(ctx, id.String(), params.Limit, params.Offset())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &OrderListResult{Orders: out, Page: params.Page, Limit: params.Limit, Total: total}, nil
}

func (s *service) Get(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindForIdentity(ctx, id.String(), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return FromModel(order), nil
}
