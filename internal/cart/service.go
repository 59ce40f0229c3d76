package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/enums"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/types"
)

// MaxLineQuantity caps the quantity a single cart line may hold.
const MaxLineQuantity = 10000

const (
	defaultMaxAttempts = 5

	cartNotFoundMessage = "cart not found"
	cartConflictMessage = "cart was modified concurrently, please retry"
)

// Service exposes per-identity cart operations.
type Service interface {
	Get(ctx context.Context, id identity.Identity) (*CartDTO, error)
	AddLine(ctx context.Context, id identity.Identity, productID string, quantity int) (*CartDTO, error)
	RemoveLine(ctx context.Context, id identity.Identity, productID string) (*CartDTO, error)
	Clear(ctx context.Context, id identity.Identity) (*CartDTO, error)
	Merge(ctx context.Context, user, guest identity.Identity) (*MergeResult, error)
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo    CartRepository
	Catalog productCatalog
	// Events is optional; add_to_cart signals are skipped without it.
	Events  eventRecorder
	Metrics conflictCounter
	Logger  *logger.Logger
	// MaxAttempts bounds optimistic retries per write.
	MaxAttempts int
}

type service struct {
	repo        CartRepository
	catalog     productCatalog
	events      eventRecorder
	metrics     conflictCounter
	logg        *logger.Logger
	maxAttempts int
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &service{
		repo:        params.Repo,
		catalog:     params.Catalog,
		events:      params.Events,
		metrics:     params.Metrics,
		logg:        params.Logger,
		maxAttempts: attempts,
	}, nil
}

// mutation derives the next item list from the current one. It reports false
// when nothing changed so no write is issued.
type mutation func(lines types.CartLines) (types.CartLines, bool, error)

func (s *service) Get(ctx context.Context, id identity.Identity) (*CartDTO, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	cart, err := s.repo.Ensure(ctx, id.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.present(ctx, cart), nil
}

func (s *service) AddLine(ctx context.Context, id identity.Identity, productID string, quantity int) (*CartDTO, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if quantity > MaxLineQuantity {
		return nil, errLineQuantityLimit()
	}
	if err := s.catalog.EnsureExists(ctx, productID); err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, id, true, func(lines types.CartLines) (types.CartLines, bool, error) {
		next, err := addQuantity(lines, productID, quantity)
		return next, err == nil, err
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, id, enums.EventTypeAddToCart, productID)
	return s.present(ctx, cart), nil
}

func (s *service) RemoveLine(ctx context.Context, id identity.Identity, productID string) (*CartDTO, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	cart, err := s.mutate(ctx, id, false, func(lines types.CartLines) (types.CartLines, bool, error) {
		next := make(types.CartLines, 0, len(lines))
		for _, line := range lines {
			if line.ProductID != productID {
				next = append(next, line)
			}
		}
		return next, len(next) != len(lines), nil
	})
	if err != nil {
		return nil, err
	}
	return s.present(ctx, cart), nil
}

func (s *service) Clear(ctx context.Context, id identity.Identity) (*CartDTO, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	cart, err := s.mutate(ctx, id, true, func(lines types.CartLines) (types.CartLines, bool, error) {
		return types.CartLines{}, len(lines) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return s.present(ctx, cart), nil
}

// mutate applies fn as a version-conditional replace, retrying when another
// writer got there first. With create false a missing cart is NOT_FOUND.
func (s *service) mutate(ctx context.Context, id identity.Identity, create bool, fn mutation) (*models.Cart, error) {
	key := id.String()
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cart, err := s.load(ctx, key, create)
		if err != nil {
			return nil, err
		}

		next, changed, err := fn(cart.Items.Clone())
		if err != nil {
			return nil, err
		}
		if !changed {
			return cart, nil
		}

		ok, err := s.repo.CompareAndSwap(ctx, key, cart.Version, next)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart")
		}
		if ok {
			cart.Items = next
			cart.Version++
			return cart, nil
		}

		if s.metrics != nil {
			s.metrics.IncCartConflict()
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"identity": key, "attempts": s.maxAttempts})
		s.logg.Warn(logCtx, "cart.write_conflict_exhausted")
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, cartConflictMessage)
}

func (s *service) load(ctx context.Context, key string, create bool) (*models.Cart, error) {
	if create {
		cart, err := s.repo.Ensure(ctx, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		return cart, nil
	}
	cart, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, cartNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

// present enriches the cart with catalog data. Lookup failures only drop the
// enrichment.
func (s *service) present(ctx context.Context, cart *models.Cart) *CartDTO {
	catalog, err := s.catalog.Lookup(ctx, cart.Items.ProductIDs())
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.catalog_lookup_failed")
	}
	return newCartDTO(cart, catalog)
}

func (s *service) recordEvent(ctx context.Context, id identity.Identity, eventType enums.EventType, productID string) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, id, eventType, productID); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"event_type": eventType.String(), "product_id": productID})
		s.logg.Warn(logCtx, "cart.event_record_failed")
	}
}

// addQuantity sums into an existing line or appends a new one, keeping
// product ids unique. A sum above MaxLineQuantity is rejected before it is
// computed.
func addQuantity(lines types.CartLines, productID string, quantity int) (types.CartLines, error) {
	for i := range lines {
		if lines[i].ProductID == productID {
			if quantity > MaxLineQuantity-lines[i].Quantity {
				return nil, errLineQuantityLimit()
			}
			lines[i].Quantity += quantity
			return lines, nil
		}
	}
	if quantity > MaxLineQuantity {
		return nil, errLineQuantityLimit()
	}
	return append(lines, types.CartLine{ProductID: productID, Quantity: quantity}), nil
}

func errLineQuantityLimit() error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity per line cannot exceed %d", MaxLineQuantity).
		WithDetails(map[string]any{"field": "quantity", "max": MaxLineQuantity})
}

func requireIdentity(id identity.Identity) error {
	if strings.TrimSpace(id.ID()) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session not established")
	}
	return nil
}
