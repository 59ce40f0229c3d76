package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopsense/storefront-backend/internal/cart"
	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/internal/orders"
	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/enums"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/metrics"
	"github.com/shopsense/storefront-backend/pkg/types"
)

const (
	cartEmptyMessage    = "cart is empty"
	cartChangedMessage  = "cart changed during checkout, please review and retry"
	orderPlacedMessage  = "Order placed successfully!"
	fallbackCatalog     = "catalog"
	fallbackZeroPricing = "zero_price"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartMerger interface {
	Merge(ctx context.Context, user, guest identity.Identity) (*cart.MergeResult, error)
}

type priceLookup interface {
	FindPrices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)
}

type eventRecorder interface {
	Record(ctx context.Context, id identity.Identity, eventType enums.EventType, productID string) error
}

type checkoutMetrics interface {
	IncCheckout(outcome string)
	IncFallback(dependency, tier string)
}

// Service turns an identity's cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, id identity.Identity, input PlaceOrderInput) (*PlaceOrderResult, error)
}

// PlaceOrderInput carries the checkout form.
type PlaceOrderInput struct {
	// GuestID, when set for a user identity, is merged into the user cart first.
	GuestID     identity.Identity
	Address     types.ShippingAddress
	PaymentMode string
}

// PlaceOrderResult is returned after a successful checkout.
type PlaceOrderResult struct {
	Message     string           `json:"message"`
	Order       *orders.OrderDTO `json:"order"`
	MergedLines int              `json:"merged_lines"`
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Tx         txRunner
	CartRepo   cart.CartRepository
	Merger     cartMerger
	OrdersRepo orders.Repository
	Prices     priceLookup
	Events     eventRecorder
	Metrics    checkoutMetrics
	Logger     *logger.Logger
}

type service struct {
	tx      txRunner
	carts   cart.CartRepository
	merger  cartMerger
	orders  orders.Repository
	prices  priceLookup
	events  eventRecorder
	metrics checkoutMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Merger == nil {
		return nil, fmt.Errorf("cart merger required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price lookup required")
	}
	return &service{
		tx:      params.Tx,
		carts:   params.CartRepo,
		merger:  params.Merger,
		orders:  params.OrdersRepo,
		prices:  params.Prices,
		events:  params.Events,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// PlaceOrder validates the form, merges a supplied guest cart into a user
// cart, prices the lines against the live catalog and then, in one
// transaction, inserts the order and empties the cart at the version that was
// priced. A cart changed in between rolls the order back with CONFLICT.
func (s *service) PlaceOrder(ctx context.Context, id identity.Identity, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if strings.TrimSpace(id.ID()) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session not established")
	}
	address := input.Address.Normalize()
	if missing := address.Missing(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	paymentMode, err := enums.ParsePaymentMode(input.PaymentMode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment_mode is invalid")
	}

	merged := 0
	if id.IsUser() && input.GuestID != "" && input.GuestID != id {
		res, err := s.merger.Merge(ctx, id, input.GuestID)
		if err != nil {
			s.count(metrics.CheckoutFailed)
			return nil, err
		}
		merged = res.MergedLines
	}

	snapshot, err := s.loadCart(ctx, id)
	if err != nil {
		s.count(metrics.CheckoutFailed)
		return nil, err
	}
	if snapshot == nil || len(snapshot.Items) == 0 {
		s.count(metrics.CheckoutEmpty)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, cartEmptyMessage)
	}

	order, err := s.buildOrder(ctx, id, snapshot.Items, address, paymentMode)
	if err != nil {
		s.count(metrics.CheckoutFailed)
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		cleared, err := s.carts.WithTx(tx).CompareAndSwap(ctx, id.String(), snapshot.Version, types.CartLines{})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		if !cleared {
			return pkgerrors.New(pkgerrors.CodeConflict, cartChangedMessage)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.count(metrics.CheckoutConflict)
		} else {
			s.count(metrics.CheckoutFailed)
		}
		return nil, err
	}

	s.count(metrics.CheckoutPlaced)
	s.recordPurchases(ctx, id, order.Items)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"identity": id.String(),
			"order_id": order.ID.String(),
			"total":    order.TotalAmount.StringFixed(2),
			"lines":    len(order.Items),
		})
		s.logg.Info(logCtx, "checkout.order_created")
	}

	return &PlaceOrderResult{
		Message:     orderPlacedMessage,
		Order:       orders.FromModel(order),
		MergedLines: merged,
	}, nil
}

func (s *service) loadCart(ctx context.Context, id identity.Identity) (*models.Cart, error) {
	snapshot, err := s.carts.Find(ctx, id.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return snapshot, nil
}

// buildOrder prices every line. A product missing from the catalog is priced
// at zero so checkout stays available; the miss is logged.
func (s *service) buildOrder(ctx context.Context, id identity.Identity, lines types.CartLines, address types.ShippingAddress, mode enums.PaymentMode) (*models.Order, error) {
	prices, err := s.prices.FindPrices(ctx, lines.ProductIDs())
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		price, ok := prices[line.ProductID]
		if !ok {
			price = decimal.Zero
			s.warnMissingPrice(ctx, line.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return &models.Order{
		Identity:    id.String(),
		TotalAmount: total,
		Status:      enums.OrderStatusConfirmed,
		PaymentMode: mode,
		Address:     address,
		Items:       items,
	}, nil
}

func (s *service) warnMissingPrice(ctx context.Context, productID string) {
	if s.metrics != nil {
		s.metrics.IncFallback(fallbackCatalog, fallbackZeroPricing)
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", productID), "checkout.price_missing")
	}
}

func (s *service) recordPurchases(ctx context.Context, id identity.Identity, items []models.OrderItem) {
	if s.events == nil {
		return
	}
	for _, item := range items {
		if err := s.events.Record(ctx, id, enums.EventTypePurchase, item.ProductID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", item.ProductID), "checkout.purchase_event_failed")
		}
	}
}

func (s *service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckout(outcome)
	}
}
