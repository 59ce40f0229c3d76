package metrics

import "github.com/prometheus/client_golang/prometheus"

// Checkout outcomes.
const (
	CheckoutPlaced   = "placed"
	CheckoutEmpty    = "empty"
	CheckoutConflict = "conflict"
	CheckoutFailed   = "failed"
)

// StorefrontMetrics records domain counters for carts, checkout and the
// external recommendation dependencies.
type StorefrontMetrics struct {
	checkouts     *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	cartConflicts prometheus.Counter
}

// NewStorefrontMetrics registers the domain collectors on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dependency_fallback_total",
		Help: "Degraded responses served because a dependency failed.",
	}, []string{"dependency", "tier"})
	cartConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_write_conflicts_total",
		Help: "Cart writes retried after a concurrent update.",
	})
	reg.MustRegister(checkouts, fallbacks, cartConflicts)
	return &StorefrontMetrics{
		checkouts:     checkouts,
		fallbacks:     fallbacks,
		cartConflicts: cartConflicts,
	}
}

// IncCheckout counts a checkout by outcome.
func (m *StorefrontMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFallback counts a degraded response for dependency at the given tier.
func (m *StorefrontMetrics) IncFallback(dependency, tier string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(dependency), normalizeLabel(tier)).Inc()
}

// IncCartConflict counts one optimistic-concurrency retry.
func (m *StorefrontMetrics) IncCartConflict() {
	if m == nil || m.cartConflicts == nil {
		return
	}
	m.cartConflicts.Inc()
}
