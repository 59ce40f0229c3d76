package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopsense/storefront-backend/api/controllers"
	"github.com/shopsense/storefront-backend/api/middleware"
	"github.com/shopsense/storefront-backend/internal/auth"
	"github.com/shopsense/storefront-backend/internal/cart"
	"github.com/shopsense/storefront-backend/internal/checkout"
	"github.com/shopsense/storefront-backend/internal/events"
	"github.com/shopsense/storefront-backend/internal/explain"
	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/internal/orders"
	"github.com/shopsense/storefront-backend/internal/products"
	"github.com/shopsense/storefront-backend/internal/recommend"
	"github.com/shopsense/storefront-backend/pkg/auth/session"
	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/metrics"
	"github.com/shopsense/storefront-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface needs. Redis, Sessions,
// HTTPMetrics and MetricsHandler are optional.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Checks         map[string]controllers.Pinger
	Redis          *redis.Client
	Sessions       session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth      auth.Service
	Products  products.Service
	Cart      cart.Service
	Checkout  checkout.Service
	Orders    orders.Service
	Events    events.Service
	Recommend recommend.Service
	Explain   explain.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	// Redis-backed middleware is skipped entirely when Redis is not configured.
	var (
		limiter     middleware.RateLimiter
		idempotency = func(next http.Handler) http.Handler { return next }
	)
	if deps.Redis != nil {
		limiter = deps.Redis
		idempotency = middleware.Idempotency(deps.Redis, cfg.Checkout.IdempotencyTTL, logg)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Checks))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, limiter, logg)).Post("/signup", controllers.AuthSignup(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/{product_id}", controllers.ProductDetail(deps.Products, logg))
	})

	// Shopper routes: an optional token, otherwise a guest identity from the
	// session header, query, body or path.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Session(identity.Policy{}, logg))

		r.Get("/api/cart", controllers.CartGet(deps.Cart, logg))
		r.Get("/api/cart/{user_id}", controllers.CartGet(deps.Cart, logg))
		r.Post("/api/cart/add", controllers.CartAdd(deps.Cart, logg))
		r.Post("/api/cart/remove", controllers.CartRemove(deps.Cart, logg))
		r.Delete("/api/cart", controllers.CartClear(deps.Cart, logg))
		r.Delete("/api/cart/clear/{user_id}", controllers.CartClear(deps.Cart, logg))
		r.Delete("/api/cart/{user_id}", controllers.CartClear(deps.Cart, logg))

		r.With(idempotency).Post("/api/order/place", controllers.OrderPlace(deps.Checkout, logg))
		r.Get("/api/order/{user_id}", controllers.OrderList(deps.Orders, logg))
		r.Get("/api/orders", controllers.OrderList(deps.Orders, logg))
		r.Get("/api/orders/{order_id}", controllers.OrderDetail(deps.Orders, logg))

		r.Post("/api/events", controllers.EventLog(deps.Events, logg))
		r.Post("/api/events/log", controllers.EventLog(deps.Events, logg))
		r.Get("/api/events", controllers.EventRecent(deps.Events, logg))
		r.Get("/api/events/{user_id}", controllers.EventRecent(deps.Events, logg))

		r.Get("/api/recommend", controllers.Recommend(deps.Recommend, logg))
		r.Get("/api/explain", controllers.Explain(deps.Explain, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Session(identity.Policy{RequireAuth: true}, logg))

		r.Post("/api/cart/merge", controllers.CartMerge(deps.Cart, logg))
	})

	return r
}
