package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/storefront-backend/api/controllers"
	"github.com/shopsense/storefront-backend/internal/auth"
	"github.com/shopsense/storefront-backend/internal/cart"
	"github.com/shopsense/storefront-backend/internal/checkout"
	"github.com/shopsense/storefront-backend/internal/events"
	"github.com/shopsense/storefront-backend/internal/explain"
	"github.com/shopsense/storefront-backend/internal/orders"
	"github.com/shopsense/storefront-backend/internal/products"
	"github.com/shopsense/storefront-backend/internal/recommend"
	"github.com/shopsense/storefront-backend/internal/users"
	"github.com/shopsense/storefront-backend/pkg/auth/session"
	"github.com/shopsense/storefront-backend/pkg/cache"
	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/db/dbtest"
	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "shopsense",
			ExpirationMinutes:      30,
			RefreshTokenTTLMinutes: 120,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    64,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:      time.Minute,
			LoginEmailLimit:  5,
			LoginIPLimit:     20,
			SignupWindow:     time.Minute,
			SignupEmailLimit: 3,
			SignupIPLimit:    20,
		},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Checkout: config.CheckoutConfig{IdempotencyTTL: time.Hour},
	}
}

type harness struct {
	handler http.Handler
	mr      *miniredis.Miniredis
}

func newHarness(t *testing.T, checks map[string]controllers.Pinger) *harness {
	t.Helper()
	cfg := testConfig()
	ctx := context.Background()

	client := dbtest.OpenClient(t)
	conn := client.DB()

	mr := miniredis.RunT(t)
	rdb := redis.NewFromRaw(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rdb.Close() })

	productRepo := products.NewRepository(conn)
	for _, p := range []models.Product{
		{ProductID: "A", Title: "Alpha", Price: decimal.NewFromInt(100)},
		{ProductID: "B", Title: "Beta", Price: decimal.RequireFromString("7.50")},
	} {
		p := p
		require.NoError(t, productRepo.Upsert(ctx, &p))
	}
	catalog, err := products.NewService(productRepo)
	require.NoError(t, err)

	eventSvc, err := events.NewService(events.ServiceParams{
		Store:  events.NewSQLStore(conn),
		Buffer: events.NewBuffer(rdb, 20, 24*time.Hour),
	})
	require.NoError(t, err)

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{Repo: cartRepo, Catalog: catalog, Events: eventSvc})
	require.NoError(t, err)

	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(ordersRepo)
	require.NoError(t, err)

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:         client,
		CartRepo:   cartRepo,
		Merger:     cartSvc,
		OrdersRepo: ordersRepo,
		Prices:     catalog,
		Events:     eventSvc,
	})
	require.NoError(t, err)

	sessions, err := session.NewManager(rdb, cfg.JWT)
	require.NoError(t, err)
	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	require.NoError(t, err)

	recommendSvc, err := recommend.NewService(recommend.ServiceParams{Events: eventSvc})
	require.NoError(t, err)

	if checks == nil {
		checks = map[string]controllers.Pinger{"db": client, "redis": rdb}
	}

	return &harness{
		mr: mr,
		handler: NewRouter(Dependencies{
			Config:    cfg,
			Checks:    checks,
			Redis:     rdb,
			Sessions:  sessions,
			Auth:      authSvc,
			Products:  catalog,
			Cart:      cartSvc,
			Checkout:  checkoutSvc,
			Orders:    ordersSvc,
			Events:    eventSvc,
			Recommend: recommendSvc,
			Explain:   explain.NewService(explain.ServiceParams{Cache: cache.New(rdb), Keys: rdb}),
		}),
	}
}

type call struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

func (h *harness) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func data(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}

var address = map[string]any{
	"full_name": "Ada Lovelace",
	"phone":     "5550001111",
	"line1":     "1 Analytical Way",
	"city":      "London",
	"state":     "LDN",
	"pincode":   "12345",
}

func guestHeader(id string) map[string]string {
	return map[string]string{"X-Session-Id": id}
}

func TestGuestShoppingFlow(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, call{method: http.MethodGet, path: "/api/products?limit=10"})
	require.Equal(t, http.StatusOK, rec.Code)
	var page products.ProductListResult
	data(t, rec, &page)
	assert.Equal(t, int64(2), page.Total)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: guestHeader("g1"), body: map[string]any{"product_id": "A", "quantity": 2}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/add", body: map[string]any{"session_id": "g1", "product_id": "B"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, call{method: http.MethodGet, path: "/api/cart/g1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var c cart.CartDTO
	data(t, rec, &c)
	assert.Equal(t, "guest:g1", c.Identity)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, "207.50", c.Subtotal)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/order/place", headers: guestHeader("g1"), body: map[string]any{"address": address}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed checkout.PlaceOrderResult
	data(t, rec, &placed)
	assert.Equal(t, "Order placed successfully!", placed.Message)
	assert.True(t, placed.Order.TotalAmount.Equal(decimal.RequireFromString("207.50")))

	rec = h.do(t, call{method: http.MethodGet, path: "/api/order/g1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var history orders.OrderListResult
	data(t, rec, &history)
	require.Len(t, history.Orders, 1)
	assert.Equal(t, placed.Order.ID, history.Orders[0].ID)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/orders/" + placed.Order.ID.String(), headers: guestHeader("someone-else")})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/cart", headers: guestHeader("g1")})
	data(t, rec, &c)
	assert.Empty(t, c.Items)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/order/place", headers: guestHeader("g1"), body: map[string]any{"address": address}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/events", headers: guestHeader("g1")})
	require.Equal(t, http.StatusOK, rec.Code)
	var recent struct {
		RecentEvents []events.Event `json:"recent_events"`
	}
	data(t, rec, &recent)
	assert.Len(t, recent.RecentEvents, 4, "two add_to_cart plus two purchase events")
}

func TestCheckoutIdempotencyKeyReplays(t *testing.T) {
	h := newHarness(t, nil)
	headers := map[string]string{"X-Session-Id": "g2", "Idempotency-Key": "order-1"}

	rec := h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: guestHeader("g2"), body: map[string]any{"product_id": "A"}})
	require.Equal(t, http.StatusOK, rec.Code)

	first := h.do(t, call{method: http.MethodPost, path: "/api/order/place", headers: headers, body: map[string]any{"address": address}})
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := h.do(t, call{method: http.MethodPost, path: "/api/order/place", headers: headers, body: map[string]any{"address": address}})
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	rec = h.do(t, call{method: http.MethodGet, path: "/api/orders", headers: guestHeader("g2")})
	var history orders.OrderListResult
	data(t, rec, &history)
	assert.Len(t, history.Orders, 1)
}

func TestSignupThenCheckoutMergesGuestCart(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: guestHeader("pre-login"), body: map[string]any{"product_id": "B", "quantity": 2}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: map[string]any{"name": "Ada", "email": "ada@example.com", "password": "secret1"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var authResp auth.AuthResponse
	data(t, rec, &authResp)
	bearer := map[string]string{"Authorization": "Bearer " + authResp.AccessToken}

	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: bearer, body: map[string]any{"product_id": "A"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/order/place", headers: bearer, body: map[string]any{
		"address":      address,
		"guest_id":     "pre-login",
		"payment_mode": "COD",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed checkout.PlaceOrderResult
	data(t, rec, &placed)
	assert.Equal(t, 1, placed.MergedLines)
	assert.Equal(t, "user:"+authResp.User.ID.String(), placed.Order.Identity)
	assert.True(t, placed.Order.TotalAmount.Equal(decimal.NewFromInt(115)))

	rec = h.do(t, call{method: http.MethodGet, path: "/api/cart", headers: guestHeader("pre-login")})
	var guestCart cart.CartDTO
	data(t, rec, &guestCart)
	assert.Empty(t, guestCart.Items)
}

func TestCartMergeRequiresAuth(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, call{method: http.MethodPost, path: "/api/cart/merge", headers: guestHeader("g1"), body: map[string]any{"guest_id": "g1"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: map[string]any{"name": "Bo", "email": "bo@example.com", "password": "secret1"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var authResp auth.AuthResponse
	data(t, rec, &authResp)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: guestHeader("g9"), body: map[string]any{"product_id": "A", "quantity": 3}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/merge", headers: map[string]string{
		"Authorization": "Bearer " + authResp.AccessToken,
		"X-Guest-Id":    "g9",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var merged cart.MergeResult
	data(t, rec, &merged)
	assert.Equal(t, 1, merged.MergedLines)
	require.Len(t, merged.Cart.Items, 1)
	assert.Equal(t, 3, merged.Cart.Items[0].Quantity)
}

func TestSessionAndValidationErrors(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, call{method: http.MethodGet, path: "/api/cart"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))

	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: guestHeader("g1"), body: map[string]any{"product_id": "missing"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, call{method: http.MethodPost, path: "/api/cart/add", headers: guestHeader("g1"), body: map[string]any{"product_id": "A", "quantity": -1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/products/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/recommend?k=500", headers: guestHeader("g1")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/orders/not-a-uuid", headers: guestHeader("g1")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendAndExplainDegrade(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, call{method: http.MethodGet, path: "/api/recommend", headers: guestHeader("g1")})
	require.Equal(t, http.StatusOK, rec.Code)
	var recs recommend.Result
	data(t, rec, &recs)
	assert.True(t, recs.Degraded)
	assert.Empty(t, recs.Results)

	rec = h.do(t, call{method: http.MethodGet, path: "/api/explain?product_id=A&min_price=5", headers: guestHeader("g1")})
	require.Equal(t, http.StatusOK, rec.Code)
	var exp explain.Result
	data(t, rec, &exp)
	assert.Equal(t, explain.SourceBasic, exp.Source)
	assert.True(t, h.mr.Exists("ss:explain:guest:g1:A"))

	rec = h.do(t, call{method: http.MethodGet, path: "/api/explain?product_id=A&min_price=cheap", headers: guestHeader("g1")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, call{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Shopsense-Env"))

	rec = h.do(t, call{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newHarness(t, map[string]controllers.Pinger{
		"db":    stubPinger{},
		"mongo": stubPinger{err: errors.New("no primary")},
	})
	rec = down.do(t, call{method: http.MethodGet, path: "/health/ready"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no primary")
}
