package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/storefront-backend/pkg/db/dbtest"
	"github.com/shopsense/storefront-backend/pkg/db/models"
	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
	"github.com/shopsense/storefront-backend/pkg/pagination"
)

func strPtr(v string) *string { return &v }

func seedCatalog(t *testing.T, repo *Repository) {
	t.Helper()
	rows := []models.Product{
		{ProductID: "A", Title: "Alpha Lamp", NormalizedTopCategory: strPtr("lighting"), Price: decimal.NewFromInt(100)},
		{ProductID: "B", Title: "Beta Bulb", NormalizedTopCategory: strPtr("lighting"), Price: decimal.NewFromInt(50)},
		{ProductID: "C", Title: "Gamma Chair", NormalizedTopCategory: strPtr("furniture"), Price: decimal.RequireFromString("19.99")},
	}
	for i := range rows {
		require.NoError(t, repo.Upsert(context.Background(), &rows[i]))
	}
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	seedCatalog(t, repo)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestListProductsFiltersCaseInsensitiveAndPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ListProducts(ctx, ListProductsInput{
		Category:   "LIGHTING",
		Pagination: pagination.Params{Page: 1, Limit: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, 1, res.Limit)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "A", res.Products[0].ProductID)

	res, err = svc.ListProducts(ctx, ListProductsInput{
		Category:   "lighting",
		Pagination: pagination.Params{Page: 2, Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "B", res.Products[0].ProductID)
}

func TestListProductsDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ListProducts(context.Background(), ListProductsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, pagination.DefaultLimit, res.Limit)
	assert.Equal(t, int64(3), res.Total)
	assert.Len(t, res.Products, 3)
}

func TestGetProduct(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.GetProduct(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, "Gamma Chair", got.Title)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))

	_, err = svc.GetProduct(context.Background(), "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetProduct(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestEnsureExists(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.EnsureExists(context.Background(), "A"))
	err := svc.EnsureExists(context.Background(), "Z")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindPricesSkipsUnknownAndDuplicates(t *testing.T) {
	svc, _ := newTestService(t)

	prices, err := svc.FindPrices(context.Background(), []string{"A", "B", "A", "Z", ""})
	require.NoError(t, err)
	assert.Len(t, prices, 2)
	assert.True(t, prices["A"].Equal(decimal.NewFromInt(100)))
	assert.True(t, prices["B"].Equal(decimal.NewFromInt(50)))
	_, ok := prices["Z"]
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Lookup(context.Background(), []string{"A", "C", "nope"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Alpha Lamp", got["A"].Title)

	empty, err := svc.Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpsertRefreshesPrice(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Product{ProductID: "A", Title: "Alpha Lamp", Price: decimal.NewFromInt(120)}))

	prices, err := svc.FindPrices(ctx, []string{"A"})
	require.NoError(t, err)
	assert.True(t, prices["A"].Equal(decimal.NewFromInt(120)))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
