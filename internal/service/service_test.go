package service

import (
	"context"
	"path/filepath"
	"testing"

	"webstore/config"
	"webstore/internal/models"
	"webstore/internal/store"

	"github.com/stretchr/testify/require"
)

// testStores builds catalog and user stores over a temp directory, with
// an electronics category seeded the way the shipped data file does it
func testStores(t *testing.T) (*store.CatalogStore, *store.UserStore) {
	t.Helper()
	return testStoresIn(t, t.TempDir())
}

// testStoresIn is testStores over a caller-owned directory, for tests
// that need to reach the document files themselves
func testStoresIn(t *testing.T, dir string) (*store.CatalogStore, *store.UserStore) {
	t.Helper()

	catalog, err := store.NewCatalogStore(filepath.Join(dir, "products.json"))
	require.NoError(t, err)

	err = catalog.Mutate(func(doc *models.CatalogDocument) error {
		doc.Categories = append(doc.Categories, models.Category{
			ID:       "electronics",
			Name:     "Electronics",
			Products: []models.Product{},
		})
		return nil
	})
	require.NoError(t, err)

	users, err := store.NewUserStore(
		filepath.Join(dir, "users.json"),
		filepath.Join(dir, "admins.json"),
		4, // bcrypt.MinCost, keeps the suite fast
	)
	require.NoError(t, err)

	return catalog, users
}

func testBusiness() config.BusinessConfig {
	return config.BusinessConfig{TaxRate: 0.08}
}

// addProduct seeds one product through the service so tests exercise the
// same path the API does
func addProduct(t *testing.T, svc *CatalogService, id, name string, price float64, stock int) *models.Product {
	t.Helper()
	p, err := svc.Add(context.Background(), "electronics", ProductInput{
		ID:    id,
		Name:  name,
		Price: price,
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}
