package service

import (
	"context"
	"testing"

	"webstore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAssignsNextSequenceNumber(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	p1, err := svc.Add(ctx, "electronics", ProductInput{Name: "Headphones", Price: 49.99, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "e001", p1.ID)

	p2, err := svc.Add(ctx, "electronics", ProductInput{Name: "Keyboard", Price: 89.99, Stock: 5})
	require.NoError(t, err)
	assert.Equal(t, "e002", p2.ID)
}

func TestSequenceNumbersAreNeverReused(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	for _, name := range []string{"Camera", "Speaker", "Monitor", "Router"} {
		_, err := svc.Add(ctx, "electronics", ProductInput{Name: name, Price: 10, Stock: 1})
		require.NoError(t, err)
	}

	// Delete e003 out of e001..e004; the next assignment must be e005,
	// not a reused e003.
	require.NoError(t, svc.Delete(ctx, "e003"))

	p, err := svc.Add(ctx, "electronics", ProductInput{Name: "Webcam", Price: 10, Stock: 1})
	require.NoError(t, err)
	assert.Equal(t, "e005", p.ID)
}

func TestAddRejectsDuplicateAndMismatchedIDs(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	addProduct(t, svc, "e001", "Headphones", 49.99, 10)

	_, err := svc.Add(ctx, "electronics", ProductInput{ID: "e001", Name: "Clone", Price: 1, Stock: 1})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = svc.Add(ctx, "electronics", ProductInput{ID: "c001", Name: "Shirt", Price: 1, Stock: 1})
	assert.ErrorIs(t, err, ErrCategoryMismatch)
}

func TestFindUntilDeleted(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	created := addProduct(t, svc, "", "Headphones", 49.99, 10)

	found, err := svc.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)
	assert.Equal(t, created.Price, found.Price)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Find(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestDeleteCascadesToCuratedLists(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	p := addProduct(t, svc, "", "Headphones", 49.99, 10)
	for _, kind := range models.CuratedListKinds() {
		listed, err := svc.ToggleCurated(ctx, kind, p.ID)
		require.NoError(t, err)
		assert.True(t, listed)
	}

	require.NoError(t, svc.Delete(ctx, p.ID))

	catalog.View(func(doc *models.CatalogDocument) {
		for _, kind := range models.CuratedListKinds() {
			assert.Empty(t, *doc.CuratedList(kind), "list %s still references deleted product", kind)
		}
	})
}

func TestToggleCuratedRoundTrip(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	p := addProduct(t, svc, "", "Headphones", 49.99, 10)

	listed, err := svc.ToggleCurated(ctx, models.ListFeatured, p.ID)
	require.NoError(t, err)
	assert.True(t, listed)

	featured, err := svc.CuratedProducts(ctx, models.ListFeatured)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, p.ID, featured[0].ID)

	listed, err = svc.ToggleCurated(ctx, models.ListFeatured, p.ID)
	require.NoError(t, err)
	assert.False(t, listed)

	_, err = svc.ToggleCurated(ctx, "hot_deals", p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	p := addProduct(t, svc, "", "Headphones", 49.99, 10)

	newPrice := 39.99
	updated, err := svc.Update(ctx, p.ID, ProductUpdate{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, 39.99, updated.Price)
	assert.Equal(t, "Headphones", updated.Name, "unset fields must be untouched")
	assert.Equal(t, 10, updated.Stock)

	badStock := -1
	_, err = svc.Update(ctx, p.ID, ProductUpdate{Stock: &badStock})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, "e999", ProductUpdate{Price: &newPrice})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchMatchesNameDescriptionAndTags(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	_, err := svc.Add(ctx, "electronics", ProductInput{
		Name:        "Wireless Headphones",
		Description: "Noise cancelling over-ear",
		Price:       129.99,
		Stock:       4,
		Tags:        []string{"audio", "bluetooth"},
	})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "electronics", ProductInput{
		Name:  "Mechanical Keyboard",
		Price: 89.99,
		Stock: 7,
	})
	require.NoError(t, err)

	assert.Len(t, svc.Search(ctx, "HEADPHONES"), 1)
	assert.Len(t, svc.Search(ctx, "noise"), 1)
	assert.Len(t, svc.Search(ctx, "bluetooth"), 1)
	assert.Len(t, svc.Search(ctx, "e00"), 2) // matches both IDs
	assert.Empty(t, svc.Search(ctx, "garden"))
	assert.Empty(t, svc.Search(ctx, "   "))
}

func TestAddCategoryRejectsPrefixCollision(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	created, err := svc.AddCategory(ctx, CategoryInput{ID: "books", Name: "Books"})
	require.NoError(t, err)
	assert.Equal(t, "books", created.ID)

	_, err = svc.AddCategory(ctx, CategoryInput{ID: "electronics", Name: "Electronics"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	// "exercise" would share the "e" prefix with electronics
	_, err = svc.AddCategory(ctx, CategoryInput{ID: "exercise", Name: "Exercise"})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestListByCategory(t *testing.T) {
	catalog, _ := testStores(t)
	svc := NewCatalogService(catalog)
	ctx := context.Background()

	addProduct(t, svc, "", "Headphones", 49.99, 10)
	addProduct(t, svc, "", "Keyboard", 89.99, 5)

	products, err := svc.ListByCategory(ctx, "electronics")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "e001", products[0].ID, "insertion order must be preserved")
	assert.Equal(t, "e002", products[1].ID)

	_, err = svc.ListByCategory(ctx, "toys")
	assert.ErrorIs(t, err, ErrNotFound)
}
