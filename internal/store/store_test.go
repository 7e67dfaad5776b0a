package store

import (
	"os"
	"path/filepath"
	"testing"

	"webstore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, s *CatalogStore) {
	t.Helper()
	err := s.Mutate(func(doc *models.CatalogDocument) error {
		doc.Categories = append(doc.Categories, models.Category{
			ID:   "electronics",
			Name: "Electronics",
			Products: []models.Product{
				{ID: "e001", Name: "Headphones", Price: 49.99, Stock: 10},
			},
		})
		doc.FeaturedProducts = append(doc.FeaturedProducts, "e001")
		return nil
	})
	require.NoError(t, err)
}

func TestCatalogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")

	first, err := NewCatalogStore(path)
	require.NoError(t, err)
	seedCatalog(t, first)

	reloaded, err := NewCatalogStore(path)
	require.NoError(t, err)

	reloaded.View(func(doc *models.CatalogDocument) {
		require.Len(t, doc.Categories, 1)
		require.Len(t, doc.Categories[0].Products, 1)
		assert.Equal(t, "e001", doc.Categories[0].Products[0].ID)
		assert.Equal(t, 49.99, doc.Categories[0].Products[0].Price)
		assert.Equal(t, []string{"e001"}, doc.FeaturedProducts)
	})
}

func TestMutateRollsBackOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")

	s, err := NewCatalogStore(path)
	require.NoError(t, err)
	seedCatalog(t, s)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	sentinel := assert.AnError
	err = s.Mutate(func(doc *models.CatalogDocument) error {
		doc.Categories[0].Products[0].Stock = 0
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	s.View(func(doc *models.CatalogDocument) {
		assert.Equal(t, 10, doc.Categories[0].Products[0].Stock, "in-memory state must be restored")
	})

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "on-disk state must be untouched")
}

func TestMutateRollsBackOnFailedSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")

	s, err := NewCatalogStore(path)
	require.NoError(t, err)
	seedCatalog(t, s)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Point the save at a path where the rename target is an existing
	// directory, which always fails regardless of privileges.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	s.path = blocked

	err = s.Mutate(func(doc *models.CatalogDocument) error {
		doc.Categories[0].Products[0].Stock = 0
		return nil
	})
	require.Error(t, err)

	s.View(func(doc *models.CatalogDocument) {
		assert.Equal(t, 10, doc.Categories[0].Products[0].Stock, "failed save must restore the snapshot")
	})

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "the original document must survive a failed save")
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")

	s, err := NewCatalogStore(path)
	require.NoError(t, err)
	seedCatalog(t, s)

	// No temp files may linger after a successful save
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products.json", entries[0].Name())
}

func TestUserStoreSeedsDefaultAdmin(t *testing.T) {
	dir := t.TempDir()

	s, err := NewUserStore(filepath.Join(dir, "users.json"), filepath.Join(dir, "admins.json"), 4)
	require.NoError(t, err)

	s.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		assert.Empty(t, users.Users)
		require.Len(t, admins.Admins, 1)
		assert.Equal(t, "admin", admins.Admins[0].Username)
		assert.True(t, admins.Admins[0].IsAdmin)
		assert.NotEqual(t, "admin123", admins.Admins[0].PasswordHash)
	})

	// The seed is persisted: a reload finds it without re-seeding
	reloaded, err := NewUserStore(filepath.Join(dir, "users.json"), filepath.Join(dir, "admins.json"), 4)
	require.NoError(t, err)
	reloaded.View(func(_ *models.UsersDocument, admins *models.AdminsDocument) {
		require.Len(t, admins.Admins, 1)
	})
}

func TestUserStoreMutatePersists(t *testing.T) {
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "users.json")

	s, err := NewUserStore(usersPath, filepath.Join(dir, "admins.json"), 4)
	require.NoError(t, err)

	err = s.MutateUsers(func(doc *models.UsersDocument) error {
		doc.Users = append(doc.Users, models.User{ID: "user1", Username: "alice"})
		return nil
	})
	require.NoError(t, err)

	reloaded, err := NewUserStore(usersPath, filepath.Join(dir, "admins.json"), 4)
	require.NoError(t, err)
	reloaded.View(func(users *models.UsersDocument, _ *models.AdminsDocument) {
		require.Len(t, users.Users, 1)
		assert.Equal(t, "alice", users.Users[0].Username)
	})
}
