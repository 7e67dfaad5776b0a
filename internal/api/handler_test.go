package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"webstore/config"
	"webstore/internal/models"
	"webstore/internal/service"
	"webstore/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	catalog, err := store.NewCatalogStore(filepath.Join(dir, "products.json"))
	require.NoError(t, err)
	err = catalog.Mutate(func(doc *models.CatalogDocument) error {
		doc.Categories = append(doc.Categories, models.Category{
			ID:   "electronics",
			Name: "Electronics",
			Products: []models.Product{
				{ID: "e001", Name: "Headphones", Price: 49.99, Stock: 10},
			},
		})
		return nil
	})
	require.NoError(t, err)

	users, err := store.NewUserStore(filepath.Join(dir, "users.json"), filepath.Join(dir, "admins.json"), 4)
	require.NoError(t, err)

	catalogSvc := service.NewCatalogService(catalog)
	cartSvc := service.NewCartService(catalog, users, config.BusinessConfig{TaxRate: 0.08})
	authSvc := service.NewAuthService(users, 4)
	reportSvc := service.NewReportService(catalog, users)
	sessions := NewSessionTable(time.Hour)

	router := gin.New()
	NewHandler(catalogSvc, cartSvc, authSvc, reportSvc, sessions).SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestBrowseAndSearchArePublic(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/categories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products/e001", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products/e999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products?q=head", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "e001")
}

func TestCartRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/cart", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterLoginCheckoutFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "password": "pw123", "email": "a@x.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Duplicate registration conflicts
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "password": "pw123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	token := loginAs(t, router, "alice", "pw123")

	w = doJSON(t, router, http.MethodPost, "/api/v1/cart/items", token, gin.H{
		"product_id": "e001", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Exceeding stock is a conflict
	w = doJSON(t, router, http.MethodPost, "/api/v1/cart/items", token, gin.H{
		"product_id": "e001", "quantity": 20,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/checkout", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Len(t, order.Items, 1)
	assert.InDelta(t, 107.98, order.Total, 1e-9) // 99.98 * 1.08 = 107.9784

	// Checking out the now-empty cart is rejected
	w = doJSON(t, router, http.MethodPost, "/api/v1/checkout", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/orders", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.ID)
}

func TestAdminRoutesAreRoleGated(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	customerToken := loginAs(t, router, "alice", "pw123")

	body := gin.H{"name": "Keyboard", "price": 89.99, "stock": 5}
	w = doJSON(t, router, http.MethodPost, "/api/v1/admin/categories/electronics/products", customerToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := loginAs(t, router, "admin", "admin123")
	w = doJSON(t, router, http.MethodPost, "/api/v1/admin/categories/electronics/products", adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "e002", created.ID)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/products/%s", created.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/reports/inventory", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	token := loginAs(t, router, "alice", "pw123")

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
