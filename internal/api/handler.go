package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"webstore/internal/service"
	"webstore/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalogService *service.CatalogService
	cartService    *service.CartService
	authService    *service.AuthService
	reportService  *service.ReportService
	sessions       *SessionTable
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalogService *service.CatalogService,
	cartService *service.CartService,
	authService *service.AuthService,
	reportService *service.ReportService,
	sessions *SessionTable,
) *Handler {
	return &Handler{
		catalogService: catalogService,
		cartService:    cartService,
		authService:    authService,
		reportService:  reportService,
		sessions:       sessions,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		v1.GET("/categories", h.listCategories)
		v1.GET("/categories/:id/products", h.listByCategory)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products", h.searchProducts)
		v1.GET("/lists/:kind", h.curatedList)
	}

	authed := v1.Group("")
	authed.Use(h.authMiddleware())
	{
		authed.POST("/auth/logout", h.logout)
		authed.GET("/cart", h.getCart)
		authed.POST("/cart/items", h.addToCart)
		authed.DELETE("/cart/items/:productId", h.removeFromCart)
		authed.DELETE("/cart", h.clearCart)
		authed.GET("/cart/summary", h.cartSummary)
		authed.POST("/checkout", h.checkout)
		authed.GET("/orders", h.orderHistory)
	}

	admin := v1.Group("/admin")
	admin.Use(h.authMiddleware(), h.adminMiddleware())
	{
		admin.POST("/categories", h.addCategory)
		admin.POST("/categories/:id/products", h.addProduct)
		admin.PATCH("/products/:id", h.updateProduct)
		admin.DELETE("/products/:id", h.deleteProduct)
		admin.POST("/lists/:kind/:productId", h.toggleCurated)
		admin.GET("/reports/sales", h.salesReport)
		admin.GET("/reports/inventory", h.inventoryReport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token := h.sessions.Issue(user.ID)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) logout(c *gin.Context) {
	h.sessions.Revoke(c.GetString("token"))
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalogService.Categories(c.Request.Context())})
}

func (h *Handler) listByCategory(c *gin.Context) {
	products, err := h.catalogService.ListByCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalogService.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) searchProducts(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}
	hits := h.catalogService.Search(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"results": hits, "count": len(hits)})
}

func (h *Handler) curatedList(c *gin.Context) {
	products, err := h.catalogService.CuratedProducts(c.Request.Context(), c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getCart(c *gin.Context) {
	items := h.cartService.Items(c.Request.Context(), c.GetString("userID"))
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.cartService.AddItem(c.Request.Context(), c.GetString("userID"), req.ProductID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	if err := h.cartService.RemoveItem(c.Request.Context(), c.GetString("userID"), c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *Handler) clearCart(c *gin.Context) {
	h.cartService.Clear(c.Request.Context(), c.GetString("userID"))
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) cartSummary(c *gin.Context) {
	summary, err := h.cartService.Totals(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) checkout(c *gin.Context) {
	order, err := h.cartService.Checkout(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) orderHistory(c *gin.Context) {
	orders, err := h.authService.OrderHistory(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) addCategory(c *gin.Context) {
	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	category, err := h.catalogService.AddCategory(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) addProduct(c *gin.Context) {
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalogService.Add(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var update service.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalogService.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalogService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) toggleCurated(c *gin.Context) {
	listed, err := h.catalogService.ToggleCurated(c.Request.Context(), c.Param("kind"), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listed": listed})
}

func (h *Handler) salesReport(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "5"))
	c.JSON(http.StatusOK, h.reportService.Sales(c.Request.Context(), days, topN))
}

func (h *Handler) inventoryReport(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("threshold", "5"))
	c.JSON(http.StatusOK, h.reportService.Inventory(c.Request.Context(), threshold))
}

// authMiddleware resolves the bearer token into a user ID
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		userID, ok := h.sessions.Resolve(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set("userID", userID)
		c.Set("token", token)
		c.Next()
	}
}

// adminMiddleware requires the resolved user to be an admin
func (h *Handler) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.authService.FindByID(c.Request.Context(), c.GetString("userID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown session user"})
			return
		}
		if err := h.authService.Authorize(user, true); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// respondError maps domain error conditions to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotInCart):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateID), errors.Is(err, service.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, service.ErrCategoryMismatch), errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrEmptyCart):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
