package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"webstore/config"
	"webstore/internal/models"
	"webstore/internal/store"
	"webstore/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService handles cart operations and checkout. Carts live in memory,
// one per user, and are discarded on logout or process exit; only completed
// orders are persisted.
type CartService struct {
	mu       sync.Mutex
	carts    map[string]*models.Cart
	catalog  *store.CatalogStore
	users    *store.UserStore
	business config.BusinessConfig
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(catalog *store.CatalogStore, users *store.UserStore, business config.BusinessConfig) *CartService {
	return &CartService{
		carts:    make(map[string]*models.Cart),
		catalog:  catalog,
		users:    users,
		business: business,
		logger:   util.GetLogger(),
	}
}

// SummaryLine is one priced cart line in an order summary
type SummaryLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// OrderSummary is the computed cart total: subtotal at live catalog
// prices, tax, tiered discount, and the final total. All money figures
// are rounded half-up to 2 decimal places.
type OrderSummary struct {
	Lines           []SummaryLine `json:"lines"`
	Subtotal        float64       `json:"subtotal"`
	TaxRate         float64       `json:"tax_rate"`
	Tax             float64       `json:"tax"`
	Discount        float64       `json:"discount"`
	DiscountPercent int           `json:"discount_percent"`
	Total           float64       `json:"total"`
}

func (s *CartService) cart(userID string) *models.Cart {
	c, ok := s.carts[userID]
	if !ok {
		c = &models.Cart{}
		s.carts[userID] = c
	}
	return c
}

// Items returns the user's current cart lines
func (s *CartService) Items(ctx context.Context, userID string) []models.CartItem {
	_, span := util.StartSpan(ctx, "CartService.Items")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart(userID)
	out := make([]models.CartItem, len(c.Items))
	copy(out, c.Items)
	return out
}

// AddItem adds qty of a product to the user's cart. Re-adding a product
// already in the cart increments its quantity. The combined quantity is
// validated against live catalog stock; it is validated again at checkout
// since stock may change in between.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) error {
	_, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrInvalidInput)
	}

	var stock int
	var exists bool
	s.catalog.View(func(doc *models.CatalogDocument) {
		if _, _, p := locateProduct(doc, productID); p != nil {
			exists = true
			stock = p.Stock
		}
	})
	if !exists {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	have := 0
	if i := c.Find(productID); i >= 0 {
		have = c.Items[i].Quantity
	}
	if have+qty > stock {
		return fmt.Errorf("product %s: requested %d, available %d: %w",
			productID, have+qty, stock, ErrInsufficientStock)
	}

	if i := c.Find(productID); i >= 0 {
		c.Items[i].Quantity += qty
	} else {
		c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: qty})
	}

	util.CartAddsTotal.Inc()
	s.logger.Debug("Item added to cart",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", qty))
	return nil
}

// RemoveItem removes a product's line from the user's cart entirely
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	_, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	i := c.Find(productID)
	if i < 0 {
		return fmt.Errorf("product %s: %w", productID, ErrNotInCart)
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID string) {
	_, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart(userID).Clear()
}

// Totals prices the user's cart against live catalog prices. It never
// mutates stock. Lines whose product has been deleted since they were
// added report ErrNotFound.
func (s *CartService) Totals(ctx context.Context, userID string) (*OrderSummary, error) {
	_, span := util.StartSpan(ctx, "CartService.Totals")
	defer span.End()

	s.mu.Lock()
	items := make([]models.CartItem, len(s.cart(userID).Items))
	copy(items, s.cart(userID).Items)
	s.mu.Unlock()

	var summary *OrderSummary
	var err error
	s.catalog.View(func(doc *models.CatalogDocument) {
		summary, err = s.summarize(doc, items)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// summarize is the pure totals computation over cart lines and the live
// document. Money is computed in decimals; each reported figure is
// rounded half-up to 2 decimal places, the total from unrounded
// intermediates.
func (s *CartService) summarize(doc *models.CatalogDocument, items []models.CartItem) (*OrderSummary, error) {
	subtotal := decimal.Zero
	lines := make([]SummaryLine, 0, len(items))

	for _, item := range items {
		_, _, p := locateProduct(doc, item.ProductID)
		if p == nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
		}
		unit := decimal.NewFromFloat(p.Price)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, SummaryLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal.Round(2).InexactFloat64(),
		})
	}

	taxRate := decimal.NewFromFloat(s.business.TaxRate)
	tax := subtotal.Mul(taxRate)
	taxed := subtotal.Add(tax)

	discount := decimal.Zero
	discountPercent := 0
	for _, tier := range s.business.DiscountTiers {
		if taxed.GreaterThanOrEqual(decimal.NewFromFloat(tier.Threshold)) {
			discount = taxed.Mul(decimal.NewFromFloat(tier.Rate))
			discountPercent = int(math.Round(tier.Rate * 100))
			break
		}
	}

	return &OrderSummary{
		Lines:           lines,
		Subtotal:        subtotal.Round(2).InexactFloat64(),
		TaxRate:         s.business.TaxRate,
		Tax:             tax.Round(2).InexactFloat64(),
		Discount:        discount.Round(2).InexactFloat64(),
		DiscountPercent: discountPercent,
		Total:           taxed.Sub(discount).Round(2).InexactFloat64(),
	}, nil
}

// Checkout converts the user's cart into a persisted order. It is
// all-or-nothing: every line is re-validated against current stock first,
// and a failure on any line, or on persisting the catalog or the order
// history, leaves cart, stock, and history unchanged.
func (s *CartService) Checkout(ctx context.Context, userID string) (*models.Order, error) {
	_, span := util.StartSpan(ctx, "CartService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	items := make([]models.CartItem, len(s.cart(userID).Items))
	copy(items, s.cart(userID).Items)
	s.mu.Unlock()

	if len(items) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	userExists := false
	s.users.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		for i := range users.Users {
			if users.Users[i].ID == userID {
				userExists = true
				return
			}
		}
	})
	if !userExists {
		util.CheckoutsFailedTotal.WithLabelValues("unknown_user").Inc()
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	// Validate every line and decrement stock in one atomic catalog
	// mutation; a failed save rolls the document back.
	var summary *OrderSummary
	err := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
		for _, item := range items {
			_, _, p := locateProduct(doc, item.ProductID)
			if p == nil {
				return fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
			}
			if item.Quantity > p.Stock {
				return fmt.Errorf("product %s: requested %d, available %d: %w",
					item.ProductID, item.Quantity, p.Stock, ErrInsufficientStock)
			}
		}
		var err error
		summary, err = s.summarize(doc, items)
		if err != nil {
			return err
		}
		for _, item := range items {
			_, _, p := locateProduct(doc, item.ProductID)
			p.Stock -= item.Quantity
		}
		return nil
	})
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues(checkoutFailReason(err)).Inc()
		return nil, err
	}

	order := models.Order{
		ID:        uuid.New().String(),
		Subtotal:  summary.Subtotal,
		Tax:       summary.Tax,
		Discount:  summary.Discount,
		Total:     summary.Total,
		CreatedAt: time.Now().UTC(),
	}
	for _, line := range summary.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	err = s.users.MutateUsers(func(doc *models.UsersDocument) error {
		for i := range doc.Users {
			if doc.Users[i].ID == userID {
				doc.Users[i].OrderHistory = append(doc.Users[i].OrderHistory, order)
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	})
	if err != nil {
		// Compensate the stock decrement so the failed checkout leaves
		// no trace in the catalog.
		if rbErr := s.catalog.Mutate(func(doc *models.CatalogDocument) error {
			for _, item := range items {
				if _, _, p := locateProduct(doc, item.ProductID); p != nil {
					p.Stock += item.Quantity
				}
			}
			return nil
		}); rbErr != nil {
			s.logger.Error("Failed to restore stock after aborted checkout",
				zap.String("user_id", userID),
				zap.Error(rbErr))
		}
		util.CheckoutsFailedTotal.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	s.mu.Lock()
	s.cart(userID).Clear()
	s.mu.Unlock()

	util.CheckoutsTotal.Inc()
	s.logger.Info("Checkout completed",
		zap.String("user_id", userID),
		zap.String("order_id", order.ID),
		zap.Float64("total", order.Total),
		zap.Int("lines", len(order.Items)))
	return &order, nil
}

func checkoutFailReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "persistence"
	}
}
