package service

import (
	"context"
	"sort"
	"time"

	"webstore/internal/models"
	"webstore/internal/store"
	"webstore/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportService computes sales and inventory reports for admins, over the
// order histories of all users and the live catalog.
type ReportService struct {
	catalog *store.CatalogStore
	users   *store.UserStore
	logger  *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(catalog *store.CatalogStore, users *store.UserStore) *ReportService {
	return &ReportService{
		catalog: catalog,
		users:   users,
		logger:  util.GetLogger(),
	}
}

// DailyRevenue is one day of revenue in a sales report
type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// ProductSales aggregates sold quantity and revenue per product
type ProductSales struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// SalesReport summarizes completed orders over a trailing window
type SalesReport struct {
	Days            int                `json:"days"`
	OrderCount      int                `json:"order_count"`
	TotalRevenue    float64            `json:"total_revenue"`
	DailyRevenue    []DailyRevenue     `json:"daily_revenue"`
	TopProducts     []ProductSales     `json:"top_products"`
	CategoryRevenue map[string]float64 `json:"category_revenue"`
}

// StockLevel is one product's stock in an inventory report
type StockLevel struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// InventoryReport summarizes the current catalog stock
type InventoryReport struct {
	StockLevels   []StockLevel       `json:"stock_levels"`
	LowStock      []StockLevel       `json:"low_stock"`
	CategoryValue map[string]float64 `json:"category_value"`
}

// Sales builds a sales report over the last days days (including today),
// with the top topN products by sold quantity
func (s *ReportService) Sales(ctx context.Context, days, topN int) *SalesReport {
	_, span := util.StartSpan(ctx, "ReportService.Sales")
	defer span.End()

	if days < 1 {
		days = 7
	}
	if topN < 1 {
		topN = 5
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
	byDay := make(map[string]decimal.Decimal)
	byProduct := make(map[string]*ProductSales)
	total := decimal.Zero
	orderCount := 0

	var orders []models.Order
	s.users.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		for i := range users.Users {
			orders = append(orders, users.Users[i].OrderHistory...)
		}
	})

	for _, order := range orders {
		if order.CreatedAt.Before(cutoff) {
			continue
		}
		orderCount++
		total = total.Add(decimal.NewFromFloat(order.Total))
		day := order.CreatedAt.UTC().Format("2006-01-02")
		byDay[day] = byDay[day].Add(decimal.NewFromFloat(order.Total))

		for _, item := range order.Items {
			ps, ok := byProduct[item.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: item.ProductID, Name: item.Name}
				byProduct[item.ProductID] = ps
			}
			ps.Quantity += item.Quantity
			ps.Revenue = decimal.NewFromFloat(ps.Revenue).
				Add(decimal.NewFromFloat(item.LineTotal)).Round(2).InexactFloat64()
		}
	}

	report := &SalesReport{
		Days:            days,
		OrderCount:      orderCount,
		TotalRevenue:    total.Round(2).InexactFloat64(),
		CategoryRevenue: make(map[string]float64),
	}

	for d := 0; d < days; d++ {
		day := cutoff.AddDate(0, 0, d).Format("2006-01-02")
		report.DailyRevenue = append(report.DailyRevenue, DailyRevenue{
			Date:    day,
			Revenue: byDay[day].Round(2).InexactFloat64(),
		})
	}

	for _, ps := range byProduct {
		report.TopProducts = append(report.TopProducts, *ps)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		if report.TopProducts[i].Quantity != report.TopProducts[j].Quantity {
			return report.TopProducts[i].Quantity > report.TopProducts[j].Quantity
		}
		return report.TopProducts[i].ProductID < report.TopProducts[j].ProductID
	})
	if len(report.TopProducts) > topN {
		report.TopProducts = report.TopProducts[:topN]
	}

	// Attribute revenue to the category each sold product currently
	// lives in; products deleted since the sale fall under "other".
	s.catalog.View(func(doc *models.CatalogDocument) {
		for _, ps := range byProduct {
			ci, _, p := locateProduct(doc, ps.ProductID)
			name := "other"
			if p != nil {
				name = doc.Categories[ci].Name
			}
			report.CategoryRevenue[name] = decimal.NewFromFloat(report.CategoryRevenue[name]).
				Add(decimal.NewFromFloat(ps.Revenue)).Round(2).InexactFloat64()
		}
	})

	return report
}

// Inventory builds a stock report; products at or below threshold are
// flagged as low stock
func (s *ReportService) Inventory(ctx context.Context, threshold int) *InventoryReport {
	_, span := util.StartSpan(ctx, "ReportService.Inventory")
	defer span.End()

	if threshold < 0 {
		threshold = 5
	}

	report := &InventoryReport{CategoryValue: make(map[string]float64)}
	s.catalog.View(func(doc *models.CatalogDocument) {
		for ci := range doc.Categories {
			cat := &doc.Categories[ci]
			value := decimal.Zero
			for pi := range cat.Products {
				p := &cat.Products[pi]
				level := StockLevel{ProductID: p.ID, Name: p.Name, Stock: p.Stock}
				report.StockLevels = append(report.StockLevels, level)
				if p.Stock <= threshold {
					report.LowStock = append(report.LowStock, level)
				}
				value = value.Add(decimal.NewFromFloat(p.Price).
					Mul(decimal.NewFromInt(int64(p.Stock))))
			}
			report.CategoryValue[cat.Name] = value.Round(2).InexactFloat64()
		}
	})
	return report
}
