package models

import "time"

// Category prefixes used in product IDs
const (
	PrefixElectronics = "e"
	PrefixClothing    = "c"
	PrefixHome        = "h"
	PrefixBooks       = "b"
)

// Curated list kinds
const (
	ListFeatured    = "featured_products"
	ListNewArrivals = "new_arrivals"
	ListBestSellers = "best_sellers"
	ListOnSale      = "on_sale"
)

// Ratings holds the aggregated customer rating for a product
type Ratings struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Product represents a product in the catalog. IDs are category-prefixed
// (e=electronics, c=clothing, h=home, b=books) followed by a zero-padded
// sequence number, e.g. "e005".
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	Stock          int       `json:"stock"`
	ImageURL       string    `json:"image_url,omitempty"`
	Specifications SpecMap   `json:"specifications,omitempty"`
	Ratings        Ratings   `json:"ratings"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Category groups products; insertion order of Products is preserved
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Products    []Product `json:"products"`
}

// CatalogDocument is the full on-disk catalog: categories plus the curated
// merchandising lists, which hold product IDs only
type CatalogDocument struct {
	Categories       []Category `json:"categories"`
	FeaturedProducts []string   `json:"featured_products"`
	NewArrivals      []string   `json:"new_arrivals"`
	BestSellers      []string   `json:"best_sellers"`
	OnSale           []string   `json:"on_sale"`
}

// CuratedList returns a pointer to the named curated list, or nil for an
// unknown kind
func (d *CatalogDocument) CuratedList(kind string) *[]string {
	switch kind {
	case ListFeatured:
		return &d.FeaturedProducts
	case ListNewArrivals:
		return &d.NewArrivals
	case ListBestSellers:
		return &d.BestSellers
	case ListOnSale:
		return &d.OnSale
	}
	return nil
}

// CuratedListKinds enumerates all curated list names
func CuratedListKinds() []string {
	return []string{ListFeatured, ListNewArrivals, ListBestSellers, ListOnSale}
}

// User represents a customer or admin account. Passwords are stored as
// bcrypt hashes only.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Email        string     `json:"email,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	Permissions  []string   `json:"permissions,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	OrderHistory []Order    `json:"order_history,omitempty"`
}

// UsersDocument is the on-disk users.json shape
type UsersDocument struct {
	Users []User `json:"users"`
}

// AdminsDocument is the on-disk admins.json shape
type AdminsDocument struct {
	Admins []User `json:"admins"`
}

// CartItem is a line item in a cart: one product, quantity >= 1
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart holds a customer's pending line items in insertion order, one line
// per product ID
type Cart struct {
	Items []CartItem `json:"items"`
}

// Find returns the index of the line item for productID, or -1
func (c *Cart) Find(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = nil
}

// OrderItem is a snapshot of a cart line at checkout time
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// Order is an immutable record of a completed checkout, appended to the
// owning user's order history
type Order struct {
	ID        string      `json:"id"`
	Items     []OrderItem `json:"items"`
	Subtotal  float64     `json:"subtotal"`
	Tax       float64     `json:"tax"`
	Discount  float64     `json:"discount"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}
